// Package moderation implements the banned-words content filter.
//
// Word lists follow the LDNOOBW layout: one file per language (es.txt, en.txt or
// just es, en) with one word or phrase per line. An optional overrides.json in the
// same directory adds or removes entries globally ("*") or per language.
package moderation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrBannedWords is returned by Check when a text hits the word list
var ErrBannedWords = errors.New("Text contains banned words.")

// OverridesFile is the optional per-directory overrides file name
const OverridesFile = "overrides.json"

var leetReplacer = strings.NewReplacer(
	"0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t", "8", "b", "9", "g",
	"$", "s", "@", "a", "+", "t",
)

var spaceRegex = regexp.MustCompile(`\s+`)

// never matches anything, used for empty word sets
var matchNothing = regexp.MustCompile(`[^\x00-\x{10FFFF}]`)

// Overrides mirrors overrides.json
type Overrides struct {
	Add    map[string][]string `json:"add"`
	Remove map[string][]string `json:"remove"`
}

// Filter matches normalised text against the configured word lists.
// Compiled patterns are cached per language set.
type Filter struct {
	dir          string
	defaultLangs []string
	overrides    *Overrides

	mux      sync.RWMutex
	compiled map[string]*regexp.Regexp
}

// LoadFilter creates a filter for dir and compiles the default language set once,
// logging a warning for every language without a word list.
// A malformed overrides.json is an error, a missing one is not.
func LoadFilter(dir string, langs ...string) (*Filter, error) {
	f := NewFilter(dir, langs...)
	ovPath := filepath.Join(dir, OverridesFile)
	data, err := os.ReadFile(ovPath)
	switch {
	case err == nil:
		ov := &Overrides{}
		if err := json.Unmarshal(data, ov); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ovPath, err)
		}
		f.overrides = ov
	case errors.Is(err, os.ErrNotExist):
		// no overrides
	default:
		return nil, fmt.Errorf("read %s: %w", ovPath, err)
	}
	for _, lang := range f.defaultLangs {
		if listPath(dir, lang) == "" {
			log.Printf("[MODERATION] WARNING: no word list for language '%s' in '%s'", lang, dir)
		}
	}
	f.pattern(f.defaultLangs)
	return f, nil
}

// NewFilter creates a filter without reading anything from disk yet.
// If no languages are given it defaults to es and en.
func NewFilter(dir string, langs ...string) *Filter {
	if len(langs) == 0 {
		langs = []string{"es", "en"}
	}
	return &Filter{
		dir:          dir,
		defaultLangs: langs,
		compiled:     make(map[string]*regexp.Regexp),
	}
}

// Contains reports whether text contains a banned word or phrase for the given
// languages, or the filter's default languages when none are given.
func (f *Filter) Contains(text string, langs ...string) bool {
	if f == nil || text == "" {
		return false
	}
	if len(langs) == 0 {
		langs = f.defaultLangs
	}
	return f.pattern(langs).MatchString(Normalize(text))
}

// Check returns ErrBannedWords if any of the texts hits the default word lists
func (f *Filter) Check(texts ...string) error {
	for _, text := range texts {
		if f.Contains(text) {
			return ErrBannedWords
		}
	}
	return nil
}

// Reset drops all compiled patterns so the next check reloads the lists from disk
func (f *Filter) Reset() {
	f.mux.Lock()
	f.compiled = make(map[string]*regexp.Regexp)
	f.mux.Unlock()
}

func (f *Filter) pattern(langs []string) *regexp.Regexp {
	key := strings.Join(langs, ",")

	f.mux.RLock()
	rx, ok := f.compiled[key]
	f.mux.RUnlock()
	if ok {
		return rx
	}

	words := make(map[string]struct{})
	for _, lang := range langs {
		for _, w := range loadWords(f.dir, lang) {
			words[w] = struct{}{}
		}
	}
	f.applyOverrides(words, langs)
	rx = compile(words)

	f.mux.Lock()
	f.compiled[key] = rx
	f.mux.Unlock()
	return rx
}

func (f *Filter) applyOverrides(words map[string]struct{}, langs []string) {
	if f.overrides == nil {
		return
	}
	keys := append([]string{"*"}, langs...)
	for _, k := range keys {
		for _, w := range f.overrides.Add[k] {
			if n := Normalize(w); n != "" {
				words[n] = struct{}{}
			}
		}
	}
	for _, k := range keys {
		for _, w := range f.overrides.Remove[k] {
			delete(words, Normalize(w))
		}
	}
}

func listPath(dir, lang string) string {
	for _, p := range []string{filepath.Join(dir, lang+".txt"), filepath.Join(dir, lang)} {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func loadWords(dir, lang string) []string {
	p := listPath(dir, lang)
	if p == "" {
		return nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		log.Printf("[MODERATION] Failed to read word list '%s': %v", p, err)
		return nil
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if n := Normalize(line); n != "" {
			words = append(words, n)
		}
	}
	return words
}

// compile builds one alternation, longest entries first, bounded by non-word runes
func compile(words map[string]struct{}) *regexp.Regexp {
	if len(words) == 0 {
		return matchNothing
	}
	list := make([]string, 0, len(words))
	for w := range words {
		list = append(list, w)
	}
	sort.Slice(list, func(i, j int) bool {
		if len(list[i]) != len(list[j]) {
			return len(list[i]) > len(list[j])
		}
		return list[i] < list[j]
	})
	tokens := make([]string, len(list))
	for i, w := range list {
		tokens[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN_])(?:` + strings.Join(tokens, "|") + `)(?:[^\pL\pN_]|$)`)
}

// Normalize lowercases s, maps leetspeak digits and symbols to letters,
// strips accents, squeezes runs of three or more identical runes to two
// and collapses whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = leetReplacer.Replace(strings.ToLower(s))
	s = stripAccents(s)
	s = squeezeRepeats(s)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func squeezeRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
