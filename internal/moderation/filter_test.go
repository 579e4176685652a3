package moderation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeList(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Hello", "hello"},
		{"  many   spaces\there ", "many spaces here"},
		{"pu7a", "puta"},
		{"c4$@", "casa"},
		{"camión", "camion"},
		{"puuuuta", "puuta"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilterContains(t *testing.T) {
	dir := t.TempDir()
	writeList(t, dir, "en.txt", "# comment\nbadword\nvery bad phrase\n\n")
	writeList(t, dir, "es", "grosería\n")

	f, err := LoadFilter(dir, "es", "en")
	require.NoError(t, err)

	testCases := []struct {
		name string
		text string
		want bool
	}{
		{"plain hit", "this is a badword here", true},
		{"upper case", "BADWORD", true},
		{"leet", "b4dw0rd!", true},
		{"repeats", "baaaadword", false},
		{"phrase with spacing", "a very   bad\nphrase indeed", true},
		{"accent in list and text", "qué grosería", true},
		{"accent stripped in text", "que groseria", true},
		{"embedded substring", "notabadwordy", false},
		{"clean", "nothing to see", false},
		{"empty", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, f.Contains(tc.text))
		})
	}
}

func TestFilterLanguageSelection(t *testing.T) {
	dir := t.TempDir()
	writeList(t, dir, "en.txt", "badword\n")
	writeList(t, dir, "es.txt", "palabrota\n")

	f := NewFilter(dir, "es")
	require.True(t, f.Contains("una palabrota"))
	require.False(t, f.Contains("a badword"))
	require.True(t, f.Contains("a badword", "en"))
}

func TestFilterOverrides(t *testing.T) {
	dir := t.TempDir()
	writeList(t, dir, "en.txt", "badword\nharmless\n")
	writeList(t, dir, OverridesFile, `{
		"add": {"*": ["global thing"], "en": ["extra"]},
		"remove": {"en": ["harmless"]}
	}`)

	f, err := LoadFilter(dir, "en")
	require.NoError(t, err)
	require.True(t, f.Contains("some global  thing"))
	require.True(t, f.Contains("extra"))
	require.False(t, f.Contains("harmless"))
	require.True(t, f.Contains("badword"))
}

func TestFilterBadOverrides(t *testing.T) {
	dir := t.TempDir()
	writeList(t, dir, OverridesFile, `{not json`)
	_, err := LoadFilter(dir, "en")
	require.Error(t, err)
}

func TestFilterEmptySetNeverMatches(t *testing.T) {
	f, err := LoadFilter(t.TempDir(), "xx")
	require.NoError(t, err)
	require.False(t, f.Contains("anything at all"))
	require.NoError(t, f.Check("anything", "else"))
}

func TestFilterCheck(t *testing.T) {
	dir := t.TempDir()
	writeList(t, dir, "en.txt", "badword\n")
	f := NewFilter(dir, "en")
	require.NoError(t, f.Check("fine title", "fine body"))
	require.ErrorIs(t, f.Check("fine title", "a badword body"), ErrBannedWords)

	var nilFilter *Filter
	require.NoError(t, nilFilter.Check("badword"))
}

func TestFilterReset(t *testing.T) {
	dir := t.TempDir()
	writeList(t, dir, "en.txt", "first\n")
	f := NewFilter(dir, "en")
	require.True(t, f.Contains("first"))

	writeList(t, dir, "en.txt", "second\n")
	require.False(t, f.Contains("second"))
	f.Reset()
	require.True(t, f.Contains("second"))
	require.False(t, f.Contains("first"))
}
