// Package views renders klkchan pages as templ components.
package views

import (
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter writes markup and keeps the first write error
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

// text writes escaped text
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// link writes an anchor with a sanitized href and escaped label
func (h *htmlWriter) link(href, label string) {
	h.raw(`<a href="`, templ.EscapeString(string(templ.URL(href))), `">`)
	h.text(label)
	h.raw(`</a>`)
}

func (h *htmlWriter) num(n int) {
	h.raw(strconv.Itoa(n))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
