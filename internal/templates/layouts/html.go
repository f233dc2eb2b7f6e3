package layouts

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// HTML is a small write helper for hand-built components. It keeps the
// first write error and turns later writes into no-ops, so component bodies
// stay linear and return Err() once at the end.
type HTML struct {
	w   io.Writer
	err error
}

// NewHTML wraps w.
func NewHTML(w io.Writer) *HTML {
	return &HTML{w: w}
}

// Raw writes trusted markup as-is.
func (h *HTML) Raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// Rawf formats trusted markup. Arguments are NOT escaped; pass user data
// through Text or Attr instead.
func (h *HTML) Rawf(format string, args ...any) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

// Text writes escaped text content.
func (h *HTML) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Attr writes ` name="value"` with the value escaped.
func (h *HTML) Attr(name, value string) {
	h.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// URLAttr writes a URL attribute, replacing unsafe schemes with about:invalid.
func (h *HTML) URLAttr(name, url string) {
	h.Attr(name, string(templ.URL(url)))
}

// Child renders a nested component into the same writer.
func (h *HTML) Child(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Err returns the first write error.
func (h *HTML) Err() error {
	return h.err
}
