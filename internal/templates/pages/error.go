// Package pages holds standalone pages that do not belong to a plugin.
package pages

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	"github.com/osborn-app/dashboard/internal/templates/layouts"
)

// ErrorPage renders a full error page for the given status code.
func ErrorPage(code int, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<section class="max-w-lg mx-auto mt-16 text-center">`)
		h.Raw(`<p class="text-5xl font-bold text-gray-300">` + strconv.Itoa(code) + `</p>`)
		h.Raw(`<h1 class="mt-4 text-xl font-semibold">`)
		h.Text(http.StatusText(code))
		h.Raw(`</h1><p class="mt-2 text-gray-600">`)
		h.Text(message)
		h.Raw(`</p><a href="/timeline" class="inline-block mt-6 text-blue-600 hover:underline">Back to timeline</a>`)
		h.Raw(`</section>`)
		return h.Err()
	})
	return layouts.Base(http.StatusText(code), body)
}
