package layouts

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"
)

// htmxSrc is the pinned HTMX build loaded by every page.
const htmxSrc = "/static/vendor/htmx.min.js"

// Base is the HTML document shell: head, top bar and a main slot for body.
// The CSRF token is sent by HTMX on every request through hx-headers.
func Base(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewHTML(w)
		headers, _ := json.Marshal(map[string]string{"X-CSRF-Token": GetCSRFToken(ctx)})

		h.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.Raw(`<title>`)
		h.Text(title)
		h.Raw(` · Dashboard</title>`)
		h.Raw(`<link rel="stylesheet" href="/static/css/app.css">`)
		h.Raw(`<script src="` + htmxSrc + `" defer></script>`)
		h.Raw(`</head><body class="bg-gray-50 text-gray-900"`)
		h.Attr("hx-headers", string(headers))
		h.Raw(`>`)

		h.Raw(`<header class="flex items-center justify-between px-6 h-14 bg-white border-b">`)
		h.Raw(`<a href="/timeline" class="font-semibold">Dashboard</a>`)
		if name := GetUserName(ctx); name != "" {
			h.Raw(`<span class="text-sm text-gray-600">`)
			h.Text(name)
			if role := GetUserRole(ctx); role != "" {
				h.Raw(` <span class="ml-1 px-2 py-0.5 rounded bg-gray-100 text-xs">`)
				h.Text(role)
				h.Raw(`</span>`)
			}
			h.Raw(`</span>`)
		}
		h.Raw(`</header>`)

		if msg := GetFlashError(ctx); msg != "" {
			h.Raw(`<div class="mx-6 mt-4 p-3 rounded bg-red-50 text-red-700 text-sm" role="alert">`)
			h.Text(msg)
			h.Raw(`</div>`)
		}

		h.Raw(`<main class="p-6">`)
		h.Child(ctx, body)
		h.Raw(`</main></body></html>`)
		return h.Err()
	})
}
