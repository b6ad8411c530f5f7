package ui

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
	hx "maragu.dev/gomponents-htmx"
)

const htmxSrc = "https://unpkg.com/htmx.org@2.0.4"

// Nav renders a link to every route. Links are not gated on login state.
func Nav() g.Node {
	return h.Nav(h.Class("nav"),
		g.Map(Routes(), func(rt Route) g.Node {
			return h.A(h.Href(Href(rt.Path)), g.Text(rt.Title))
		}),
	)
}

// Shell renders the nav bar and the content slot holding the active view.
// The slot reloads from /ui/view whenever the URL fragment changes.
func Shell(r *Router) g.Node {
	var content g.Node
	if v := r.Active(); v != nil {
		content = v.Render()
	}

	return h.Div(h.ID("app"),
		Nav(),
		h.Main(h.ID("view"),
			hx.Get("/ui/view"),
			hx.Trigger("load, hashchange from:window"),
			g.Attr("hx-vals", "js:{path: window.location.hash.slice(1) || '/'}"),
			hx.Swap("innerHTML"),
			content,
		),
	)
}

// Page wraps body in an HTML document that loads htmx.
func Page(title string, body ...g.Node) g.Node {
	return h.Doctype(
		h.HTML(h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				h.TitleEl(g.Text(title)),
				h.Script(h.Src(htmxSrc)),
				h.StyleEl(g.Raw(css)),
			),
			h.Body(g.Group(body)),
		),
	)
}

const css = `body{font-family:system-ui,sans-serif;max-width:28rem;margin:2rem auto;padding:0 1rem}
.nav{display:flex;gap:1rem;margin-bottom:1.5rem}
label{display:block;margin:.5rem 0}
label span{display:block;font-size:.9rem}
input{width:100%;padding:.4rem;box-sizing:border-box}
button{margin:.5rem .5rem .5rem 0;padding:.4rem .8rem}
.error{color:#b00020}`
