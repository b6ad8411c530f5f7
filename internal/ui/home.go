package ui

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// Home is the placeholder shown after login.
type Home struct{}

func NewHome(Deps) *Home { return &Home{} }

func (v *Home) Render() g.Node {
	return h.Section(h.Class("home"),
		h.H2(g.Text("Home")),
		h.P(g.Text("You are logged in.")),
	)
}

func (v *Home) Close() {}
