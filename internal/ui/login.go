package ui

import (
	"context"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
	hx "maragu.dev/gomponents-htmx"
)

type LoginForm struct {
	Email    string
	Password string
}

// Login signs a user in and moves to the home route.
type Login struct {
	Form  LoginForm
	Error string

	deps Deps
}

func NewLogin(deps Deps) *Login {
	return &Login{deps: deps}
}

// Submit posts the credentials. Transport errors are returned and leave
// Error empty.
func (v *Login) Submit(ctx context.Context) error {
	v.Error = ""

	res, err := v.deps.API.Post(ctx, APILogin, map[string]string{
		"email":    v.Form.Email,
		"password": v.Form.Password,
	})
	if err != nil {
		return err
	}
	if !res.OK {
		v.Error = failure(res, "login failed")
		return nil
	}
	return v.deps.Nav.Navigate(PathHome)
}

func (v *Login) Render() g.Node {
	return h.Section(h.Class("login"),
		h.H2(g.Text("Login")),
		h.Form(hx.Post("/ui/login"), hx.Target("#view"), hx.Swap("innerHTML"),
			field("Email", "email", "email", v.Form.Email, h.Required(), h.AutoComplete("email")),
			field("Password", "password", "password", "", h.Required(), h.AutoComplete("current-password")),
			h.Button(h.Type("submit"), g.Text("Login")),
		),
		errorText(v.Error),
		h.P(
			h.A(h.Href(Href(PathRegister)), g.Text("Create an account")),
			g.Text(" · "),
			h.A(h.Href(Href(PathForgotPassword)), g.Text("Forgot password?")),
		),
	)
}

func (v *Login) Close() {}
