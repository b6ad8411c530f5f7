// Package ui holds the auth views, the hash router that switches between them
// and the shell that frames the active view.
package ui

import (
	"context"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
	hx "maragu.dev/gomponents-htmx"

	"github.com/authcode/authcode-go/internal/client"
)

// Auth API endpoints the views post to.
const (
	APILogin            = "/auth/login"
	APIRegisterSendCode = "/auth/register/send-code"
	APIRegisterVerify   = "/auth/register/verify-code"
	APIResetSendCode    = "/auth/forgot-password/send-code"
	APIResetVerify      = "/auth/forgot-password/verify-code"
)

// Poster performs an API call.
type Poster interface {
	Post(ctx context.Context, path string, payload any) (client.Result, error)
}

// Navigator switches the active route.
type Navigator interface {
	Navigate(path string) error
}

// Notifier shows a blocking confirmation to the user.
type Notifier interface {
	Alert(msg string)
}

// Deps are the capabilities handed to every view.
type Deps struct {
	API         Poster
	Nav         Navigator
	Notify      Notifier
	NewCooldown func() *client.Cooldown
}

func (d Deps) cooldown() *client.Cooldown {
	if d.NewCooldown != nil {
		return d.NewCooldown()
	}
	return client.NewCooldown()
}

// View is one routed screen.
type View interface {
	Render() g.Node
	// Close releases the view's timers when it is navigated away from.
	Close()
}

// CodeSender is a view with a resend cooldown.
type CodeSender interface {
	View
	Cooldown() *client.Cooldown
	// SendButton renders the send-code control on its own.
	SendButton() g.Node
}

// failure returns the server's error message or fallback.
func failure(res client.Result, fallback string) string {
	if msg := res.Data.String("error"); msg != "" {
		return msg
	}
	return fallback
}

// applyCooldown starts cd from a send-code response.
func applyCooldown(cd *client.Cooldown, res client.Result) {
	if !res.OK {
		if secs := res.Data.Int("retryAfterSeconds"); secs > 0 {
			cd.Start(secs)
		}
		return
	}

	secs := res.Data.Int("cooldownSeconds")
	if secs <= 0 {
		secs = client.DefaultCooldownSeconds
	}
	cd.Start(secs)
}

func errorText(msg string) g.Node {
	return g.If(msg != "", h.P(h.Class("error"), g.Attr("role", "alert"), g.Text(msg)))
}

func field(label, typ, name, value string, extra ...g.Node) g.Node {
	return h.Label(
		h.Span(g.Text(label)),
		h.Input(h.Type(typ), h.Name(name), h.Value(value), g.Group(extra)),
	)
}

// sendButton renders the send-code button. While the cooldown runs it is
// disabled and refreshes itself from /ui/cooldown every second.
func sendButton(route, action string, cd *client.Cooldown) g.Node {
	secs := cd.Value()
	if secs > 0 {
		return h.Span(h.ID("send-code"),
			hx.Get("/ui/cooldown?path="+route),
			hx.Trigger("every 1s"),
			hx.Swap("outerHTML"),
			h.Button(h.Type("button"), h.Disabled(), g.Textf("%ds until resend", secs)),
		)
	}
	return h.Span(h.ID("send-code"),
		h.Button(h.Type("button"), hx.Post(action), hx.Target("#view"), hx.Swap("innerHTML"), g.Text("Send code")),
	)
}
