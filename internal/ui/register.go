package ui

import (
	"context"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
	hx "maragu.dev/gomponents-htmx"

	"github.com/authcode/authcode-go/internal/client"
)

const registeredMessage = "Registration successful, please log in"

type RegisterForm struct {
	Email           string
	Password        string
	ConfirmPassword string
	Code            string
}

// Register emails a verification code and then creates the account.
// Sending and verifying are independent; the server enforces the order.
type Register struct {
	Form  RegisterForm
	Error string

	deps     Deps
	cooldown *client.Cooldown
}

func NewRegister(deps Deps) *Register {
	return &Register{deps: deps, cooldown: deps.cooldown()}
}

func (v *Register) Cooldown() *client.Cooldown { return v.cooldown }

// SendCode requests a code and starts the resend cooldown.
func (v *Register) SendCode(ctx context.Context) error {
	v.Error = ""

	res, err := v.deps.API.Post(ctx, APIRegisterSendCode, map[string]string{
		"email":            v.Form.Email,
		"password":         v.Form.Password,
		"confirm_password": v.Form.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	if !res.OK {
		v.Error = failure(res, "send failed")
	}
	applyCooldown(v.cooldown, res)
	return nil
}

// VerifyCode submits the emailed code.
func (v *Register) VerifyCode(ctx context.Context) error {
	v.Error = ""

	res, err := v.deps.API.Post(ctx, APIRegisterVerify, map[string]string{
		"email": v.Form.Email,
		"code":  v.Form.Code,
	})
	if err != nil {
		return err
	}
	if !res.OK {
		v.Error = failure(res, "registration failed")
		return nil
	}
	v.deps.Notify.Alert(registeredMessage)
	return nil
}

func (v *Register) Render() g.Node {
	return h.Section(h.Class("register"),
		h.H2(g.Text("Register")),
		h.Form(hx.Post("/ui/register/verify-code"), hx.Target("#view"), hx.Swap("innerHTML"),
			field("Email", "email", "email", v.Form.Email, h.AutoComplete("email")),
			field("Password", "password", "password", v.Form.Password, h.AutoComplete("new-password")),
			field("Confirm password", "password", "confirm_password", v.Form.ConfirmPassword, h.AutoComplete("new-password")),
			v.SendButton(),
			field("Code", "text", "code", v.Form.Code, h.MaxLength("6"), g.Attr("inputmode", "numeric"), h.AutoComplete("one-time-code")),
			h.Button(h.Type("submit"), g.Text("Register")),
		),
		errorText(v.Error),
	)
}

func (v *Register) SendButton() g.Node {
	return sendButton(PathRegister, "/ui/register/send-code", v.cooldown)
}

func (v *Register) Close() { v.cooldown.Stop() }
