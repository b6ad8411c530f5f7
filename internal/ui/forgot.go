package ui

import (
	"context"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
	hx "maragu.dev/gomponents-htmx"

	"github.com/authcode/authcode-go/internal/client"
)

const resetMessage = "Password has been reset, please log in"

type ResetForm struct {
	Email           string
	Code            string
	NewPassword     string
	ConfirmPassword string
}

// ForgotPassword emails a reset code and then sets a new password.
type ForgotPassword struct {
	Form  ResetForm
	Error string

	deps     Deps
	cooldown *client.Cooldown
}

func NewForgotPassword(deps Deps) *ForgotPassword {
	return &ForgotPassword{deps: deps, cooldown: deps.cooldown()}
}

func (v *ForgotPassword) Cooldown() *client.Cooldown { return v.cooldown }

func (v *ForgotPassword) SendCode(ctx context.Context) error {
	v.Error = ""

	res, err := v.deps.API.Post(ctx, APIResetSendCode, map[string]string{
		"email": v.Form.Email,
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

func (v *ForgotPassword) ResetPassword(ctx context.Context) error {
	v.Error = ""

	res, err := v.deps.API.Post(ctx, APIResetVerify, map[string]string{
		"email":            v.Form.Email,
		"code":             v.Form.Code,
		"new_password":     v.Form.NewPassword,
		"confirm_password": v.Form.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	if !res.OK {
		v.Error = failure(res, "reset failed")
		return nil
	}
	v.deps.Notify.Alert(resetMessage)
	return nil
}

func (v *ForgotPassword) Render() g.Node {
	return h.Section(h.Class("forgot-password"),
		h.H2(g.Text("Forgot password")),
		h.Form(hx.Post("/ui/forgot-password/reset"), hx.Target("#view"), hx.Swap("innerHTML"),
			field("Email", "email", "email", v.Form.Email, h.AutoComplete("email")),
			v.SendButton(),
			field("Code", "text", "code", v.Form.Code, h.MaxLength("6"), g.Attr("inputmode", "numeric"), h.AutoComplete("one-time-code")),
			field("New password", "password", "new_password", v.Form.NewPassword, h.AutoComplete("new-password")),
			field("Confirm password", "password", "confirm_password", v.Form.ConfirmPassword, h.AutoComplete("new-password")),
			h.Button(h.Type("submit"), g.Text("Reset password")),
		),
		errorText(v.Error),
	)
}

func (v *ForgotPassword) SendButton() g.Node {
	return sendButton(PathForgotPassword, "/ui/forgot-password/send-code", v.cooldown)
}

func (v *ForgotPassword) Close() { v.cooldown.Stop() }
