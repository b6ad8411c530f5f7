package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	g "maragu.dev/gomponents"

	"github.com/authcode/authcode-go/internal/client"
	"github.com/authcode/authcode-go/internal/middleware"
	"github.com/authcode/authcode-go/internal/ui"
)

const (
	uiSessionName = "ui"
	uiSessionKey  = "sid"

	// statusStopPolling tells htmx to stop an "every" trigger.
	statusStopPolling = 286
)

// UIHandler serves the web shell and the view fragments it swaps in.
type UIHandler struct {
	registry *ui.Sessions
	cookies  sessions.Store
}

// NewUIHandler creates a new UIHandler.
func NewUIHandler(registry *ui.Sessions, cookies sessions.Store) *UIHandler {
	return &UIHandler{registry: registry, cookies: cookies}
}

// HandleIndex handles GET / requests.
func (h *UIHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	var page g.Node
	sess.Do(func() error {
		page = ui.Page("authcode", ui.Shell(sess.Router))
		return nil
	})
	writeHTML(w, http.StatusOK, page)
}

// HandleView handles GET /ui/view?path= requests.
func (h *UIHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	path := ui.ParseHash(r.URL.Query().Get("path"))

	err := sess.Do(func() error {
		return sess.Router.Navigate(path)
	})
	if errors.Is(err, ui.ErrRouteNotFound) {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	h.writeFragment(w, sess, "")
}

// HandleLogin handles POST /ui/login requests.
func (h *UIHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, ui.PathLogin, func(ctx context.Context, v ui.View) error {
		login := v.(*ui.Login)
		login.Form = ui.LoginForm{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}
		return login.Submit(ctx)
	})
}

// HandleRegisterSendCode handles POST /ui/register/send-code requests.
func (h *UIHandler) HandleRegisterSendCode(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, ui.PathRegister, func(ctx context.Context, v ui.View) error {
		reg := v.(*ui.Register)
		bindRegister(reg, r)
		return reg.SendCode(ctx)
	})
}

// HandleRegisterVerify handles POST /ui/register/verify-code requests.
func (h *UIHandler) HandleRegisterVerify(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, ui.PathRegister, func(ctx context.Context, v ui.View) error {
		reg := v.(*ui.Register)
		bindRegister(reg, r)
		return reg.VerifyCode(ctx)
	})
}

// HandleResetSendCode handles POST /ui/forgot-password/send-code requests.
func (h *UIHandler) HandleResetSendCode(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, ui.PathForgotPassword, func(ctx context.Context, v ui.View) error {
		fp := v.(*ui.ForgotPassword)
		bindReset(fp, r)
		return fp.SendCode(ctx)
	})
}

// HandleResetPassword handles POST /ui/forgot-password/reset requests.
func (h *UIHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, ui.PathForgotPassword, func(ctx context.Context, v ui.View) error {
		fp := v.(*ui.ForgotPassword)
		bindReset(fp, r)
		return fp.ResetPassword(ctx)
	})
}

// HandleCooldown handles GET /ui/cooldown?path= requests. It renders only
// the send-code control of the active view.
func (h *UIHandler) HandleCooldown(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	path := ui.ParseHash(r.URL.Query().Get("path"))

	var button g.Node
	sess.Do(func() error {
		if sess.Router.Current() != path {
			return nil
		}
		if sender, ok := sess.Router.Active().(ui.CodeSender); ok {
			button = sender.SendButton()
		}
		return nil
	})
	if button == nil {
		w.WriteHeader(statusStopPolling)
		return
	}
	writeHTML(w, http.StatusOK, button)
}

// act navigates the session to route, runs fn against the view and renders
// the result. API calls made by the view are attributed to the browser's IP
// so the API rate limits each browser separately.
func (h *UIHandler) act(w http.ResponseWriter, r *http.Request, route string, fn func(ctx context.Context, v ui.View) error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeBodyError(w, err)
		return
	}

	sess := h.session(w, r)
	ctx := client.WithClientIP(r.Context(), middleware.ClientIP(r))
	var before string
	err := sess.Do(func() error {
		if err := sess.Router.Navigate(route); err != nil {
			return err
		}
		before = sess.Router.Current()
		return fn(ctx, sess.Router.Active())
	})
	if err != nil {
		middleware.LoggerFrom(r.Context()).Error("ui action failed", "path", r.URL.Path, "error", err)
		http.Error(w, "auth service unavailable", http.StatusBadGateway)
		return
	}

	h.writeFragment(w, sess, before)
}

// writeFragment renders the active view with any queued alerts. When the
// route changed since before, the new hash is pushed to the browser.
func (h *UIHandler) writeFragment(w http.ResponseWriter, sess *ui.Session, before string) {
	var node g.Node
	sess.Do(func() error {
		current := sess.Router.Current()
		if before != "" && current != before {
			w.Header().Set("HX-Push-Url", ui.Href(current))
		}
		node = g.Group{sess.Router.Active().Render(), ui.AlertScripts(sess.TakeAlerts())}
		return nil
	})
	writeHTML(w, http.StatusOK, node)
}

// session returns the caller's ui session, starting one if needed.
func (h *UIHandler) session(w http.ResponseWriter, r *http.Request) *ui.Session {
	cookie, _ := h.cookies.Get(r, uiSessionName)
	if id, ok := cookie.Values[uiSessionKey].(string); ok {
		if sess, ok := h.registry.Get(id); ok {
			return sess
		}
	}

	sess := h.registry.Create()
	cookie.Values[uiSessionKey] = sess.ID
	if err := cookie.Save(r, w); err != nil {
		middleware.LoggerFrom(r.Context()).Warn("save ui session cookie", "error", err)
	}
	return sess
}

func bindRegister(v *ui.Register, r *http.Request) {
	v.Form = ui.RegisterForm{
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		Code:            r.PostFormValue("code"),
	}
}

func bindReset(v *ui.ForgotPassword, r *http.Request) {
	v.Form = ui.ResetForm{
		Email:           r.PostFormValue("email"),
		Code:            r.PostFormValue("code"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
}

func writeHTML(w http.ResponseWriter, status int, node g.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	node.Render(w)
}
