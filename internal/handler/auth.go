package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/authcode/authcode-go/internal/middleware"
	"github.com/authcode/authcode-go/internal/model"
	"github.com/authcode/authcode-go/internal/repository"
	"github.com/authcode/authcode-go/internal/service"
)

const resetSentMessage = "if the email exists, a code was sent"

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service  *service.AuthService
	sessions sessions.Store
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, store sessions.Store) *AuthHandler {
	return &AuthHandler{service: svc, sessions: store}
}

// HandleSendRegisterCode handles POST /auth/register/send-code requests.
func (h *AuthHandler) HandleSendRegisterCode(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}

	err := h.service.SendRegisterCode(r.Context(), model.SendRegisterCodeRequest{
		Email:           p.get("email"),
		Password:        p.get("password"),
		ConfirmPassword: p.get("confirm_password"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{OK: true, CooldownSeconds: h.service.ResendCooldownSeconds()})
}

// HandleVerifyRegisterCode handles POST /auth/register/verify-code requests.
func (h *AuthHandler) HandleVerifyRegisterCode(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}

	err := h.service.VerifyRegisterCode(r.Context(), model.VerifyRegisterCodeRequest{
		Email: p.get("email"),
		Code:  p.get("code"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{OK: true, Redirect: "/login"})
}

// HandleLogin handles POST /auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Login(r.Context(), model.LoginRequest{
		Email:    p.get("email"),
		Password: p.get("password"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	session, _ := h.sessions.Get(r, middleware.SessionName)
	session.Values[middleware.SessionUserKey] = resp.User.ID
	if err := session.Save(r, w); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{OK: true, Token: resp.Token, User: &resp.User})
}

// HandleLogout handles POST /auth/logout requests.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, middleware.SessionName)
	for k := range session.Values {
		delete(session.Values, k)
	}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{OK: true})
}

// HandleSendResetCode handles POST /auth/forgot-password/send-code requests.
func (h *AuthHandler) HandleSendResetCode(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}

	if err := h.service.SendResetCode(r.Context(), model.SendResetCodeRequest{Email: p.get("email")}); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{
		OK:              true,
		Message:         resetSentMessage,
		CooldownSeconds: h.service.ResendCooldownSeconds(),
	})
}

// HandleResetPassword handles POST /auth/forgot-password/verify-code requests.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}

	err := h.service.ResetPassword(r.Context(), model.ResetPasswordRequest{
		Email:           p.get("email"),
		Code:            p.get("code"),
		NewPassword:     p.get("new_password"),
		ConfirmPassword: p.get("confirm_password"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{OK: true, Redirect: "/login"})
}

// HandleMe handles GET /auth/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{OK: true, User: &user})
}

func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var retry *service.RetryError
	var short *service.PasswordTooShortError

	switch {
	case errors.As(err, &retry):
		writeJSON(w, http.StatusTooManyRequests, model.Envelope{
			OK:                false,
			Error:             retry.Reason.Error(),
			RetryAfterSeconds: retry.RetryAfter,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.As(err, &short),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrRegistrationMissing):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	default:
		middleware.LoggerFrom(r.Context()).Error("auth request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}
