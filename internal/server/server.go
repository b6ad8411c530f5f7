package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"github.com/authcode/authcode-go/internal/handler"
	"github.com/authcode/authcode-go/internal/middleware"
	"github.com/authcode/authcode-go/internal/service"
	"github.com/authcode/authcode-go/internal/ui"
)

const sessionMaxAge = 86400 * 7 // 7 days

// Deps are the components the router serves.
type Deps struct {
	Auth      *service.AuthService
	Cookies   sessions.Store
	UI        *ui.Sessions
	JWTSecret string

	// RateLimit and RateBurst bound /auth requests per client IP.
	// Zero values use 5 requests per second with a burst of 10.
	RateLimit float64
	RateBurst int
}

// NewCookieStore returns the cookie store backing login and ui sessions.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// NewRouter wires the auth API, health check and web shell.
func NewRouter(d Deps) http.Handler {
	if d.RateLimit <= 0 {
		d.RateLimit = 5
	}
	if d.RateBurst <= 0 {
		d.RateBurst = 10
	}

	authHandler := handler.NewAuthHandler(d.Auth, d.Cookies)
	uiHandler := handler.NewUIHandler(d.UI, d.Cookies)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", handler.HandleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(d.RateLimit, d.RateBurst))
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/register/send-code", authHandler.HandleSendRegisterCode)
			r.Post("/register/verify-code", authHandler.HandleVerifyRegisterCode)
			r.Post("/forgot-password/send-code", authHandler.HandleSendResetCode)
			r.Post("/forgot-password/verify-code", authHandler.HandleResetPassword)
		})

		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(d.Cookies, d.JWTSecret))
			r.Get("/me", authHandler.HandleMe)
		})
	})

	r.Get("/", uiHandler.HandleIndex)
	r.Route("/ui", func(r chi.Router) {
		r.Get("/view", uiHandler.HandleView)
		r.Get("/cooldown", uiHandler.HandleCooldown)
		r.Post("/login", uiHandler.HandleLogin)
		r.Post("/register/send-code", uiHandler.HandleRegisterSendCode)
		r.Post("/register/verify-code", uiHandler.HandleRegisterVerify)
		r.Post("/forgot-password/send-code", uiHandler.HandleResetSendCode)
		r.Post("/forgot-password/reset", uiHandler.HandleResetPassword)
	})

	return r
}
