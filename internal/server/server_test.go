package server

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcode/authcode-go/internal/client"
	"github.com/authcode/authcode-go/internal/crypto"
	"github.com/authcode/authcode-go/internal/email"
	"github.com/authcode/authcode-go/internal/repository"
	"github.com/authcode/authcode-go/internal/service"
	"github.com/authcode/authcode-go/internal/ui"
)

type testApp struct {
	srv     *httptest.Server
	outbox  *email.MemorySender
	browser *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newLimitedTestApp(t, 1000, 1000)
}

func newLimitedTestApp(t *testing.T, rps float64, burst int) *testApp {
	t.Helper()

	var router http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	outbox := email.NewMemorySender()
	svc := service.NewAuthService(repository.NewMemoryStore(), outbox, service.Options{
		Secret:            "test-secret",
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		CodeTTL:           10 * time.Minute,
		ResendCooldown:    time.Minute,
		Lockout:           10 * time.Minute,
		MaxAttempts:       5,
		MinPasswordLength: 8,
		HashParams:        crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	})

	router = NewRouter(Deps{
		Auth:      svc,
		Cookies:   NewCookieStore("test-secret", false),
		UI: ui.NewSessions(time.Minute, func() ui.Poster {
			return client.New(srv.URL, client.WithHTTPClient(srv.Client()))
		}),
		JWTSecret: "test-secret",
		RateLimit: rps,
		RateBurst: burst,
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testApp{srv: srv, outbox: outbox, browser: &http.Client{Jar: jar}}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.browser.Get(a.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	return postForm(t, a.browser, a.srv.URL+path, form)
}

// forwardedFrom stamps requests with a browser address, as a local reverse
// proxy would.
type forwardedFrom struct {
	ip   string
	next http.RoundTripper
}

func (f forwardedFrom) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Forwarded-For", f.ip)
	return f.next.RoundTrip(r)
}

// browserAt returns a browser with its own cookie jar seen at ip.
func (a *testApp) browserAt(t *testing.T, ip string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Transport: forwardedFrom{ip: ip, next: http.DefaultTransport}}
}

func postForm(t *testing.T, c *http.Client, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(target, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMeRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get(t, "/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIndex(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `id="view"`)
	assert.Contains(t, body, "htmx.org")
	assert.Contains(t, body, `href="#/forgot-password"`)
}

func TestUIRegistrationFlow(t *testing.T) {
	app := newTestApp(t)
	form := url.Values{
		"email":            {"a@example.com"},
		"password":         {"password123"},
		"confirm_password": {"password123"},
	}

	resp, body := app.post(t, "/ui/register/send-code", form)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, "s until resend")

	msg, ok := app.outbox.Last("a@example.com")
	require.True(t, ok)

	resp, body = app.get(t, "/ui/cooldown?path=/register")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "until resend")

	resp, body = app.post(t, "/ui/register/send-code", form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "resend cooldown active")

	form.Set("code", msg.Code)
	resp, body = app.post(t, "/ui/register/verify-code", form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `alert("Registration successful, please log in");`)

	resp, body = app.post(t, "/ui/login", url.Values{"email": {"a@example.com"}, "password": {"wrong-password"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "email or password is incorrect")
	assert.Empty(t, resp.Header.Get("HX-Push-Url"))

	resp, body = app.post(t, "/ui/login", url.Values{"email": {"a@example.com"}, "password": {"password123"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "#/app", resp.Header.Get("HX-Push-Url"))
	assert.Contains(t, body, "You are logged in.")

	resp, _ = app.get(t, "/ui/cooldown?path=/register")
	assert.Equal(t, 286, resp.StatusCode, "polling stops once the view is gone")
}

func TestUIForgotPasswordFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post(t, "/ui/forgot-password/send-code", url.Values{"email": {"ghost@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "s until resend")

	msg, ok := app.outbox.Last("ghost@example.com")
	require.True(t, ok)

	resp, body = app.post(t, "/ui/forgot-password/reset", url.Values{
		"email":            {"ghost@example.com"},
		"code":             {msg.Code},
		"new_password":     {"newpassword"},
		"confirm_password": {"newpassword"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "invalid or expired code")
	assert.NotContains(t, body, "alert(")
}

func TestUIView(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/ui/view?path=/register")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h2>Register</h2>")
	assert.False(t, strings.Contains(body, "<!doctype"), "fragments are not full pages")

	resp, body = app.get(t, "/ui/view?path=")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h2>Login</h2>")

	resp, _ = app.get(t, "/ui/view?path=/nowhere")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUIRateLimitIsPerBrowser(t *testing.T) {
	app := newLimitedTestApp(t, 0.001, 3)
	alice := app.browserAt(t, "203.0.113.10")
	bob := app.browserAt(t, "203.0.113.20")
	creds := url.Values{"email": {"a@example.com"}, "password": {"wrong-password"}}

	for i := 0; i < 3; i++ {
		resp, body := postForm(t, alice, app.srv.URL+"/ui/login", creds)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "email or password is incorrect")
	}

	_, body := postForm(t, alice, app.srv.URL+"/ui/login", creds)
	assert.Contains(t, body, "too many requests")

	resp, body := postForm(t, bob, app.srv.URL+"/ui/login", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "email or password is incorrect")
	assert.NotContains(t, body, "too many requests")
}
