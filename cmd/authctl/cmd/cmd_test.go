package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	status int
	body   map[string]any
}

// fakeAPI answers each path with a canned reply and records request bodies.
type fakeAPI struct {
	mu       sync.Mutex
	replies  map[string]reply
	requests map[string]map[string]string
}

func newFakeAPI(t *testing.T, replies map[string]reply) (*fakeAPI, string) {
	t.Helper()
	f := &fakeAPI{replies: replies, requests: make(map[string]map[string]string)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.requests[r.URL.Path] = body
		rep, ok := f.replies[r.URL.Path]
		f.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_ = json.NewEncoder(w).Encode(rep.body)
	}))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeAPI) request(path string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "authctl v"+version+"\n", out)
}

func TestRoutes(t *testing.T) {
	out, err := run(t, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "#/login")
	assert.Contains(t, out, "#/app")
	assert.Contains(t, out, "#/register")
	assert.Contains(t, out, "#/forgot-password")
}

func TestLogin(t *testing.T) {
	api, url := newFakeAPI(t, map[string]reply{
		"/auth/login": {status: http.StatusOK, body: map[string]any{"ok": true, "token": "t"}},
	})

	out, err := run(t, "login", "--api", url, "--email", "a@b.com", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in, now at /app")
	assert.Equal(t, map[string]string{"email": "a@b.com", "password": "secret123"}, api.request("/auth/login"))
}

func TestLogin_Failure(t *testing.T) {
	_, url := newFakeAPI(t, map[string]reply{
		"/auth/login": {status: http.StatusUnauthorized, body: map[string]any{"ok": false, "error": "invalid credentials"}},
	})

	out, err := run(t, "login", "--api", url, "--email", "a@b.com", "--password", "wrong")
	require.EqualError(t, err, "invalid credentials")
	assert.NotContains(t, out, "logged in")
}

func TestLogin_NotFound(t *testing.T) {
	_, url := newFakeAPI(t, nil)

	_, err := run(t, "login", "--api", url+"/missing", "--email", "a@b.com", "--password", "x")
	require.EqualError(t, err, "login failed")
}

func TestRegisterSendCode(t *testing.T) {
	api, url := newFakeAPI(t, map[string]reply{
		"/auth/register/send-code": {status: http.StatusOK, body: map[string]any{"ok": true, "cooldownSeconds": 45}},
	})

	out, err := run(t, "register", "send-code", "--api", url,
		"--email", "a@b.com", "--password", "secret123", "--confirm-password", "secret123", "--wait=false")
	require.NoError(t, err)
	assert.Contains(t, out, "code sent to a@b.com")
	assert.Contains(t, out, "resend available in 45s")
	assert.Equal(t, map[string]string{
		"email":            "a@b.com",
		"password":         "secret123",
		"confirm_password": "secret123",
	}, api.request("/auth/register/send-code"))
}

func TestRegisterSendCode_Wait(t *testing.T) {
	_, url := newFakeAPI(t, map[string]reply{
		"/auth/register/send-code": {status: http.StatusOK, body: map[string]any{"ok": true, "cooldownSeconds": 1}},
	})

	out, err := run(t, "register", "send-code", "--api", url,
		"--email", "a@b.com", "--password", "secret123", "--confirm-password", "secret123", "--wait")
	require.NoError(t, err)
	assert.Contains(t, out, "ready to resend")
}

func TestRegisterSendCode_Cooldown(t *testing.T) {
	_, url := newFakeAPI(t, map[string]reply{
		"/auth/register/send-code": {status: http.StatusTooManyRequests, body: map[string]any{
			"ok": false, "error": "please wait before requesting another code", "retryAfterSeconds": 30,
		}},
	})

	out, err := run(t, "register", "send-code", "--api", url,
		"--email", "a@b.com", "--password", "secret123", "--confirm-password", "secret123", "--wait")
	require.EqualError(t, err, "please wait before requesting another code")
	assert.Contains(t, out, "resend available in 30s")
	assert.NotContains(t, out, "code sent")
}

func TestRegisterVerify(t *testing.T) {
	api, url := newFakeAPI(t, map[string]reply{
		"/auth/register/verify-code": {status: http.StatusOK, body: map[string]any{"ok": true}},
	})

	out, err := run(t, "register", "verify", "--api", url, "--email", "a@b.com", "--code", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Registration successful, please log in")
	assert.Equal(t, map[string]string{"email": "a@b.com", "code": "123456"}, api.request("/auth/register/verify-code"))
}

func TestForgot(t *testing.T) {
	api, url := newFakeAPI(t, map[string]reply{
		"/auth/forgot-password/send-code":   {status: http.StatusOK, body: map[string]any{"ok": true}},
		"/auth/forgot-password/verify-code": {status: http.StatusOK, body: map[string]any{"ok": true}},
	})

	out, err := run(t, "forgot", "send-code", "--api", url, "--email", "a@b.com", "--wait=false")
	require.NoError(t, err)
	assert.Contains(t, out, "a code is on its way")
	assert.Contains(t, out, "resend available in 60s")

	out, err = run(t, "forgot", "reset", "--api", url,
		"--email", "a@b.com", "--code", "654321", "--new-password", "n3w-pass", "--confirm-password", "n3w-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "Password has been reset, please log in")
	assert.Equal(t, "654321", api.request("/auth/forgot-password/verify-code")["code"])
}

func TestForgotReset_InvalidCode(t *testing.T) {
	_, url := newFakeAPI(t, map[string]reply{
		"/auth/forgot-password/verify-code": {status: http.StatusBadRequest, body: map[string]any{"ok": false, "error": "invalid or expired code"}},
	})

	_, err := run(t, "forgot", "reset", "--api", url,
		"--email", "a@b.com", "--code", "000000", "--new-password", "n3w-pass", "--confirm-password", "n3w-pass")
	require.EqualError(t, err, "invalid or expired code")
}
