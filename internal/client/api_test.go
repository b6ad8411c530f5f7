package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_SendsJSON(t *testing.T) {
	var gotPath, gotType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true,"cooldownSeconds":30}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL+"/").Post(context.Background(), "/auth/register/send-code", map[string]string{"email": "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, "/auth/register/send-code", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "a@b.com", gotBody["email"])

	assert.True(t, res.OK)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 30, res.Data.Int("cooldownSeconds"))
}

func TestPost_StatusAndBody(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		ok     bool
		data   Body
	}{
		{"created", http.StatusCreated, `{"ok":true}`, true, Body{"ok": true}},
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid credentials"}`, false, Body{"error": "invalid credentials"}},
		{"empty body", http.StatusInternalServerError, ``, false, Body{}},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, false, Body{}},
		{"array body", http.StatusOK, `[1,2,3]`, true, Body{}},
		{"null body", http.StatusOK, `null`, true, Body{}},
		{"truncated", http.StatusOK, `{"ok":tr`, true, Body{}},
		{"redirect range", 304, ``, false, Body{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			res, err := New(srv.URL).Post(context.Background(), "/x", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, res.OK)
			assert.Equal(t, tt.status, res.Status)
			require.NotNil(t, res.Data)
			assert.Equal(t, tt.data, res.Data)
		})
	}
}

func TestPost_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Post(context.Background(), "/auth/login", nil)
	assert.Error(t, err)
}

func TestPost_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL).Post(ctx, "/auth/login", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPost_KeepsCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			http.SetCookie(w, &http.Cookie{Name: "auth", Value: "s1", Path: "/"})
			return
		}
		c, err := r.Cookie("auth")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"session": c.Value})
	}))
	defer srv.Close()

	shared := srv.Client()
	c := New(srv.URL, WithUserAgent("test"), WithHTTPClient(shared))
	other := New(srv.URL, WithHTTPClient(shared))

	_, err := c.Post(context.Background(), "/auth/login", nil)
	require.NoError(t, err)

	res, err := c.Post(context.Background(), "/auth/me", nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "s1", res.Data.String("session"))

	res, err = other.Post(context.Background(), "/auth/me", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.Status, "clients sharing a transport keep separate cookies")
	assert.Nil(t, shared.Jar)
}

func TestPost_ForwardsClientIP(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get(ForwardedForHeader))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Post(WithClientIP(context.Background(), "203.0.113.7"), "/auth/login", nil)
	require.NoError(t, err)
	_, err = c.Post(context.Background(), "/auth/login", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"203.0.113.7", ""}, got)
}

func TestBody_Lenient(t *testing.T) {
	b := Body{"error": "boom", "retryAfterSeconds": 12.9, "wrong": true}

	assert.Equal(t, "boom", b.String("error"))
	assert.Equal(t, "", b.String("missing"))
	assert.Equal(t, "", b.String("retryAfterSeconds"))
	assert.Equal(t, 12, b.Int("retryAfterSeconds"))
	assert.Equal(t, 0, b.Int("wrong"))
	assert.Equal(t, 0, b.Int("missing"))
}
