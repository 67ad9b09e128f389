package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mehmetcc/todox/internal/config"
	"github.com/mehmetcc/todox/internal/session"
	"github.com/mehmetcc/todox/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const loginPath = "/auth/login"

func newCodec(t *testing.T, secret string, opts ...token.Option) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(&config.JWTConfig{Secret: []byte(secret), TokenTTL: time.Hour}, opts...)
	require.NoError(t, err)
	return c
}

func issue(t *testing.T, c *token.Codec, userID string) string {
	t.Helper()
	res, err := c.Issue(token.Claims{UserID: userID})
	require.NoError(t, err)
	return res.Token
}

// gated wraps a handler that records whether it ran.
func gated(v Verifier) (http.Handler, *bool) {
	called := false
	h := RequireSession(v, loginPath, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	return h, &called
}

func assertDenied(t *testing.T, w *httptest.ResponseRecorder, called bool) {
	t.Helper()
	assert.False(t, called, "protected handler must not run")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, loginPath, w.Header().Get("Location"))
}

func TestRequireSessionDeniesWithoutCookieHeader(t *testing.T) {
	h, called := gated(newCodec(t, strings.Repeat("k", 32)))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assertDenied(t, w, *called)
}

func TestRequireSessionDeniesWithoutAuthenticationCookie(t *testing.T) {
	h, called := gated(newCodec(t, strings.Repeat("k", 32)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assertDenied(t, w, *called)
}

func TestRequireSessionDeniesInvalidTokens(t *testing.T) {
	codec := newCodec(t, strings.Repeat("k", 32))
	foreign := newCodec(t, strings.Repeat("z", 32))

	expiredAt := time.Now().Add(-2 * time.Hour)
	stale := newCodec(t, strings.Repeat("k", 32), token.WithClock(func() time.Time { return expiredAt }))

	valid := issue(t, codec, "42")
	cases := map[string]string{
		"garbage":      "garbage",
		"foreign key":  issue(t, foreign, "42"),
		"expired":      issue(t, stale, "42"),
		"truncated":    valid[:len(valid)-4],
		"extra suffix": valid + "AA",
	}

	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			h, called := gated(codec)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assertDenied(t, w, *called)
		})
	}
}

func TestRequireSessionForwardsRequestUnmodified(t *testing.T) {
	codec := newCodec(t, strings.Repeat("k", 32))
	tok := issue(t, codec, "42")

	var (
		seen     *http.Request
		seenBody string
	)
	h := RequireSession(codec, loginPath, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)

		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "42", claims.UserID)

		w.Header().Set("X-Handler", "index")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, "protected content")
	}))

	req := httptest.NewRequest(http.MethodPost, "/items?page=2", strings.NewReader("payload"))
	req.Header.Set("X-Custom", "value")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.NotNil(t, seen)
	assert.Equal(t, http.MethodPost, seen.Method)
	assert.Equal(t, "/items?page=2", seen.URL.String())
	assert.Equal(t, req.Header, seen.Header)
	assert.Equal(t, "payload", seenBody)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "index", w.Header().Get("X-Handler"))
	assert.Equal(t, "protected content", w.Body.String())
	assert.Empty(t, w.Header().Get("Location"))
}

func TestRequireSessionSetsHXRedirectForHtmx(t *testing.T) {
	h, called := gated(newCodec(t, strings.Repeat("k", 32)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assertDenied(t, w, *called)
	assert.Equal(t, loginPath, w.Header().Get("HX-Redirect"))
}

func TestClaimsFromContextEmpty(t *testing.T) {
	_, ok := ClaimsFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
