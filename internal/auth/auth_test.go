package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFrom(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer tok-123")
	assert.Equal(t, "tok-123", TokenFrom(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-tok"})
	assert.Equal(t, "cookie-tok", TokenFrom(r))

	// the header wins over the cookie
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-tok")
	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-tok"})
	assert.Equal(t, "header-tok", TokenFrom(r))

	// non-bearer schemes are ignored
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, TokenFrom(r))
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	assert.False(t, ok)

	c := &Caller{ID: "user-1", Email: "u@example.com", Role: RoleUser}
	ctx := WithCaller(context.Background(), c)
	got, ok := CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, RoleUser, got.Role)
}
