package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/abenezerz/chapa-shop/internal/redisx"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Caller is the identity attached to a request. The identity provider owns
// the session records; this service only reads them back by token.
type Caller struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Sessions struct {
	Redis *redis.Client
}

func (s *Sessions) Lookup(ctx context.Context, token string) (*Caller, error) {
	b, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeySession, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	var c Caller
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, ErrUnauthenticated
	}
	if c.ID == "" {
		return nil, ErrUnauthenticated
	}
	return &c, nil
}

// Middleware resolves the session token, if any, and attaches the caller to
// the request context. Endpoints that need a caller enforce it themselves.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFrom(r)
		if token != "" {
			if c, err := s.Lookup(r.Context(), token); err == nil {
				r = r.WithContext(WithCaller(r.Context(), c))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFrom reads the session token from the Authorization header or the
// session cookie, in that order.
func TokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("session"); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey struct{}

func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func CallerFrom(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Caller)
	return c, ok
}
