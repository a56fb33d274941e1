// Package auth resolves bearer tokens to caller identities.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing authorization token")
	// ErrInvalidToken means the token did not resolve to a user.
	ErrInvalidToken = errors.New("invalid authorization token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
}

// Authenticator maps a bearer token to an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

type tokenEntry struct {
	token  []byte
	userID string
}

// StaticTokens authenticates against a fixed token list loaded from config.
type StaticTokens struct {
	entries []tokenEntry
}

var _ Authenticator = (*StaticTokens)(nil)

// NewStaticTokens builds an authenticator from token -> user id pairs.
func NewStaticTokens(tokens map[string]string) *StaticTokens {
	s := &StaticTokens{entries: make([]tokenEntry, 0, len(tokens))}
	for tok, user := range tokens {
		s.entries = append(s.entries, tokenEntry{token: []byte(tok), userID: user})
	}
	return s
}

// ParseTokens parses "token:user" pairs as they appear in AUTH_TOKENS.
func ParseTokens(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tok, user, ok := strings.Cut(p, ":")
		tok, user = strings.TrimSpace(tok), strings.TrimSpace(user)
		if !ok || tok == "" || user == "" {
			return nil, fmt.Errorf("auth token entry %q: want token:user", p)
		}
		out[tok] = user
	}
	return out, nil
}

// Authenticate compares token against every configured entry in constant
// time, so timing does not reveal which entry (if any) matched.
func (s *StaticTokens) Authenticate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	var userID string
	matched := 0
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare([]byte(token), e.token) == 1 {
			userID = e.userID
			matched = 1
		}
	}
	if matched == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID}, nil
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
