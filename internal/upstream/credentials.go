package upstream

import (
	"context"
	"strings"
)

// CredentialProvider supplies the bearer token for outbound calls.
type CredentialProvider interface {
	Token(ctx context.Context) (string, bool)
}

type tokenKey struct{}

// WithToken attaches a caller's bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

// RequestCredentials prefers the token carried by the request context and falls
// back to a statically configured one.
type RequestCredentials struct {
	Static string
}

func (c RequestCredentials) Token(ctx context.Context) (string, bool) {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok && tok != "" {
		return tok, true
	}
	if c.Static != "" {
		return c.Static, true
	}
	return "", false
}
