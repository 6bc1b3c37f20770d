//go:generate go run go.uber.org/mock/mockgen -source=gate.go -destination=../mocks/mock_gate.go -package=mocks
package auth

import (
	"context"

	"portal-dm/errors"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// ISessionGate is the core's view of the portal's auth system. The core
// consults it before every store operation and never owns credentials or
// membership rules itself.
type ISessionGate interface {
	// CurrentUser resolves the acting identity, errors.ErrUnauthorized if none.
	CurrentUser(ctx context.Context) (string, error)
	// CanMessage is the opaque messaging-eligibility policy.
	CanMessage(actor, target string) bool
}

// Policy decides whether actor may message target, e.g. same-company rules.
type Policy func(actor, target string) bool

// TokenGate resolves identities from context values injected by the host
// application's middleware after JWT validation. A nil policy means
// default-allow: the portal has no messaging restrictions configured.
type TokenGate struct {
	policy Policy
}

func NewTokenGate(policy Policy) *TokenGate {
	return &TokenGate{policy: policy}
}

func (g *TokenGate) CurrentUser(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		return "", errors.ErrUnauthorized
	}
	return userID, nil
}

func (g *TokenGate) CanMessage(actor, target string) bool {
	if g.policy == nil {
		return true
	}
	return g.policy(actor, target)
}

// ContextWithUser injects an already-authenticated identity, used by
// middleware and tests.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// ContextWithToken validates a raw bearer token and injects its identity.
// The usual entry point for transport middleware.
func ContextWithToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims, err := ValidateToken(tokenString)
	if err != nil {
		return ctx, errors.ErrInvalidToken
	}
	newCtx := context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(newCtx, RolesKey, claims.Roles), nil
}
