package common

import (
	"context"
	"strings"
)

// SessionCookieName is the HttpOnly cookie carrying the signed access token.
const SessionCookieName = "wanderlust_session"

type contextKey string

const (
	authUserContextKey        contextKey = "authUser"
	connectionStateContextKey contextKey = "connectionState"
)

// AuthenticatedUser represents the JWT-derived principal.
type AuthenticatedUser struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// ContextWithUser stores the authenticated user into context.
func ContextWithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, authUserContextKey, user)
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(authUserContextKey).(AuthenticatedUser)
	return user, ok
}

// ActorID は認証済みユーザーの ID を返す。未認証なら空文字。
func ActorID(ctx context.Context) string {
	user, ok := UserFromContext(ctx)
	if !ok {
		return ""
	}
	return strings.TrimSpace(user.ID)
}
