package common

import (
	"context"
	"time"
)

// ConnectionState is the document store's reachability as seen by the current request.
type ConnectionState struct {
	Connected bool      `json:"connected"`
	CheckedAt time.Time `json:"checkedAt"`
	Err       error     `json:"-"`
}

// ContextWithConnectionState stores the per-request connection snapshot.
func ContextWithConnectionState(ctx context.Context, state ConnectionState) context.Context {
	return context.WithValue(ctx, connectionStateContextKey, state)
}

// ConnectionStateFromContext は未設定の場合 ok=false を返す。
func ConnectionStateFromContext(ctx context.Context) (ConnectionState, bool) {
	state, ok := ctx.Value(connectionStateContextKey).(ConnectionState)
	return state, ok
}
