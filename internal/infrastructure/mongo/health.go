package mongo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectionState is a snapshot of the document store's reachability.
type ConnectionState struct {
	Connected bool
	CheckedAt time.Time
	Err       error
}

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// HealthChecker pings the store and memoises the result for ttl.
// リクエストごとに ping しないよう、直近の結果を使い回す。
type HealthChecker struct {
	pinger  Pinger
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last ConnectionState
}

// NewHealthChecker creates a checker for the given client.
func NewHealthChecker(pinger Pinger, ttl time.Duration) *HealthChecker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &HealthChecker{pinger: pinger, ttl: ttl, timeout: 2 * time.Second, now: time.Now}
}

// Check returns the memoised state, pinging again once it is older than ttl.
func (h *HealthChecker) Check(ctx context.Context) ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if !h.last.CheckedAt.IsZero() && now.Sub(h.last.CheckedAt) < h.ttl {
		return h.last
	}

	// 呼び出し元のキャンセルで接続断と記録しないよう、期限だけを独自に付ける。
	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()
	err := h.pinger.Ping(pingCtx, readpref.Primary())
	h.last = ConnectionState{Connected: err == nil, CheckedAt: now, Err: err}
	return h.last
}

var _ Pinger = (*mongo.Client)(nil)
