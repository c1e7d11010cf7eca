package session

import "sync"

// LiveConnections is the process-global account_id → cancel-signal map the
// supervisor uses to enforce single-session-per-account (spec §4.7 step
// 2). Firing a prior signal evicts the connection that owns it.
type LiveConnections struct {
	mu      sync.Mutex
	signals map[int64]chan struct{}
}

// NewLiveConnections returns an empty map.
func NewLiveConnections() *LiveConnections {
	return &LiveConnections{signals: make(map[int64]chan struct{})}
}

// Register installs a fresh cancel-signal for accountID, firing (closing)
// any signal already registered for it. The returned channel closes when
// this connection is itself evicted by a later Register call.
func (lc *LiveConnections) Register(accountID int64) chan struct{} {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if old, ok := lc.signals[accountID]; ok {
		close(old)
	}
	ch := make(chan struct{})
	lc.signals[accountID] = ch
	return ch
}

// Clear removes accountID's entry, but only if it still points at ch —
// i.e. only if this connection was not itself already evicted by a
// replacement (spec §4.7 step 5: "only if the cancel-signal still points
// to this connection").
func (lc *LiveConnections) Clear(accountID int64, ch chan struct{}) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if cur, ok := lc.signals[accountID]; ok && cur == ch {
		delete(lc.signals, accountID)
	}
}
