package intervention

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// SUPPRESSION TRACKER
// =============================================================================
// Fatigue management: repeated dismissals of the same intervention open a
// time-boxed suppression window; acting on the intervention clears it.
// This is a fixed cooldown, not a decaying fatigue score.

// Action is a user response to a surfaced intervention.
type Action string

const (
	ActionDismiss  Action = "dismiss"
	ActionSkip     Action = "skip"
	ActionAct      Action = "act"
	ActionOverride Action = "override"
)

// Valid reports whether a is a known response action.
func (a Action) Valid() bool {
	switch a {
	case ActionDismiss, ActionSkip, ActionAct, ActionOverride:
		return true
	}
	return false
}

// State is the per-(user, intervention) suppression record.
type State struct {
	Dismissals      int           `json:"dismissals"`
	LastDismissedAt time.Time     `json:"last_dismissed_at,omitempty"`
	ActedCount      int           `json:"acted_count"`
	ExposureTotal   time.Duration `json:"exposure_total"`
	CreatedAt       time.Time     `json:"created_at"`
	SuppressedUntil time.Time     `json:"suppressed_until,omitempty"`
}

// Suppressed reports whether a suppression window is open at the given time.
func (s State) Suppressed(now time.Time) bool {
	return !s.SuppressedUntil.IsZero() && now.Before(s.SuppressedUntil)
}

// Store persists suppression state per (userID, interventionID). Update
// must apply fn atomically so concurrent sessions of the same user cannot
// interleave read-modify-write cycles.
type Store interface {
	Get(userID, mrID string) (State, bool, error)
	Update(userID, mrID string, fn func(State) State) (State, error)
	Close() error
}

// TrackerConfig holds the suppression knobs.
type TrackerConfig struct {
	DismissalThreshold int           `yaml:"dismissal_threshold" json:"dismissal_threshold"`
	Window             time.Duration `yaml:"window" json:"window"`
}

// DefaultTrackerConfig returns the standard 3-dismissal, 30-minute policy.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{DismissalThreshold: 3, Window: 30 * time.Minute}
}

// Validate checks the tracker knobs at load time.
func (c TrackerConfig) Validate() error {
	if c.DismissalThreshold <= 0 {
		return fmt.Errorf("dismissal_threshold must be positive, got %d", c.DismissalThreshold)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	return nil
}

// Tracker applies the suppression state machine on top of a Store.
// The store is injected so tests get a fresh instance per case and
// deployments can choose memory or SQLite persistence.
type Tracker struct {
	cfg    TrackerConfig
	store  Store
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewTracker builds a tracker over the given store.
func NewTracker(cfg TrackerConfig, store Store, logger *zap.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{cfg: cfg, store: store, logger: logger, nowFn: time.Now}, nil
}

// Suppressed reports whether the intervention is currently ineligible for
// the user. A lookup miss means "not suppressed".
func (t *Tracker) Suppressed(userID, mrID string) bool {
	st, ok, err := t.store.Get(userID, mrID)
	if err != nil {
		// Store errors count as "not suppressed".
		t.logger.Warn("suppression lookup failed",
			zap.String("user", userID), zap.String("mr", mrID), zap.Error(err))
		return false
	}
	return ok && st.Suppressed(t.nowFn())
}

// RecordResponse applies one user response to the suppression state.
//
// dismiss/skip increments the dismissal count and opens the suppression
// window when the threshold is reached. act/override resets dismissals to
// zero and clears any open window immediately.
func (t *Tracker) RecordResponse(userID, mrID string, action Action, exposure time.Duration) (State, error) {
	if !action.Valid() {
		return State{}, fmt.Errorf("unknown action %q", action)
	}
	now := t.nowFn()
	st, err := t.store.Update(userID, mrID, func(st State) State {
		if st.CreatedAt.IsZero() {
			st.CreatedAt = now
		}
		if exposure > 0 {
			st.ExposureTotal += exposure
		}
		switch action {
		case ActionDismiss, ActionSkip:
			st.Dismissals++
			st.LastDismissedAt = now
			if st.Dismissals >= t.cfg.DismissalThreshold {
				st.SuppressedUntil = now.Add(t.cfg.Window)
			}
		case ActionAct, ActionOverride:
			st.ActedCount++
			st.Dismissals = 0
			st.SuppressedUntil = time.Time{}
		}
		return st
	})
	if err != nil {
		return State{}, fmt.Errorf("record response: %w", err)
	}
	t.logger.Debug("intervention response recorded",
		zap.String("user", userID),
		zap.String("mr", mrID),
		zap.String("action", string(action)),
		zap.Int("dismissals", st.Dismissals),
		zap.Time("suppressed_until", st.SuppressedUntil))
	return st, nil
}

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

type stateKey struct {
	userID string
	mrID   string
}

// MemoryStore is a process-local Store for single-session use and tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[stateKey]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[stateKey]State)}
}

// Get returns the state for a key and whether it exists.
func (m *MemoryStore) Get(userID, mrID string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[stateKey{userID, mrID}]
	return st, ok, nil
}

// Update applies fn atomically under the store lock.
func (m *MemoryStore) Update(userID, mrID string, fn func(State) State) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := stateKey{userID, mrID}
	st := fn(m.states[k])
	m.states[k] = st
	return st, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }
