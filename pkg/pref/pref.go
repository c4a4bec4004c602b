// Package pref holds per-visitor preferences and persists them.
//
// A Pref lives on the page loop. Its value comes from two sides: the
// browser's local storage (reported in the websocket hello) and a
// server-side Store keyed by visitor. Conflicts between the value held and
// an incoming one are resolved by a MergeStrategy, last write wins by default.
//
// Example:
//
//	theme := pref.New("theme", "light")
//	if err := pref.Load(ctx, store, "01J.../theme", theme); err != nil { ... }
//	theme.Set("dark")
package pref

import (
	"encoding/json"
	"sync"
	"time"
)

// MergeStrategy decides between the value a Pref holds and one passed to
// SetFromRemote.
type MergeStrategy int

const (
	// LWW keeps whichever value was written last.
	LWW MergeStrategy = iota

	// RemoteWins always takes the incoming value.
	RemoteWins

	// LocalWins keeps the held value once it has been written. A Pref still
	// at its default takes the incoming value.
	LocalWins
)

// Option configures a preference.
type Option func(*config)

type config struct {
	mergeStrategy MergeStrategy
}

// MergeWith sets the merge strategy for conflict resolution.
func MergeWith(strategy MergeStrategy) Option {
	return func(c *config) {
		c.mergeStrategy = strategy
	}
}

// PersistFunc receives every local change.
type PersistFunc[T any] func(key string, value T, updatedAt time.Time)

// Pref represents a user preference with sync capabilities.
type Pref[T any] struct {
	key       string
	value     T
	defaults  T
	updatedAt time.Time
	config    config

	mu sync.RWMutex

	persistLocal PersistFunc[T]
	persistStore PersistFunc[T]
}

// New creates a new preference with the given key and default value.
// The default carries a zero timestamp so any recorded value wins over it.
func New[T any](key string, defaultValue T, opts ...Option) *Pref[T] {
	c := config{mergeStrategy: LWW}
	for _, opt := range opts {
		opt(&c)
	}

	return &Pref[T]{
		key:      key,
		value:    defaultValue,
		defaults: defaultValue,
		config:   c,
	}
}

// Get returns the current preference value.
func (p *Pref[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set updates the preference value and runs the persist handlers.
func (p *Pref[T]) Set(value T) {
	p.mu.Lock()
	p.value = value
	p.updatedAt = time.Now()
	updatedAt := p.updatedAt
	local, store := p.persistLocal, p.persistStore
	p.mu.Unlock()

	if local != nil {
		local(p.key, value, updatedAt)
	}
	if store != nil {
		store(p.key, value, updatedAt)
	}
}

// Reset resets the preference to its default value.
func (p *Pref[T]) Reset() {
	p.Set(p.defaults)
}

// Key returns the preference key.
func (p *Pref[T]) Key() string {
	return p.key
}

// UpdatedAt returns when the preference was last updated.
func (p *Pref[T]) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// SetFromRemote merges a value from the other side (browser or store)
// using the configured strategy. It reports whether the value changed.
// Persist handlers are not called.
func (p *Pref[T]) SetFromRemote(value T, remoteUpdatedAt time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	resolvedT := p.resolveConflict(p.value, value, p.updatedAt, remoteUpdatedAt)
	before, _ := json.Marshal(p.value)
	after, _ := json.Marshal(resolvedT)
	p.value = resolvedT
	if remoteUpdatedAt.After(p.updatedAt) {
		p.updatedAt = remoteUpdatedAt
	}
	return string(before) != string(after)
}

// resolveConflict applies the merge strategy.
func (p *Pref[T]) resolveConflict(local, remote T, localTime, remoteTime time.Time) T {
	switch p.config.mergeStrategy {
	case RemoteWins:
		return remote
	case LocalWins:
		if localTime.IsZero() {
			return remote
		}
		return local
	default:
		if remoteTime.After(localTime) {
			return remote
		}
		return local
	}
}

// SetPersistHandlers sets the handlers run by Set. local writes to the
// browser; store writes to the server-side Store.
func (p *Pref[T]) SetPersistHandlers(local, store PersistFunc[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.persistLocal = local
	p.persistStore = store
}

// Record returns the value as a store record.
func (p *Pref[T]) Record() (Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	raw, err := json.Marshal(p.value)
	if err != nil {
		return Record{}, err
	}
	return Record{Value: raw, UpdatedAt: p.updatedAt}, nil
}

// MarshalJSON implements json.Marshaler.
func (p *Pref[T]) MarshalJSON() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return json.Marshal(struct {
		Key       string    `json:"key"`
		Value     T         `json:"value"`
		UpdatedAt time.Time `json:"updated_at"`
	}{
		Key:       p.key,
		Value:     p.value,
		UpdatedAt: p.updatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pref[T]) UnmarshalJSON(data []byte) error {
	var temp struct {
		Key       string    `json:"key"`
		Value     T         `json:"value"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.key = temp.Key
	p.value = temp.Value
	p.updatedAt = temp.UpdatedAt
	return nil
}
