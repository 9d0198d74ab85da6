package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shafran-auth/internal/clock"
)

// PendingVerification is a code that was sent to a phone and not yet used.
type PendingVerification struct {
	CodeHash    string
	ExpiresAt   time.Time
	Attempts    int
	LastSentAt  time.Time
	PendingName string
}

// Expired reports whether the code can no longer be matched at now.
func (p PendingVerification) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// VerificationRegistry holds at most one PendingVerification per phone.
//
// Every method is safe for concurrent use. Callers that need a
// read-check-write sequence to be atomic for one phone (send, confirm) hold
// Lock(phone) for the whole sequence; the map itself is guarded separately so
// slow provider calls never block other phones.
type VerificationRegistry struct {
	mu      sync.Mutex
	records map[string]PendingVerification

	locksMu sync.Mutex
	locks   map[string]*phoneLock

	clock       clock.Clocker
	cooldown    time.Duration
	maxAttempts int
}

type phoneLock struct {
	mu   sync.Mutex
	refs int
}

// NewVerificationRegistry builds an empty registry.
func NewVerificationRegistry(clk clock.Clocker, cooldown time.Duration, maxAttempts int) *VerificationRegistry {
	if clk == nil {
		clk = clock.New()
	}
	return &VerificationRegistry{
		records:     make(map[string]PendingVerification),
		locks:       make(map[string]*phoneLock),
		clock:       clk,
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
	}
}

// CanSend reports whether a new code may be sent to phone.
func (r *VerificationRegistry) CanSend(phone string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[phone]
	if !ok {
		return true
	}
	return r.clock.Now().Sub(rec.LastSentAt) > r.cooldown
}

// CooldownRemaining returns how long until CanSend turns true, zero when it already is.
func (r *VerificationRegistry) CooldownRemaining(phone string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[phone]
	if !ok {
		return 0
	}
	remaining := r.cooldown - r.clock.Now().Sub(rec.LastSentAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Put stores rec for phone, replacing any previous record, and starts the
// cooldown clock.
func (r *VerificationRegistry) Put(phone string, rec PendingVerification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.LastSentAt = r.clock.Now()
	rec.Attempts = 0
	r.records[phone] = rec
}

// Get returns the record for phone. Expired records are returned as-is so
// the caller can tell expiry from absence; the caller deletes them.
func (r *VerificationRegistry) Get(phone string) (PendingVerification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[phone]
	return rec, ok
}

// RecordFailedAttempt counts a wrong code. Once the cap is reached the record
// is removed and exhausted is true. A missing record counts as exhausted.
func (r *VerificationRegistry) RecordFailedAttempt(phone string) (remaining int, exhausted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[phone]
	if !ok {
		return 0, true
	}

	rec.Attempts++
	if rec.Attempts >= r.maxAttempts {
		delete(r.records, phone)
		return 0, true
	}
	r.records[phone] = rec
	return r.maxAttempts - rec.Attempts, false
}

// Delete removes the record for phone, if any.
func (r *VerificationRegistry) Delete(phone string) {
	r.mu.Lock()
	delete(r.records, phone)
	r.mu.Unlock()
}

// Len returns the number of stored records, expired ones included.
func (r *VerificationRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Lock serializes flows for one phone. The returned func releases it.
func (r *VerificationRegistry) Lock(phone string) (unlock func()) {
	r.locksMu.Lock()
	l, ok := r.locks[phone]
	if !ok {
		l = &phoneLock{}
		r.locks[phone] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		r.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, phone)
		}
		r.locksMu.Unlock()
	}
}

// Sweep drops every expired record and returns how many were removed.
func (r *VerificationRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for phone, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, phone)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *VerificationRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Debug("swept expired verification codes", "count", n)
			}
		}
	}
}
