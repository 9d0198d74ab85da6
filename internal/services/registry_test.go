package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/shafran-auth/internal/clock"
)

const testPhone = "+998901234567"

func newTestRegistry() (*VerificationRegistry, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC))
	return NewVerificationRegistry(clk, time.Minute, 5), clk
}

func TestRegistryCooldown(t *testing.T) {
	t.Parallel()

	reg, clk := newTestRegistry()
	if !reg.CanSend(testPhone) {
		t.Fatal("expected send allowed with no record")
	}

	reg.Put(testPhone, PendingVerification{ExpiresAt: clk.Now().Add(5 * time.Minute)})
	if reg.CanSend(testPhone) {
		t.Fatal("expected cooldown right after put")
	}
	if got := reg.CooldownRemaining(testPhone); got != time.Minute {
		t.Fatalf("cooldown remaining = %v, want %v", got, time.Minute)
	}

	clk.Advance(time.Minute)
	if reg.CanSend(testPhone) {
		t.Fatal("expected cooldown at exactly 60s")
	}
	if got := reg.CooldownRemaining(testPhone); got != 0 {
		t.Fatalf("cooldown remaining = %v, want 0", got)
	}

	clk.Advance(time.Second)
	if !reg.CanSend(testPhone) {
		t.Fatal("expected send allowed after 61s")
	}
}

func TestRegistryPutResetsAttemptsAndStampsSendTime(t *testing.T) {
	t.Parallel()

	reg, clk := newTestRegistry()
	reg.Put(testPhone, PendingVerification{Attempts: 3, LastSentAt: time.Unix(0, 0), PendingName: "Ali"})

	rec, ok := reg.Get(testPhone)
	if !ok {
		t.Fatal("expected record")
	}
	if rec.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0", rec.Attempts)
	}
	if !rec.LastSentAt.Equal(clk.Now()) {
		t.Fatalf("last sent = %v, want %v", rec.LastSentAt, clk.Now())
	}
	if rec.PendingName != "Ali" {
		t.Fatalf("pending name = %q, want %q", rec.PendingName, "Ali")
	}
}

func TestRegistryRecordFailedAttemptExhausts(t *testing.T) {
	t.Parallel()

	reg, clk := newTestRegistry()
	reg.Put(testPhone, PendingVerification{ExpiresAt: clk.Now().Add(5 * time.Minute)})

	for want := 4; want >= 1; want-- {
		remaining, exhausted := reg.RecordFailedAttempt(testPhone)
		if exhausted {
			t.Fatalf("exhausted early with %d remaining expected", want)
		}
		if remaining != want {
			t.Fatalf("remaining = %d, want %d", remaining, want)
		}
	}

	remaining, exhausted := reg.RecordFailedAttempt(testPhone)
	if !exhausted || remaining != 0 {
		t.Fatalf("5th attempt = (%d, %v), want (0, true)", remaining, exhausted)
	}
	if _, ok := reg.Get(testPhone); ok {
		t.Fatal("expected record deleted after exhaustion")
	}
}

func TestRegistryRecordFailedAttemptOnMissingRecord(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry()
	if _, exhausted := reg.RecordFailedAttempt(testPhone); !exhausted {
		t.Fatal("expected missing record to count as exhausted")
	}
}

func TestRegistryGetReturnsExpiredRecord(t *testing.T) {
	t.Parallel()

	reg, clk := newTestRegistry()
	reg.Put(testPhone, PendingVerification{ExpiresAt: clk.Now().Add(5 * time.Minute)})
	clk.Advance(5*time.Minute + time.Second)

	rec, ok := reg.Get(testPhone)
	if !ok {
		t.Fatal("expected expired record to still be returned")
	}
	if !rec.Expired(clk.Now()) {
		t.Fatal("expected record to report expiry")
	}
}

func TestRegistrySweep(t *testing.T) {
	t.Parallel()

	reg, clk := newTestRegistry()
	reg.Put("+998900000001", PendingVerification{ExpiresAt: clk.Now().Add(time.Minute)})
	reg.Put("+998900000002", PendingVerification{ExpiresAt: clk.Now().Add(10 * time.Minute)})
	clk.Advance(2 * time.Minute)

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}
	if _, ok := reg.Get("+998900000002"); !ok {
		t.Fatal("expected live record to survive sweep")
	}
}

func TestRegistryRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRegistryLockSerializesPerPhone(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := reg.Lock(testPhone)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen)
	}
	reg.locksMu.Lock()
	leaked := len(reg.locks)
	reg.locksMu.Unlock()
	if leaked != 0 {
		t.Fatalf("%d phone locks left behind", leaked)
	}
}

func TestRegistryLockDoesNotBlockOtherPhones(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry()
	unlock := reg.Lock(testPhone)
	defer unlock()

	done := make(chan struct{})
	go func() {
		release := reg.Lock("+998900000009")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on another phone blocked")
	}
}
