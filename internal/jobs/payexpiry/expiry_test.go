package payexpiry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubExpirer struct {
	expired int64
	err     error
	calls   int
	lastNow time.Time
}

func (s *stubExpirer) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	s.calls++
	s.lastNow = now
	return s.expired, s.err
}

func TestRunExpiresDueRequests(t *testing.T) {
	expirer := &stubExpirer{expired: 3}
	job := New(expirer, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected one expire call, got %d", expirer.calls)
	}
	if expirer.lastNow.IsZero() {
		t.Fatal("expected a concrete cutoff time")
	}
}

func TestRunPropagatesStoreError(t *testing.T) {
	expirer := &stubExpirer{err: errors.New("postgres down")}
	job := New(expirer, nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from store")
	}
}
