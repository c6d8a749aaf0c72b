package smswatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
)

type stubPoller struct {
	mu      sync.Mutex
	pending []model.Activation
	listErr error
	pollErr map[string]error
	polled  []string
	started chan struct{}
	release chan struct{}
}

func (s *stubPoller) ListPending(_ context.Context, _ int) ([]model.Activation, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.pending, nil
}

func (s *stubPoller) Poll(_ context.Context, activation model.Activation, _ int) (model.Activation, error) {
	if s.started != nil {
		close(s.started)
		s.started = nil
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	s.polled = append(s.polled, activation.ID)
	s.mu.Unlock()

	if err, ok := s.pollErr[activation.ID]; ok {
		return model.Activation{}, err
	}
	return activation, nil
}

func pendingActivation(id string) model.Activation {
	return model.Activation{ID: id, Email: "user@example.com", Status: enums.ActivationStatusPending}
}

func TestRunPollsAllPending(t *testing.T) {
	poller := &stubPoller{pending: []model.Activation{
		pendingActivation("act-1"),
		pendingActivation("act-2"),
		pendingActivation("act-3"),
	}}
	job := New(poller, 60, 100, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(poller.polled) != 3 {
		t.Fatalf("expected 3 polls, got %d", len(poller.polled))
	}
}

func TestRunContinuesPastFailedPoll(t *testing.T) {
	poller := &stubPoller{
		pending: []model.Activation{
			pendingActivation("act-1"),
			pendingActivation("act-2"),
		},
		pollErr: map[string]error{"act-1": errors.New("provider down")},
	}
	job := New(poller, 60, 100, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(poller.polled) != 2 {
		t.Fatalf("one failed poll must not stop the sweep, got %d polls", len(poller.polled))
	}
}

func TestRunSkipsOverlappingSweep(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	poller := &stubPoller{
		pending: []model.Activation{pendingActivation("act-1")},
		started: started,
		release: release,
	}
	job := New(poller, 60, 100, nil)

	done := make(chan error, 1)
	go func() {
		done <- job.Run(context.Background())
	}()
	<-started

	// Second sweep while the first is blocked inside Poll.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("overlapping run: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}

	if len(poller.polled) != 1 {
		t.Fatalf("overlapping sweep must be skipped, got %d polls", len(poller.polled))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := &stubPoller{pending: []model.Activation{
		pendingActivation("act-1"),
		pendingActivation("act-2"),
	}}
	job := New(poller, 60, 100, nil)

	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(poller.polled) != 0 {
		t.Fatalf("cancelled sweep must not poll, got %d", len(poller.polled))
	}
}
