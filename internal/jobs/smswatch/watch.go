package smswatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
)

const defaultBatchSize = 100

type PendingPoller interface {
	ListPending(ctx context.Context, limit int) ([]model.Activation, error)
	Poll(ctx context.Context, activation model.Activation, maxAttempts int) (model.Activation, error)
}

// Job sweeps pending activations against the number provider. One sweep at a
// time: if a sweep is still running when the next tick fires, the tick is
// skipped instead of stacking provider calls.
type Job struct {
	poller      PendingPoller
	maxAttempts int
	batchSize   int
	logger      *zap.Logger
	running     atomic.Bool
}

func New(poller PendingPoller, maxAttempts, batchSize int, logger *zap.Logger) *Job {
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		poller:      poller,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		logger:      logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.poller == nil {
		return nil
	}
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Debug("sms sweep still running, tick skipped")
		return nil
	}
	defer j.running.Store(false)

	pending, err := j.poller.ListPending(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list pending activations: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	polled := 0
	for _, activation := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := j.poller.Poll(ctx, activation, j.maxAttempts); err != nil {
			j.logger.Warn("poll activation failed",
				zap.String("activation_id", activation.ID),
				zap.Error(err))
			continue
		}
		polled++
	}

	j.logger.Debug("sms sweep completed",
		zap.Int("pending", len(pending)),
		zap.Int("polled", polled))
	return nil
}
