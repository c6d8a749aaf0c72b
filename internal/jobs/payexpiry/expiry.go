package payexpiry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type RequestExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// Job closes crypto invoices whose payment window lapsed without a webhook.
type Job struct {
	requests RequestExpirer
	now      func() time.Time
	logger   *zap.Logger
}

func New(requests RequestExpirer, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		requests: requests,
		now:      time.Now,
		logger:   logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.requests == nil {
		return nil
	}

	expired, err := j.requests.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire due payment requests: %w", err)
	}
	if expired > 0 {
		j.logger.Info("payment requests expired", zap.Int64("count", expired))
	}
	return nil
}
