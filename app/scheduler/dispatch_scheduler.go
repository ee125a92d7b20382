// Package scheduler
package scheduler

import (
	"context"
	"log"
	"time"

	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/amirphl/Yatagarasu/models"
)

// DispatchScheduler periodically runs a dispatch batch over every campaign
// inside its delivery window
type DispatchScheduler struct {
	dispatchFlow businessflow.DispatchFlow
	logger       *log.Logger
	interval     time.Duration
}

func NewDispatchScheduler(dispatchFlow businessflow.DispatchFlow, logger *log.Logger, interval time.Duration) *DispatchScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DispatchScheduler{
		dispatchFlow: dispatchFlow,
		logger:       logger,
		interval:     interval,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *DispatchScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *DispatchScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	summary, err := s.dispatchFlow.RunBatch(runCtx, businessflow.BatchOptions{
		Source: models.DispatchSourceScheduler,
	})
	if err != nil {
		s.logger.Printf("scheduler: batch run failed: %v", err)
		return
	}

	if summary.Total == 0 {
		return
	}
	s.logger.Printf("scheduler: batch done total=%d succeeded=%d failed=%d skipped=%d",
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped)
	for _, e := range summary.Errors {
		s.logger.Printf("scheduler: batch error: %s", e)
	}
}
