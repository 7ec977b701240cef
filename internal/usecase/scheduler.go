package usecase

import (
	"context"
	"sync"
	"time"

	"ProposalLens/internal/ports"
)

// CompletionHook runs after every scheduled activation stops.
type CompletionHook func(ctx context.Context, st *State)

// Scheduler wires the cron driver with pipeline re-activation.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	onDone   CompletionHook

	inFlight sync.WaitGroup
}

// NewScheduler returns a helper to start/stop recurring activations.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, onDone CompletionHook) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, onDone: onDone}
}

// Start registers the pipeline with the provided scheduler. A triggered run
// always completes; cancelling ctx only stops further ticks.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	runCtx := context.WithoutCancel(ctx)
	job := func(trigger time.Time) {
		s.inFlight.Add(1)
		defer s.inFlight.Done()

		st := NewState()
		s.pipeline.Run(runCtx, st)
		if s.onDone != nil {
			s.onDone(runCtx, st)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop tears down the underlying scheduler and waits for in-flight runs, or
// for ctx, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	if err := s.driver.Stop(ctx); err != nil {
		return err
	}

	idle := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
