package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ProposalLens/internal/ports"
)

// CronScheduler fires jobs on a standard five-field cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	runFirst bool

	mu   sync.Mutex
	cron *cron.Cron

	// first tracks the run-first job, which cron itself does not see.
	first sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for spec in loc. With runFirst the job
// also fires once immediately on Start.
func NewCronScheduler(spec string, loc *time.Location, runFirst bool) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, location: loc, runFirst: runFirst}
}

// Start registers job and begins ticking. Calling Start twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(cron.WithLocation(c.location))
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}

	c.cron = cr
	cr.Start()
	if c.runFirst {
		c.first.Add(1)
		go func() {
			defer c.first.Done()
			job(time.Now().In(c.location))
		}()
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the cron loop and waits for running jobs, including the
// run-first job, or ctx, whichever comes first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		if cr != nil {
			<-cr.Stop().Done()
		}
		c.first.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
