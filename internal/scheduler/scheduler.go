// Package scheduler registers the periodic jobs on a cron runner and wraps
// each invocation in an explicit retry policy.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one periodic job descriptor: a stable id, a standard 5-field cron
// spec, and the handler to run on each tick.
type Job struct {
	ID   string
	Spec string
	Run  func(ctx context.Context) error
}

// RetryPolicy bounds re-invocations of a failed job. The first retry
// waits BaseDelay; each further retry doubles it.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Backoff returns the delay applied before retry number retry (1-based).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	return p.BaseDelay << (retry - 1)
}

// Scheduler runs registered jobs on their cron schedules. Ticks of the
// same job never overlap: while a run (including its retries) is still in
// flight, further activations of that job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	policy RetryPolicy
	log    *logrus.Logger
}

// New initializes a scheduler with the given retry policy
func New(policy RetryPolicy, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log)))),
		policy: policy,
		log:    log,
	}
}

// Register adds a job to the cron runner.
func (s *Scheduler) Register(job Job) error {
	_, err := s.cron.AddFunc(job.Spec, func() {
		if err := s.Execute(context.Background(), job); err != nil {
			s.log.Errorf("Job %s failed after %d attempts: %v", job.ID, s.policy.MaxAttempts, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.ID, err)
	}
	s.log.Infof("Registered job %s with schedule %q", job.ID, job.Spec)
	return nil
}

// Execute runs one job invocation under the retry policy, returning the
// last error when every attempt fails. Job handlers must tolerate being
// re-run from scratch.
func (s *Scheduler) Execute(ctx context.Context, job Job) error {
	var err error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if err = job.Run(ctx); err == nil {
			if attempt > 1 {
				s.log.Infof("Job %s succeeded on attempt %d", job.ID, attempt)
			}
			return nil
		}

		if attempt == s.policy.MaxAttempts {
			break
		}
		delay := s.policy.Backoff(attempt)
		s.log.Warnf("Job %s attempt %d failed, retrying in %s: %v", job.ID, attempt, delay, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
