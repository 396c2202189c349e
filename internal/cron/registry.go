package cron

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduledJob struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds the worker's jobs and when each last ran. A job registered
// without a period runs on every tick.
type Registry struct {
	mu      sync.Mutex
	entries []*scheduledJob
}

// NewRegistry registers jobs that run on every tick. Nil jobs are skipped.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		// Duplicate names at construction are a wiring bug in main.
		if err := registry.Register(job, 0); err != nil {
			panic(err)
		}
	}
	return registry
}

// Register adds job with a minimum period between runs. Names must be
// unique since they label metrics and logs.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("cron job is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.job.Name() == job.Name() {
			return fmt.Errorf("cron job %q already registered", job.Name())
		}
	}
	if every < 0 {
		every = 0
	}
	r.entries = append(r.entries, &scheduledJob{job: job, every: every})
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// Due returns the jobs whose period has elapsed at now and records now as
// their last run.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, e := range r.entries {
		if !e.lastRun.IsZero() && now.Sub(e.lastRun) < e.every {
			continue
		}
		e.lastRun = now
		due = append(due, e.job)
	}
	return due
}
