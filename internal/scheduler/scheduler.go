// Package scheduler repeats scans on cron schedules. Jobs live in memory for
// the lifetime of the process; a job never overlaps with its own previous
// run.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/netsweep/internal/logging"
)

// RunFunc executes one run of a job.
type RunFunc func(ctx context.Context) error

// Job is a snapshot of a scheduled job.
type Job struct {
	ID       uuid.UUID
	Name     string
	Schedule string
	LastRun  time.Time
	NextRun  time.Time
	Runs     int
	Skipped  int
	LastErr  error
	Running  bool

	cronID cron.EntryID
	run    RunFunc
}

// Scheduler manages watch jobs.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[uuid.UUID]*Job
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *logging.Logger
	wg      sync.WaitGroup
}

// New creates a scheduler. Schedules use the standard five-field cron
// syntax plus descriptors such as "@every 15m".
func New(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		jobs:   make(map[uuid.UUID]*Job),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.WithComponent("scheduler"),
	}
}

// ValidateSchedule checks a cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Add registers a job and returns its ID.
func (s *Scheduler) Add(name, expr string, run RunFunc) (uuid.UUID, error) {
	if err := ValidateSchedule(expr); err != nil {
		return uuid.Nil, err
	}

	job := &Job{ID: uuid.New(), Name: name, Schedule: expr, run: run}

	s.mu.Lock()
	defer s.mu.Unlock()

	cronID, err := s.cron.AddFunc(expr, func() { s.execute(job.ID) })
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add job to cron: %w", err)
	}
	job.cronID = cronID
	s.jobs[job.ID] = job

	s.logger.Info("job scheduled", "job", name, "schedule", expr)
	return job.ID, nil
}

// Remove unschedules a job. A run in progress is not interrupted.
func (s *Scheduler) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	s.cron.Remove(job.cronID)
	delete(s.jobs, id)
	return nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops firing jobs, cancels the context of running jobs and waits for
// them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Jobs returns snapshots of all jobs sorted by name.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		snap := *j
		if entry := s.cron.Entry(j.cronID); entry.Valid() {
			snap.NextRun = entry.Next
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// RunNow executes a job immediately on the calling goroutine, subject to the
// same overlap rule as scheduled runs.
func (s *Scheduler) RunNow(id uuid.UUID) error {
	s.mu.RLock()
	_, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	s.execute(id)
	return nil
}

func (s *Scheduler) execute(id uuid.UUID) {
	job, ok := s.prepare(id)
	if !ok {
		return
	}
	defer s.wg.Done()

	start := time.Now()
	err := job.run(s.ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	job.Running = false
	job.Runs++
	job.LastErr = err
	s.mu.Unlock()

	log := s.logger.WithFields("job", job.Name, "duration", elapsed.Round(time.Millisecond))
	if err != nil {
		log.WithError(err).Error("job run failed")
		return
	}
	log.Info("job run completed")
}

func (s *Scheduler) prepare(id uuid.UUID) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	if s.ctx.Err() != nil {
		return nil, false
	}
	if job.Running {
		job.Skipped++
		s.logger.Warn("previous run still in progress, skipping", "job", job.Name)
		return nil, false
	}
	job.Running = true
	job.LastRun = time.Now()
	s.wg.Add(1)
	return job, true
}
