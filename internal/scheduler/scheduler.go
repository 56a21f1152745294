// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// EntryInfo describes one registered job
type EntryInfo struct {
	Next     time.Time `json:"next_run"`
	Prev     time.Time `json:"prev_run"`
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
}

type registration struct {
	job      Job
	schedule string
	id       cron.EntryID
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	mu   sync.RWMutex
	jobs map[string]registration
}

// New creates a new scheduler. Schedules accept an optional seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		log:  log.With().Str("component", "scheduler").Logger(),
		jobs: make(map[string]registration),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 3 * * *"        - Daily at 03:00
//   - "@every 15s"         - Every 15 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s is already registered", job.Name())
	}

	id, err := s.cron.AddFunc(schedule, func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	s.jobs[job.Name()] = registration{job: job, schedule: schedule, id: id}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a registered job immediately (outside schedule)
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	reg, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s is not registered", name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.execute(reg.job)
}

// Entries lists registered jobs sorted by name
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EntryInfo, 0, len(s.jobs))
	for name, reg := range s.jobs {
		entry := s.cron.Entry(reg.id)
		out = append(out, EntryInfo{
			Next:     entry.Next,
			Prev:     entry.Prev,
			Name:     name,
			Schedule: reg.schedule,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// execute runs job, turning a panic into an error so the next tick still runs
func (s *Scheduler) execute(job Job) (err error) {
	start := time.Now()
	log := s.log.With().Str("job", job.Name()).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Job failed")
			return
		}
		log.Debug().Dur("duration", time.Since(start)).Msg("Job completed")
	}()

	log.Debug().Msg("Running job")
	return job.Run()
}
