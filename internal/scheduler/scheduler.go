package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is a unit of background work run on a cron schedule.
type Job interface {
	Name() string
	// Schedule is a cron spec or descriptor such as "@every 1m". Empty means
	// the job only runs on demand.
	Schedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Register adds a job and schedules it when it has a schedule.
func (s *Scheduler) Register(job Job) error {
	spec := job.Schedule()
	if spec != "" {
		_, err := s.cron.AddFunc(spec, func() {
			if err := job.Execute(context.Background()); err != nil {
				log.Error().Err(err).Str("job", job.Name()).Msg("scheduled job failed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
		}
		log.Debug().Str("job", job.Name()).Str("schedule", spec).Msg("job scheduled")
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Run executes a registered job immediately.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return job.Execute(ctx)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) Names() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

// Every returns the descriptor for a fixed interval, or "" when the interval
// disables the job.
func Every(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return "@every " + d.String()
}

// Func adapts a function into a Job.
type Func struct {
	JobName string
	Spec    string
	Fn      func(ctx context.Context) error
}

func (f Func) Name() string                      { return f.JobName }
func (f Func) Schedule() string                  { return f.Spec }
func (f Func) Execute(ctx context.Context) error { return f.Fn(ctx) }
