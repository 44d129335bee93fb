package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Warmer precomputes per-user state ahead of the morning rush.
// *coach.Service satisfies it.
type Warmer interface {
	Warmup(ctx context.Context) (int, error)
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	scheduler gocron.Scheduler
	warmer    Warmer
	hour      uint
}

// Config holds scheduler configuration
type Config struct {
	Location   *time.Location
	WarmupHour int
}

// New creates a new scheduler
func New(w Warmer, cfg Config) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		warmer:    w,
		hour:      uint(cfg.WarmupHour),
	}, nil
}

// Start registers all jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	// Daily pattern-profile warmup
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(s.hour, 0, 0))),
		gocron.NewTask(s.warmup),
		gocron.WithName("profile-warmup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	log.Info().Uint("warmup_hour", s.hour).Msg("Scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// Jobs reports the registered job names.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) warmup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := s.warmer.Warmup(ctx)
	if err != nil {
		log.Error().Err(err).Int("users", n).Msg("profile warmup failed")
		return
	}
	log.Info().Int("users", n).Dur("took", time.Since(start)).Msg("profile warmup done")
}
