package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc executes one complete pipeline run.
type RunFunc func(ctx context.Context) error

// Scheduler triggers the scrape pipeline on a fixed cadence. Runs are
// strictly sequential: a run that overshoots the period delays the next
// tick instead of overlapping it, and every tick still gets its attempt.
// A failed or panicking run is logged and the loop keeps going.
type Scheduler struct {
	cron *cron.Cron
	run  RunFunc
	ctx  context.Context
}

// New creates a Scheduler driving the given run function.
func New(ctx context.Context, run RunFunc) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.DelayIfStillRunning(logger),
		)),
		run: run,
		ctx: ctx,
	}
}

// Register schedules the recurring run at the given interval.
func (s *Scheduler) Register(interval time.Duration) error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.tick); err != nil {
		return fmt.Errorf("register scrape task: %w", err)
	}
	return nil
}

// Start starts the recurring schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes a single run synchronously, outside the schedule.
// Used for RUN_ON_START and for exercising the pipeline in tests.
func (s *Scheduler) RunNow() error {
	return s.run(s.ctx)
}

// tick is one scheduled attempt. Failures are contained here: the
// cadence never changes and the process never exits because a run went
// bad.
func (s *Scheduler) tick() {
	if err := s.run(s.ctx); err != nil {
		log.Printf("[ERROR] scrape run: %v", err)
	}
}
