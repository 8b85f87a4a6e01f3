package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// IdleSweeper discards visits nobody has touched for a while
type IdleSweeper interface {
	SweepIdle(maxIdle time.Duration) int
}

// Sweeper runs the idle sweep on a cron schedule
type Sweeper struct {
	cron    *cron.Cron
	target  IdleSweeper
	maxIdle time.Duration
}

// NewSweeper schedules target's idle sweep, e.g. "@every 5m"
func NewSweeper(target IdleSweeper, schedule string, maxIdle time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(),
		target:  target,
		maxIdle: maxIdle,
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run sweeps once
func (s *Sweeper) Run() {
	if n := s.target.SweepIdle(s.maxIdle); n > 0 {
		log.Printf("[SWEEPER] Discarded %d idle views", n)
	}
}

// Start begins the schedule
func (s *Sweeper) Start() {
	s.cron.Start()
	log.Printf("[SWEEPER] Started, idle timeout %v", s.maxIdle)
}

// Stop halts the schedule and returns a context done when a running sweep finishes
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
