package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically resets conversations that have been idle for too
// long, so a forgotten session does not feed stale context into the next
// question.
type Sweeper struct {
	cron      *cron.Cron
	sweepFunc func(maxIdle time.Duration)
	maxIdle   time.Duration
}

func New(maxIdle time.Duration, sweepFunc func(maxIdle time.Duration)) *Sweeper {
	return &Sweeper{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		sweepFunc: sweepFunc,
		maxIdle:   maxIdle,
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("*/5 * * * *", func() {
		s.sweepFunc(s.maxIdle)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("idle sweeper started, timeout %s", s.maxIdle)
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	log.Printf("idle sweeper stopped")
}
