package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RetentionSweeper runs a caller-supplied sweep function on a cron
// schedule — used by `reed watch` to periodically re-check backup
// retention (spec.md §6 "C11 Administrative CLI").
type RetentionSweeper struct {
	cron *cron.Cron
}

// NewRetentionSweeper builds a sweeper that invokes sweep on every tick
// of spec (a standard 5-field cron expression, or a descriptor such as
// "@every 1h" or "@hourly").
func NewRetentionSweeper(spec string, sweep func()) (*RetentionSweeper, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		log.Debug().Msg("running scheduled backup retention sweep")
		sweep()
	}); err != nil {
		return nil, err
	}
	return &RetentionSweeper{cron: c}, nil
}

// Start begins running the schedule in the background.
func (s *RetentionSweeper) Start() { s.cron.Start() }

// Stop waits for any running job to finish and stops the schedule.
func (s *RetentionSweeper) Stop() { <-s.cron.Stop().Done() }
