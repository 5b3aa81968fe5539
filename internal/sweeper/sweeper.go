// Package sweeper runs scheduled maintenance: telemetry purge and expired
// KV cleanup.
package sweeper

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"skein/pkg/logger"
)

// Purger drops telemetry rows older than the retention window.
type Purger interface {
	Purge() (int64, error)
}

// Cleaner removes expired KV entries.
type Cleaner interface {
	KVCleanExpired() (int64, error)
}

// Sweeper owns the cron scheduler.
type Sweeper struct {
	cron    *cron.Cron
	purger  Purger
	cleaner Cleaner
	log     zerolog.Logger
}

// New creates a sweeper that runs on the given cron schedule (standard five
// field specs plus descriptors like "@hourly").
func New(schedule string, purger Purger, cleaner Cleaner) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(),
		purger:  purger,
		cleaner: cleaner,
		log:     logger.Component("sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduled sweeps and runs one immediately.
func (s *Sweeper) Start() {
	s.sweep()
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	if s.purger != nil {
		n, err := s.purger.Purge()
		if err != nil {
			s.log.Warn().Err(err).Msg("telemetry purge failed")
		} else if n > 0 {
			s.log.Debug().Int64("removed", n).Msg("telemetry rows purged")
		}
	}
	if s.cleaner != nil {
		n, err := s.cleaner.KVCleanExpired()
		if err != nil {
			s.log.Warn().Err(err).Msg("kv cleanup failed")
		} else if n > 0 {
			s.log.Debug().Int64("removed", n).Msg("expired kv entries removed")
		}
	}
}
