package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the periodic maintenance jobs. Currently that is the
// leaderboard reconciliation: the ZSET index trails the authoritative
// account records and a lost ZADD would otherwise stick around forever.
type Scheduler struct {
	cron  *cron.Cron
	store *RedisService
}

func NewScheduler(store *RedisService) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		store: store,
	}
}

func (s *Scheduler) Start() {
	s.cron.AddFunc("@every 10m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.store.RebuildLeaderboard(ctx); err != nil {
			log.WithError(err).Warn("leaderboard reconciliation failed")
		}
	})
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
