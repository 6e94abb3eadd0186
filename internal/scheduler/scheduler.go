package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AISystem01/404TurfBot/internal/domain"
)

// Rollover fires shortly after midnight so the finished day can be
// archived and the response set reset.
const (
	rolloverHour   = 0
	rolloverMinute = 1
)

// Trigger receives the two daily events. telegram.Router implements it;
// trigger methods handle their own failures and never panic.
type Trigger interface {
	PollDue(ctx context.Context)
	RolloverDue(ctx context.Context)
}

// Source exposes the current poll-time configuration.
type Source interface {
	Settings() domain.Settings
}

// Scheduler evaluates the group-local clock on a short fixed interval and
// fires each trigger at most once per matching minute.
type Scheduler struct {
	source   Source
	log      *zap.Logger
	trigger  Trigger
	loc      *time.Location
	interval time.Duration
	now      func() time.Time

	lastPoll     string // minute key of the last poll fire
	lastRollover string // date key of the last rollover fire
}

// New creates a Scheduler. The check interval is fixed at 20s: coarser
// than a second, fine enough to never miss a minute.
func New(source Source, trigger Trigger, loc *time.Location, log *zap.Logger) *Scheduler {
	return &Scheduler{
		source:   source,
		trigger:  trigger,
		loc:      loc,
		log:      log,
		interval: 20 * time.Second,
		now:      time.Now,
	}
}

// Run loops until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one clock check against both triggers.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.loc)
	cfg := s.source.Settings()

	minuteKey := now.Format("2006-01-02 15:04")
	if now.Hour() == cfg.Hour && now.Minute() == cfg.Minute && s.lastPoll != minuteKey {
		s.lastPoll = minuteKey
		s.log.Info("poll trigger fired", zap.String("at", minuteKey))
		s.trigger.PollDue(ctx)
	}

	dayKey := now.Format("2006-01-02")
	if now.Hour() == rolloverHour && now.Minute() == rolloverMinute && s.lastRollover != dayKey {
		s.lastRollover = dayKey
		s.log.Info("rollover trigger fired", zap.String("day", dayKey))
		s.trigger.RolloverDue(ctx)
	}
}
