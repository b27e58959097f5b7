package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/hours-bot-go/internal/calendar"
	"github.com/user/hours-bot-go/internal/config"
	"github.com/user/hours-bot-go/internal/push"
	"github.com/user/hours-bot-go/internal/registry"
	"github.com/user/hours-bot-go/internal/server"
)

// SweepResult summarizes one reminder sweep
type SweepResult struct {
	MonthKey string
	Open     bool // the day fell inside the reminder window
	Sent     int
	Skipped  int // already confirmed this month
	Failed   int
}

// Scheduler fires the reminder sweep once a day at a fixed wall-clock time
type Scheduler struct {
	registry    *registry.Registry
	pushService *push.Service
	config      *config.ReminderConfig
	loc         *time.Location
	now         func() time.Time
	running     atomic.Bool
	mu          sync.Mutex // prevents overlapping sweeps
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	lastFired   string // local date of the last timed sweep, owned by run
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	reg *registry.Registry,
	pushService *push.Service,
	cfg *config.ReminderConfig,
	loc *time.Location,
) *Scheduler {
	return &Scheduler{
		registry:    reg,
		pushService: pushService,
		config:      cfg,
		loc:         loc,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// SetClock replaces the time source
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins waiting for the daily fire time
func (s *Scheduler) Start(ctx context.Context) {
	if !s.config.Enabled {
		log.Info().Msg("Scheduler is disabled")
		return
	}

	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ctx, cancel := s.stopContext(ctx)
	defer cancel()

	for {
		now := s.now()
		next := calendar.NextRun(now, s.config.Hour, s.config.Minute, s.loc)
		log.Info().Time("next", next).Msg("Next reminder sweep scheduled")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			s.fire(ctx)
		case <-s.stopCh:
			timer.Stop()
			log.Info().Msg("Scheduler stopped")
			return
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Scheduler context cancelled")
			return
		}
	}
}

// stopContext derives a context that is cancelled once Stop is called
func (s *Scheduler) stopContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// fire runs the timed sweep at most once per local date.
// A wall clock stepped back past the fire time must not remind twice.
func (s *Scheduler) fire(ctx context.Context) bool {
	date := calendar.DateString(s.now(), s.loc)
	if date == s.lastFired {
		log.Warn().Str("date", date).Msg("Reminder sweep already fired today, skipping this trigger")
		return false
	}
	s.lastFired = date
	return s.executeSweep(ctx)
}

// executeSweep runs a timed sweep unless one is already running
func (s *Scheduler) executeSweep(ctx context.Context) bool {
	if !s.mu.TryLock() {
		log.Warn().Msg("Reminder sweep already running, skipping this trigger")
		return false
	}
	defer s.mu.Unlock()

	s.runSweep(ctx, "Scheduled")
	return true
}

func (s *Scheduler) runSweep(ctx context.Context, kind string) {
	s.running.Store(true)
	defer s.running.Store(false)

	startTime := time.Now()
	result, err := s.Sweep(ctx, s.now())
	duration := time.Since(startTime)
	server.RecordSweepDuration(duration)

	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("Reminder sweep failed")
		return
	}

	log.Info().
		Str("kind", kind).
		Str("month", result.MonthKey).
		Bool("open", result.Open).
		Int("sent", result.Sent).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", duration).
		Msg("Reminder sweep completed")
}

// Sweep reminds every subscriber who has not confirmed for the current month,
// provided today is inside the trailing window of the month.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	today := now.In(s.loc)
	result := SweepResult{MonthKey: calendar.MonthKey(today, s.loc)}

	window, err := calendar.ReminderWindow(today, s.config.WindowStartDay)
	if err != nil {
		log.Error().Err(err).Time("today", today).Msg("BUG: reminder window computation failed, skipping sweep")
		return result, err
	}
	if !window.Contains(today.Day()) {
		log.Debug().
			Int("day", today.Day()).
			Int("windowFirst", window.First).
			Int("windowLast", window.Last).
			Msg("Outside reminder window")
		return result, nil
	}
	result.Open = true

	subs := s.registry.ListAll()
	server.SetSubscribers(len(subs))

	for _, sub := range subs {
		if sub.ConfirmedIn(result.MonthKey) {
			result.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := s.pushService.SendReminder(ctx, sub.ChatID); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.Error().Err(err).Str("chatID", sub.ChatID).Msg("Failed to send reminder")
			server.RecordReminder("failed")
			result.Failed++
			continue
		}
		server.RecordReminder("success")
		result.Sent++
	}

	return result, nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// IsRunning returns true if a sweep is currently running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// TryRun runs a sweep immediately.
// Returns false if a sweep is already running
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	ctx, cancel := s.stopContext(ctx)
	defer cancel()

	s.runSweep(ctx, "Manual")
	return true
}
