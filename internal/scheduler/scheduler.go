// Package scheduler sends prayer reminders to subscribed users.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/logging"
	"ruznama_bot/internal/metrics"
	"ruznama_bot/internal/render"
)

const (
	defaultConcurrency    = 8
	defaultSchedule       = "* * * * *"
	defaultTickTimeout    = 50 * time.Second
	defaultRevokeAttempts = 3
	defaultRevokeBackoff  = 250 * time.Millisecond
	defaultRetryLimit     = 16
	revokeTimeout         = 10 * time.Second
	retryTimeout          = 10 * time.Second
)

// TimeTable is the read-only view of prayer times the scheduler needs.
type TimeTable interface {
	TodayEntry(locationID string, date time.Time) (domain.DayEntry, bool)
	Location(id string) (domain.Location, bool)
}

// SubscriptionStore is the mutable view of subscriptions the scheduler needs.
type SubscriptionStore interface {
	ListActive(ctx context.Context) ([]domain.Subscription, error)
	SetSubscribed(ctx context.Context, userID string, value bool) error
	Delete(ctx context.Context, userID string) error
}

// Dispatcher delivers a message to a user. Failures should be
// *domain.DeliveryError values.
type Dispatcher interface {
	SendMessage(ctx context.Context, userID, text string) error
}

// Options tune the scheduler. Zero values fall back to defaults.
type Options struct {
	Lead           time.Duration
	Prayers        []domain.Prayer
	Policy         domain.RevokePolicy
	Concurrency    int
	Schedule       string
	Location       *time.Location
	TickTimeout    time.Duration
	RevokeAttempts int
	RevokeBackoff  time.Duration
	// RetryLimit caps how many queued revocations one tick retries.
	RetryLimit int
	// Pending is shared with whoever must cancel queued revocations.
	Pending *Pending
}

// Event is one reminder due for delivery.
type Event struct {
	UserID     string
	LocationID string
	Prayer     domain.Prayer
	PrayerAt   time.Time
	NotifyAt   time.Time
}

// Report summarizes a tick.
type Report struct {
	TickID       string
	At           time.Time
	Planned      int
	Duplicates   int
	Sent         int
	Failed       int
	Revoked      int
	RevokeFailed int
}

type dedupKey struct {
	date   string
	userID string
	prayer domain.Prayer
}

// Scheduler plans and dispatches reminders once per tick.
type Scheduler struct {
	table      TimeTable
	store      SubscriptionStore
	dispatcher Dispatcher
	opts       Options
	logger     *logrus.Entry
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	sent    map[dedupKey]struct{}
	pending *Pending

	cronMu sync.Mutex
	cron   *cron.Cron
}

// New constructs a Scheduler.
func New(table TimeTable, store SubscriptionStore, dispatcher Dispatcher, opts Options, logger *logrus.Entry) (*Scheduler, error) {
	if table == nil {
		return nil, errors.New("time table is required")
	}
	if store == nil {
		return nil, errors.New("subscription store is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Lead < 0 {
		return nil, fmt.Errorf("lead time must not be negative, got %s", opts.Lead)
	}
	if logger == nil {
		logger = logging.Logger()
	}

	if len(opts.Prayers) == 0 {
		opts.Prayers = domain.DefaultNotifiable
	}
	if opts.Policy == "" {
		opts.Policy = domain.RevokeUnsubscribe
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Schedule == "" {
		opts.Schedule = defaultSchedule
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = defaultTickTimeout
	}
	if opts.RevokeAttempts <= 0 {
		opts.RevokeAttempts = defaultRevokeAttempts
	}
	if opts.RevokeBackoff <= 0 {
		opts.RevokeBackoff = defaultRevokeBackoff
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = defaultRetryLimit
	}
	if opts.Pending == nil {
		opts.Pending = NewPending()
	}

	return &Scheduler{
		table:      table,
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
		sent:       make(map[dedupKey]struct{}),
		pending:    opts.Pending,
	}, nil
}

// Start registers the tick with a cron runner. Ticks that would overlap a
// running one are skipped and counted.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("scheduler is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLocation(s.opts.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), skipOverlapping(s.logger)),
	)
	if _, err := c.AddFunc(s.opts.Schedule, func() {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.WithField("event", "scheduler_tick_failed").WithError(err).Error("scheduler tick failed")
		}
	}); err != nil {
		return fmt.Errorf("register schedule %q: %w", s.opts.Schedule, err)
	}

	c.Start()
	s.cron = c

	s.logger.WithFields(logging.Fields{
		"event":        "scheduler_started",
		"schedule":     s.opts.Schedule,
		"lead_minutes": int(s.opts.Lead / time.Minute),
		"policy":       string(s.opts.Policy),
		"timezone":     s.opts.Location.String(),
	}).Info("reminder scheduler started")

	return nil
}

// Stop stops scheduling new ticks and waits for the running one to finish or
// for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	select {
	case <-done.Done():
		s.logger.WithField("event", "scheduler_stopped").Info("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running tick: %w", ctx.Err())
	}
}

// Tick plans the reminders due in the current minute and dispatches them.
// Per-user failures are logged and counted but never abort the tick; only a
// failure to read subscriptions is returned.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	if s == nil {
		return Report{}, errors.New("scheduler is not initialized")
	}
	if ctx == nil {
		return Report{}, errors.New("context is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	now := s.now().In(s.opts.Location)
	report := Report{TickID: uuid.NewString(), At: now}
	logger := s.logger.WithField("tick_id", report.TickID)

	ctx, cancel := context.WithTimeout(ctx, s.opts.TickTimeout)
	defer cancel()

	queued := s.pending.snapshot()

	subs, err := s.store.ListActive(ctx)
	if err != nil {
		metrics.IncTick("error")
		metrics.ObserveTick(time.Since(started))
		return report, fmt.Errorf("list active subscriptions: %w", err)
	}

	eligible := make([]domain.Subscription, 0, len(subs))
	for _, sub := range subs {
		if s.pending.Has(sub.UserID) {
			continue
		}
		eligible = append(eligible, sub)
	}

	planned := s.Plan(now, eligible)
	report.Planned = len(planned)

	due := make([]Event, 0, len(planned))
	for _, ev := range planned {
		key := keyFor(ev)
		if _, seen := s.sent[key]; seen {
			report.Duplicates++
			continue
		}
		s.sent[key] = struct{}{}
		due = append(due, ev)
	}

	s.dispatch(ctx, logger, due, &report)
	s.retryPending(ctx, logger, queued, &report)
	s.prune(now)

	metrics.SetPendingRevocations(s.pending.Len())
	metrics.IncTick("ok")
	metrics.ObserveTick(time.Since(started))

	entry := logger.WithFields(logging.Fields{
		"event":         "scheduler_tick",
		"subscriptions": len(eligible),
		"planned":       report.Planned,
		"duplicates":    report.Duplicates,
		"sent":          report.Sent,
		"failed":        report.Failed,
		"revoked":       report.Revoked,
		"revoke_failed": report.RevokeFailed,
	})
	if len(due) > 0 {
		entry.Info("scheduler tick completed")
	} else {
		entry.Debug("scheduler tick completed")
	}

	return report, nil
}

// Plan returns the reminders whose notify time falls in the same minute as
// now. Inactive subscriptions and locations without times yield nothing.
func (s *Scheduler) Plan(now time.Time, subs []domain.Subscription) []Event {
	loc := s.opts.Location
	now = now.In(loc)

	days := []time.Time{now}
	if ahead := now.Add(s.opts.Lead); !sameDate(ahead, now) {
		days = append(days, ahead)
	}

	events := make([]Event, 0)
	for _, sub := range subs {
		if !sub.Active() {
			continue
		}

		for _, day := range days {
			entry, ok := s.table.TodayEntry(sub.LocationID, day)
			if !ok {
				continue
			}

			for _, prayer := range s.opts.Prayers {
				clock, ok := entry.Time(prayer)
				if !ok {
					continue
				}

				prayerAt := clock.On(day, loc)
				notifyAt := prayerAt.Add(-s.opts.Lead)
				if !sameMinute(notifyAt, now) {
					continue
				}

				events = append(events, Event{
					UserID:     sub.UserID,
					LocationID: sub.LocationID,
					Prayer:     prayer,
					PrayerAt:   prayerAt,
					NotifyAt:   notifyAt,
				})
			}
		}
	}

	return events
}

func (s *Scheduler) dispatch(ctx context.Context, logger *logrus.Entry, events []Event, report *Report) {
	if len(events) == 0 {
		return
	}

	var (
		mu      sync.Mutex
		revoked = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			location, ok := s.table.Location(ev.LocationID)
			if !ok {
				location = domain.Location{ID: ev.LocationID}
			}
			text := render.Reminder(location, ev.Prayer, ev.PrayerAt, s.opts.Lead)

			evLogger := logging.WithContext(logger, logging.Context{
				UserID:     ev.UserID,
				LocationID: ev.LocationID,
				Prayer:     string(ev.Prayer),
			})

			err := s.dispatcher.SendMessage(gctx, ev.UserID, text)
			if err == nil {
				metrics.IncReminderSent(string(ev.Prayer))
				mu.Lock()
				report.Sent++
				mu.Unlock()
				evLogger.WithField("event", "reminder_sent").Debug("reminder delivered")
				return nil
			}

			reason := domain.FailureReasonOf(err)
			metrics.IncReminderFailed(string(reason))

			mu.Lock()
			report.Failed++
			_, already := revoked[ev.UserID]
			first := reason == domain.FailureUnreachable && !already
			if first {
				revoked[ev.UserID] = struct{}{}
			}
			mu.Unlock()

			if reason != domain.FailureUnreachable {
				evLogger.WithFields(logging.Fields{
					"event":  "reminder_failed",
					"reason": string(reason),
				}).WithError(err).Warn("reminder delivery failed")
				return nil
			}

			evLogger.WithFields(logging.Fields{
				"event":  "reminder_unreachable",
				"reason": string(reason),
			}).WithError(err).Warn("user is unreachable")

			if !first {
				return nil
			}

			// revocation must outlive a cancelled tick context
			revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), revokeTimeout)
			rerr := s.revoke(revokeCtx, ev.UserID)
			cancel()
			if rerr != nil {
				s.pending.add(ev.UserID)
				mu.Lock()
				report.RevokeFailed++
				mu.Unlock()
				evLogger.WithFields(logging.Fields{
					"event":  "subscription_revoke_failed",
					"policy": string(s.opts.Policy),
				}).WithError(rerr).Error("could not revoke subscription; will retry next tick")
				metrics.IncRevokeFailure()
				return nil
			}

			mu.Lock()
			report.Revoked++
			mu.Unlock()
			metrics.IncRevoked(string(s.opts.Policy))
			evLogger.WithFields(logging.Fields{
				"event":  "subscription_revoked",
				"policy": string(s.opts.Policy),
			}).Info("subscription revoked")
			return nil
		})
	}

	_ = g.Wait()
}

// retryPending re-applies revocations queued before this tick. It runs after
// dispatch with whatever is left of the tick budget, capped by retryTimeout
// and RetryLimit users. Users it cannot reach stay queued.
func (s *Scheduler) retryPending(ctx context.Context, logger *logrus.Entry, queued []string, report *Report) {
	if len(queued) == 0 {
		return
	}
	if len(queued) > s.opts.RetryLimit {
		queued = queued[:s.opts.RetryLimit]
	}

	retryCtx, cancel := context.WithTimeout(ctx, retryTimeout)
	defer cancel()

	for _, userID := range queued {
		userLogger := logging.WithContext(logger, logging.Context{UserID: userID})
		if retryCtx.Err() != nil {
			userLogger.WithField("event", "subscription_revoke_deferred").Warn("revocation retry budget exhausted")
			return
		}

		applied, err := s.pending.apply(userID, func() error {
			return s.revoke(retryCtx, userID)
		})
		if !applied {
			userLogger.WithField("event", "subscription_revoke_cancelled").Info("user re-subscribed; queued revocation dropped")
			continue
		}
		if err != nil {
			report.RevokeFailed++
			metrics.IncRevokeFailure()
			userLogger.WithFields(logging.Fields{
				"event":  "subscription_revoke_failed",
				"policy": string(s.opts.Policy),
			}).WithError(err).Error("retrying revocation failed")
			continue
		}

		report.Revoked++
		metrics.IncRevoked(string(s.opts.Policy))
		userLogger.WithFields(logging.Fields{
			"event":  "subscription_revoked",
			"policy": string(s.opts.Policy),
		}).Info("pending revocation applied")
	}
}

// revoke applies the revoke policy with a bounded number of attempts. A
// missing record counts as revoked.
func (s *Scheduler) revoke(ctx context.Context, userID string) error {
	var err error
	for attempt := 1; attempt <= s.opts.RevokeAttempts; attempt++ {
		switch s.opts.Policy {
		case domain.RevokeDelete:
			err = s.store.Delete(ctx, userID)
		default:
			err = s.store.SetSubscribed(ctx, userID, false)
		}
		if err == nil || errors.Is(err, domain.ErrSubscriptionNotFound) {
			return nil
		}
		if attempt == s.opts.RevokeAttempts {
			break
		}
		if serr := s.sleep(ctx, s.opts.RevokeBackoff*time.Duration(attempt)); serr != nil {
			return fmt.Errorf("revoke subscription: %w", err)
		}
	}

	return fmt.Errorf("revoke subscription after %d attempts: %w", s.opts.RevokeAttempts, err)
}

// prune forgets delivered keys older than yesterday.
func (s *Scheduler) prune(now time.Time) {
	cutoff := now.AddDate(0, 0, -1).Format(time.DateOnly)
	for key := range s.sent {
		if key.date < cutoff {
			delete(s.sent, key)
		}
	}
}

func keyFor(ev Event) dedupKey {
	return dedupKey{
		date:   ev.PrayerAt.Format(time.DateOnly),
		userID: ev.UserID,
		prayer: ev.Prayer,
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameMinute(a, b time.Time) bool {
	b = b.In(a.Location())
	return sameDate(a, b) && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

// skipOverlapping runs a job only when its previous run has finished.
// Skipped runs are logged and counted as "skipped" ticks.
func skipOverlapping(logger *logrus.Entry) cron.JobWrapper {
	return func(job cron.Job) cron.Job {
		slot := make(chan struct{}, 1)
		slot <- struct{}{}
		return cron.FuncJob(func() {
			select {
			case token := <-slot:
				defer func() { slot <- token }()
				job.Run()
			default:
				metrics.IncTick("skipped")
				logger.WithField("event", "scheduler_tick_skipped").Warn("previous tick still running; skipping")
			}
		})
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
