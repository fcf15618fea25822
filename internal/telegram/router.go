package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/feature/quote"
	"ruznama_bot/internal/logging"
	"ruznama_bot/internal/metrics"
	"ruznama_bot/internal/render"
)

var knownCommands = map[string]bool{
	"start": true, "help": true, "about": true, "stats": true, "newquote": true,
	"day": true, "month": true, "year": true, "subscribe": true, "unsubscribe": true,
	"admin": true, "broadcast": true, "addquote": true, "delquote": true, "quotes": true,
}

var knownCallbacks = map[string]bool{
	cbMain: true, cbCatalogue: true, cbCities: true, cbDistricts: true,
	cbQuote: true, cbAbout: true, cbStats: true,
	cbAdminQuote: true, cbAdminCast: true, cbAdminStats: true,
	prefixLocation: true, prefixDay: true, prefixMonth: true, prefixYear: true,
	prefixSelectMonth: true, prefixBackToLoc: true, prefixSubOn: true, prefixSubOff: true,
}

const (
	handlerTimeout       = 15 * time.Second
	broadcastTimeout     = 30 * time.Minute
	broadcastConcurrency = 4
)

// UserStore persists what the bot remembers about users.
type UserStore interface {
	EnsureUser(ctx context.Context, userID string) (bool, error)
	SetLocation(ctx context.Context, userID, locationID string) error
	SetSubscribed(ctx context.Context, userID string, value bool) error
	Delete(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (domain.Subscription, error)
	ListAll(ctx context.Context) ([]domain.Subscription, error)
}

// QuoteStore serves and edits hadiths.
type QuoteStore interface {
	Add(ctx context.Context, text, author string) (domain.Quote, error)
	List(ctx context.Context) ([]domain.Quote, error)
	DeleteAt(ctx context.Context, n int) (domain.Quote, error)
	Random(ctx context.Context) (domain.Quote, error)
}

// Catalogue is the read-only location and time table view.
type Catalogue interface {
	Cities() []domain.Location
	Districts() []domain.Location
	Location(id string) (domain.Location, bool)
	Search(query string) []domain.Location
	HasTimes(id string) bool
	TodayEntry(id string, date time.Time) (domain.DayEntry, bool)
	Month(id string, month time.Month) (map[int]domain.DayEntry, bool)
}

// StatsSource counts persisted users and hadiths.
type StatsSource interface {
	CountUsers(ctx context.Context) (int64, error)
	CountSubscribed(ctx context.Context) (int64, error)
	CountQuotes(ctx context.Context) (int64, error)
}

// RevocationQueue holds reminder revocations still waiting to be retried.
type RevocationQueue interface {
	Forget(userID string)
}

// RouterDeps are the collaborators of the Router.
type RouterDeps struct {
	Users        UserStore
	Quotes       QuoteStore
	Catalogue    Catalogue
	Stats        StatsSource
	Admins       []int64
	Lead         time.Duration
	RevokePolicy domain.RevokePolicy
	Location     *time.Location
	// Revocations, when set, is cleared for users who subscribe again.
	Revocations RevocationQueue
}

// Router dispatches commands, free text and callback queries.
type Router struct {
	deps   RouterDeps
	admins map[int64]struct{}
	sender *Sender
	logger *logrus.Entry
	now    func() time.Time
	async  func(func())
}

// target identifies where a reply goes. A non-zero message id means the
// reply replaces that message.
type target struct {
	chatID    int64
	messageID int
}

// NewRouter validates deps and builds a Router. The sender is attached by
// NewClient.
func NewRouter(deps RouterDeps, logger *logrus.Entry) (*Router, error) {
	if deps.Users == nil {
		return nil, errors.New("user store is required")
	}
	if deps.Quotes == nil {
		return nil, errors.New("quote store is required")
	}
	if deps.Catalogue == nil {
		return nil, errors.New("catalogue is required")
	}
	if deps.Stats == nil {
		return nil, errors.New("stats source is required")
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.RevokePolicy == "" {
		deps.RevokePolicy = domain.RevokeUnsubscribe
	}
	if logger == nil {
		logger = logging.Logger()
	}

	admins := make(map[int64]struct{}, len(deps.Admins))
	for _, id := range deps.Admins {
		admins[id] = struct{}{}
	}

	return &Router{
		deps:   deps,
		admins: admins,
		logger: logger,
		now:    time.Now,
		async:  func(f func()) { go f() },
	}, nil
}

func (r *Router) attach(sender *Sender) {
	r.sender = sender
}

func (r *Router) isAdmin(id int64) bool {
	_, ok := r.admins[id]
	return ok
}

// Handle processes a single update. Errors are logged and answered with a
// generic failure message; they never propagate to the bot loop.
func (r *Router) Handle(ctx context.Context, update *models.Update) {
	if update == nil || r.sender == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	meta := extractUpdateMeta(update)
	metrics.IncUpdate(meta.updateType)

	entry := logging.WithContext(r.logger, logging.Context{
		UserID: userLabel(meta.userID),
		ChatID: meta.chatID,
		Event:  "telegram_update",
	}).WithField("update_type", meta.updateType)
	if meta.text != "" {
		entry = entry.WithField("text", meta.text)
	}
	entry.Info("telegram update received")

	if meta.userID == 0 || meta.chatID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	r.touch(ctx, meta.userID)

	switch {
	case update.Message != nil:
		r.handleMessage(ctx, meta, target{chatID: meta.chatID})
	case update.CallbackQuery != nil:
		r.sender.answer(ctx, update.CallbackQuery.ID, "")
		r.handleCallback(ctx, meta, target{
			chatID:    meta.chatID,
			messageID: messageID(update.CallbackQuery.Message),
		})
	}
}

func (r *Router) touch(ctx context.Context, id int64) {
	created, err := r.deps.Users.EnsureUser(ctx, formatID(id))
	if err != nil {
		logging.WithContext(r.logger, logging.Context{
			UserID: formatID(id),
			Event:  "user_register_failed",
		}).WithError(err).Warn("failed to record user")
		return
	}
	if created {
		metrics.IncUsersRegistered()
	}
}

func (r *Router) handleMessage(ctx context.Context, meta updateMeta, to target) {
	if meta.text == "" {
		return
	}
	if !strings.HasPrefix(meta.text, "/") {
		metrics.IncCommand("search")
		r.search(ctx, to, meta.text)
		return
	}

	command, args := splitCommand(meta.text)
	metrics.IncCommand(actionLabel(command, knownCommands))

	switch command {
	case "start":
		r.reply(ctx, to, render.Welcome(), mainKeyboard())
	case "help":
		r.reply(ctx, to, render.Help(r.isAdmin(meta.userID)), backKeyboard(cbMain))
	case "about":
		r.reply(ctx, to, render.About(), backKeyboard(cbMain))
	case "stats":
		r.showStats(ctx, to, false)
	case "newquote":
		r.showQuote(ctx, to)
	case "day":
		r.withRemembered(ctx, meta.userID, to, r.showDay)
	case "month":
		r.withRemembered(ctx, meta.userID, to, func(ctx context.Context, to target, loc domain.Location) {
			r.showMonth(ctx, to, loc, r.now().In(r.deps.Location).Month())
		})
	case "year":
		r.withRemembered(ctx, meta.userID, to, r.showYear)
	case "subscribe":
		r.withRemembered(ctx, meta.userID, to, func(ctx context.Context, to target, loc domain.Location) {
			r.setSubscribed(ctx, meta.userID, to, loc, true, false)
		})
	case "unsubscribe":
		r.unsubscribe(ctx, meta.userID, to)
	case "admin":
		if r.guard(ctx, meta.userID, to) {
			r.reply(ctx, to, render.AdminPanel(), adminKeyboard())
		}
	case "broadcast":
		if r.guard(ctx, meta.userID, to) {
			r.broadcast(ctx, meta.userID, to, args)
		}
	case "addquote":
		if r.guard(ctx, meta.userID, to) {
			r.addQuote(ctx, to, args)
		}
	case "delquote":
		if r.guard(ctx, meta.userID, to) {
			r.deleteQuote(ctx, to, args)
		}
	case "quotes":
		if r.guard(ctx, meta.userID, to) {
			r.listQuotes(ctx, to)
		}
	default:
		r.reply(ctx, to, render.Help(r.isAdmin(meta.userID)), mainKeyboard())
	}
}

func (r *Router) handleCallback(ctx context.Context, meta updateMeta, to target) {
	data := meta.text
	action, id := splitCallback(data)
	metrics.IncCommand(actionLabel(action, knownCallbacks))

	switch action {
	case cbMain:
		r.reply(ctx, to, render.MainMenu(), mainKeyboard())
	case cbCatalogue:
		r.reply(ctx, to, render.ChooseKind(), catalogueKeyboard())
	case cbCities:
		cities := r.deps.Catalogue.Cities()
		r.reply(ctx, to, render.ListHeader(domain.LocationCity, len(cities) == 0), locationsKeyboard(cities, cbCatalogue))
	case cbDistricts:
		districts := r.deps.Catalogue.Districts()
		r.reply(ctx, to, render.ListHeader(domain.LocationDistrict, len(districts) == 0), locationsKeyboard(districts, cbCatalogue))
	case cbQuote:
		r.showQuote(ctx, to)
	case cbAbout:
		r.reply(ctx, to, render.About(), backKeyboard(cbMain))
	case cbStats:
		r.showStats(ctx, to, false)
	case cbAdminQuote:
		if r.guard(ctx, meta.userID, to) {
			r.listQuotes(ctx, to)
		}
	case cbAdminCast:
		if r.guard(ctx, meta.userID, to) {
			r.reply(ctx, to, render.BroadcastUsage(), nil)
		}
	case cbAdminStats:
		if r.guard(ctx, meta.userID, to) {
			r.showStats(ctx, to, true)
		}
	case prefixLocation, prefixBackToLoc:
		r.withLocation(ctx, to, id, func(ctx context.Context, to target, loc domain.Location) {
			if action == prefixLocation {
				r.remember(ctx, meta.userID, loc)
			}
			r.showLocation(ctx, meta.userID, to, loc)
		})
	case prefixDay:
		r.withLocation(ctx, to, id, r.showDay)
	case prefixMonth:
		r.withLocation(ctx, to, id, func(ctx context.Context, to target, loc domain.Location) {
			r.showMonth(ctx, to, loc, r.now().In(r.deps.Location).Month())
		})
	case prefixYear:
		r.withLocation(ctx, to, id, r.showYear)
	case prefixSelectMonth:
		month, locID, ok := splitMonth(id)
		if !ok {
			r.reply(ctx, to, render.NotFound(), backKeyboard(cbCatalogue))
			return
		}
		r.withLocation(ctx, to, locID, func(ctx context.Context, to target, loc domain.Location) {
			r.showMonth(ctx, to, loc, month)
		})
	case prefixSubOn, prefixSubOff:
		r.withLocation(ctx, to, id, func(ctx context.Context, to target, loc domain.Location) {
			r.remember(ctx, meta.userID, loc)
			r.setSubscribed(ctx, meta.userID, to, loc, action == prefixSubOn, true)
		})
	default:
		r.logger.WithFields(logging.Fields{
			"event":   "telegram_callback_unknown",
			"data":    data,
			"user_id": meta.userID,
		}).Warn("unknown callback data")
		r.reply(ctx, to, render.MainMenu(), mainKeyboard())
	}
}

func (r *Router) search(ctx context.Context, to target, query string) {
	found := r.deps.Catalogue.Search(query)
	if len(found) == 0 {
		r.reply(ctx, to, render.SearchEmpty(query), catalogueKeyboard())
		return
	}
	r.reply(ctx, to, render.SearchResults(len(found)), locationsKeyboard(found, cbCatalogue))
}

func (r *Router) showLocation(ctx context.Context, userID int64, to target, loc domain.Location) {
	subscribed := false
	sub, err := r.deps.Users.Get(ctx, formatID(userID))
	switch {
	case err == nil:
		subscribed = sub.Subscribed && sub.LocationID == loc.ID
	case !errors.Is(err, domain.ErrSubscriptionNotFound):
		r.logger.WithFields(logging.Fields{
			"event":   "subscription_lookup_failed",
			"user_id": userID,
		}).WithError(err).Warn("failed to load subscription")
	}

	r.reply(ctx, to, render.LocationMenu(loc, subscribed), locationKeyboard(loc, subscribed))
}

func (r *Router) showDay(ctx context.Context, to target, loc domain.Location) {
	if !r.deps.Catalogue.HasTimes(loc.ID) {
		r.reply(ctx, to, render.NoTimes(loc), backKeyboard(prefixBackToLoc+loc.ID))
		return
	}

	today := r.now().In(r.deps.Location)
	entry, ok := r.deps.Catalogue.TodayEntry(loc.ID, today)
	r.reply(ctx, to, render.Today(loc, today, entry, ok), backKeyboard(prefixBackToLoc+loc.ID))
}

func (r *Router) showMonth(ctx context.Context, to target, loc domain.Location, month time.Month) {
	days, ok := r.deps.Catalogue.Month(loc.ID, month)
	if !ok {
		r.reply(ctx, to, render.NoTimes(loc), backKeyboard(prefixBackToLoc+loc.ID))
		return
	}
	r.reply(ctx, to, render.MonthTable(loc, month, days), backKeyboard(prefixYear+loc.ID))
}

func (r *Router) showYear(ctx context.Context, to target, loc domain.Location) {
	if !r.deps.Catalogue.HasTimes(loc.ID) {
		r.reply(ctx, to, render.NoTimes(loc), backKeyboard(prefixBackToLoc+loc.ID))
		return
	}
	r.reply(ctx, to, render.ChooseMonth(loc), monthsKeyboard(loc))
}

func (r *Router) showQuote(ctx context.Context, to target) {
	q, err := r.deps.Quotes.Random(ctx)
	if err != nil {
		r.fail(ctx, to, "quote_random_failed", err)
		return
	}
	r.reply(ctx, to, render.Quote(q), quoteKeyboard())
}

func (r *Router) showStats(ctx context.Context, to target, admin bool) {
	stats, err := r.stats(ctx)
	if err != nil {
		r.fail(ctx, to, "stats_failed", err)
		return
	}

	if admin {
		r.reply(ctx, to, render.AdminStats(stats), nil)
		return
	}
	r.reply(ctx, to, render.StatsText(stats), backKeyboard(cbMain))
}

func (r *Router) stats(ctx context.Context) (render.Stats, error) {
	users, err := r.deps.Stats.CountUsers(ctx)
	if err != nil {
		return render.Stats{}, err
	}
	subscribed, err := r.deps.Stats.CountSubscribed(ctx)
	if err != nil {
		return render.Stats{}, err
	}
	quotes, err := r.deps.Stats.CountQuotes(ctx)
	if err != nil {
		return render.Stats{}, err
	}

	return render.Stats{
		Users:      users,
		Subscribed: subscribed,
		Cities:     len(r.deps.Catalogue.Cities()),
		Districts:  len(r.deps.Catalogue.Districts()),
		Quotes:     quotes,
	}, nil
}

func (r *Router) remember(ctx context.Context, userID int64, loc domain.Location) {
	if err := r.deps.Users.SetLocation(ctx, formatID(userID), loc.ID); err != nil {
		logging.WithContext(r.logger, logging.Context{
			UserID:     formatID(userID),
			LocationID: loc.ID,
			Event:      "location_store_failed",
		}).WithError(err).Warn("failed to remember location")
	}
}

// setSubscribed flips reminders; inMenu re-renders the location menu instead
// of a confirmation.
func (r *Router) setSubscribed(ctx context.Context, userID int64, to target, loc domain.Location, value, inMenu bool) {
	if value && r.deps.Revocations != nil {
		r.deps.Revocations.Forget(formatID(userID))
	}
	if err := r.deps.Users.SetSubscribed(ctx, formatID(userID), value); err != nil {
		r.fail(ctx, to, "subscription_update_failed", err)
		return
	}

	if inMenu {
		r.reply(ctx, to, render.LocationMenu(loc, value), locationKeyboard(loc, value))
		return
	}
	if value {
		r.reply(ctx, to, render.Subscribed(loc, r.deps.Lead), locationKeyboard(loc, true))
		return
	}
	r.reply(ctx, to, render.Unsubscribed(), mainKeyboard())
}

func (r *Router) unsubscribe(ctx context.Context, userID int64, to target) {
	err := r.deps.Users.SetSubscribed(ctx, formatID(userID), false)
	if err != nil && !errors.Is(err, domain.ErrSubscriptionNotFound) {
		r.fail(ctx, to, "subscription_update_failed", err)
		return
	}
	r.reply(ctx, to, render.Unsubscribed(), mainKeyboard())
}

func (r *Router) addQuote(ctx context.Context, to target, args string) {
	text, author, err := quote.Parse(args)
	if err != nil {
		r.reply(ctx, to, render.AddQuoteUsage(), nil)
		return
	}

	q, err := r.deps.Quotes.Add(ctx, text, author)
	if err != nil {
		r.fail(ctx, to, "quote_add_failed", err)
		return
	}
	r.reply(ctx, to, render.QuoteAdded(q), nil)
}

func (r *Router) deleteQuote(ctx context.Context, to target, args string) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		r.reply(ctx, to, render.DelQuoteUsage(), nil)
		return
	}

	q, err := r.deps.Quotes.DeleteAt(ctx, n)
	switch {
	case errors.Is(err, domain.ErrQuoteNotFound):
		r.reply(ctx, to, render.QuoteMissing(n), nil)
	case err != nil:
		r.fail(ctx, to, "quote_delete_failed", err)
	default:
		r.reply(ctx, to, render.QuoteDeleted(q), nil)
	}
}

func (r *Router) listQuotes(ctx context.Context, to target) {
	quotes, err := r.deps.Quotes.List(ctx)
	if err != nil {
		r.fail(ctx, to, "quote_list_failed", err)
		return
	}
	r.reply(ctx, to, render.QuoteList(quotes), nil)
}

// broadcast sends text to every known user in the background and reports the
// outcome to the admin. Unreachable users are revoked like the scheduler does.
func (r *Router) broadcast(ctx context.Context, adminID int64, to target, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		r.reply(ctx, to, render.BroadcastUsage(), nil)
		return
	}

	users, err := r.deps.Users.ListAll(ctx)
	if err != nil {
		r.fail(ctx, to, "broadcast_failed", err)
		return
	}

	r.logger.WithFields(logging.Fields{
		"event":      "broadcast_started",
		"admin_id":   adminID,
		"recipients": len(users),
	}).Info("broadcast started")

	bctx := context.WithoutCancel(ctx)
	r.async(func() {
		ctx, cancel := context.WithTimeout(bctx, broadcastTimeout)
		defer cancel()

		sent, failed, revoked := r.deliverAll(ctx, users, text)

		metrics.AddBroadcast("sent", sent)
		metrics.AddBroadcast("failed", failed)
		metrics.AddBroadcast("revoked", revoked)

		r.logger.WithFields(logging.Fields{
			"event":    "broadcast_finished",
			"admin_id": adminID,
			"sent":     sent,
			"failed":   failed,
			"revoked":  revoked,
		}).Info("broadcast finished")

		r.reply(ctx, target{chatID: to.chatID}, render.BroadcastDone(sent, failed, revoked), nil)
	})
}

func (r *Router) deliverAll(ctx context.Context, users []domain.Subscription, text string) (sent, failed, revoked int) {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastConcurrency)

	for _, u := range users {
		u := u
		g.Go(func() error {
			err := r.sender.SendMessage(gctx, u.UserID, text)
			if err == nil {
				mu.Lock()
				sent++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			failed++
			mu.Unlock()

			if domain.FailureReasonOf(err) != domain.FailureUnreachable {
				return nil
			}
			if rerr := r.revoke(gctx, u.UserID); rerr != nil {
				r.logger.WithFields(logging.Fields{
					"event":   "subscription_revoke_failed",
					"user_id": u.UserID,
					"policy":  string(r.deps.RevokePolicy),
				}).WithError(rerr).Error("failed to revoke unreachable user")
				metrics.IncRevokeFailure()
				return nil
			}

			metrics.IncRevoked(string(r.deps.RevokePolicy))
			mu.Lock()
			revoked++
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return sent, failed, revoked
}

func (r *Router) revoke(ctx context.Context, userID string) error {
	var err error
	if r.deps.RevokePolicy == domain.RevokeDelete {
		err = r.deps.Users.Delete(ctx, userID)
	} else {
		err = r.deps.Users.SetSubscribed(ctx, userID, false)
	}
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return nil
	}
	return err
}

// withRemembered runs fn with the user's last chosen location, or asks the
// user to choose one.
func (r *Router) withRemembered(ctx context.Context, userID int64, to target, fn func(context.Context, target, domain.Location)) {
	sub, err := r.deps.Users.Get(ctx, formatID(userID))
	if err != nil && !errors.Is(err, domain.ErrSubscriptionNotFound) {
		r.fail(ctx, to, "subscription_lookup_failed", err)
		return
	}
	if sub.LocationID == "" {
		r.reply(ctx, to, render.NeedLocation(), catalogueKeyboard())
		return
	}

	r.withLocation(ctx, to, sub.LocationID, fn)
}

func (r *Router) withLocation(ctx context.Context, to target, id string, fn func(context.Context, target, domain.Location)) {
	loc, ok := r.deps.Catalogue.Location(id)
	if !ok {
		r.reply(ctx, to, render.NotFound(), catalogueKeyboard())
		return
	}
	fn(ctx, to, loc)
}

func (r *Router) guard(ctx context.Context, userID int64, to target) bool {
	if r.isAdmin(userID) {
		return true
	}

	r.logger.WithFields(logging.Fields{
		"event":   "admin_denied",
		"user_id": userID,
	}).Warn("non-admin attempted admin action")
	r.reply(ctx, to, render.Forbidden(), nil)
	return false
}

func (r *Router) reply(ctx context.Context, to target, text string, markup *models.InlineKeyboardMarkup) {
	var replyMarkup models.ReplyMarkup
	if markup != nil {
		replyMarkup = markup
	}

	if err := r.sender.edit(ctx, to.chatID, to.messageID, text, replyMarkup); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "telegram_reply_failed",
			"chat_id": to.chatID,
			"reason":  string(domain.FailureReasonOf(err)),
		}).WithError(err).Warn("failed to reply")
	}
}

func (r *Router) fail(ctx context.Context, to target, event string, err error) {
	r.logger.WithFields(logging.Fields{
		"event":   event,
		"chat_id": to.chatID,
	}).WithError(err).Error("request failed")
	r.reply(ctx, to, render.Failure(), mainKeyboard())
}

// splitCommand turns "/cmd@bot args" into ("cmd", "args").
func splitCommand(text string) (string, string) {
	head, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	head = strings.TrimPrefix(head, "/")
	if at := strings.Index(head, "@"); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(args)
}

// splitCallback separates a prefixed action from its location id.
func splitCallback(data string) (string, string) {
	for _, prefix := range []string{
		prefixSelectMonth,
		prefixBackToLoc,
		prefixSubOn,
		prefixSubOff,
		prefixLocation,
		prefixDay,
		prefixMonth,
		prefixYear,
	} {
		if id, ok := strings.CutPrefix(data, prefix); ok && id != "" {
			return prefix, id
		}
	}
	return data, ""
}

// splitMonth parses "<month name>_<id>" from select_month callbacks.
func splitMonth(value string) (time.Month, string, bool) {
	name, id, ok := strings.Cut(value, "_")
	if !ok || id == "" {
		return 0, "", false
	}
	month, ok := render.ParseMonth(name)
	if !ok {
		return 0, "", false
	}
	return month, id, true
}

// actionLabel keeps metric labels bounded to the known set.
func actionLabel(action string, known map[string]bool) string {
	if known[action] {
		return strings.TrimSuffix(action, "_")
	}
	return "unknown"
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func userLabel(id int64) string {
	if id == 0 {
		return ""
	}
	return formatID(id)
}
