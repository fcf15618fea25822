package telegram

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"ruznama_bot/internal/domain"
)

type outgoing struct {
	chatID    int64
	messageID int
	text      string
	markup    models.ReplyMarkup
}

// fakeBot records every Bot API call.
type fakeBot struct {
	mu          sync.Mutex
	sent        []outgoing
	edited      []outgoing
	log         []outgoing
	answered    []string
	sendErrs    map[int64]error
	editErr     error
	webhook     *bot.SetWebhookParams
	webhookErr  error
	startedWith context.Context
	mode        string
}

func newFakeBot() *fakeBot {
	return &fakeBot{sendErrs: make(map[int64]error)}
}

func (f *fakeBot) Start(ctx context.Context) {
	f.startedWith = ctx
	f.mode = "polling"
}

func (f *fakeBot) StartWebhook(ctx context.Context) {
	f.startedWith = ctx
	f.mode = "webhook"
}

func (f *fakeBot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}
}

func (f *fakeBot) SetWebhook(_ context.Context, params *bot.SetWebhookParams) (bool, error) {
	f.webhook = params
	return f.webhookErr == nil, f.webhookErr
}

func (f *fakeBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	chat, _ := params.ChatID.(int64)
	if err := f.sendErrs[chat]; err != nil {
		return nil, err
	}
	msg := outgoing{chatID: chat, text: params.Text, markup: params.ReplyMarkup}
	f.sent = append(f.sent, msg)
	f.log = append(f.log, msg)
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeBot) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.editErr != nil {
		return nil, f.editErr
	}
	chat, _ := params.ChatID.(int64)
	msg := outgoing{chatID: chat, messageID: params.MessageID, text: params.Text, markup: params.ReplyMarkup}
	f.edited = append(f.edited, msg)
	f.log = append(f.log, msg)
	return &models.Message{ID: params.MessageID}, nil
}

func (f *fakeBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.answered = append(f.answered, params.CallbackQueryID)
	return true, nil
}

// last returns the most recent sent or edited message.
func (f *fakeBot) last() outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.log) == 0 {
		return outgoing{}
	}
	return f.log[len(f.log)-1]
}

func (f *fakeBot) sentTo(chat int64) []outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]outgoing, 0)
	for _, msg := range f.sent {
		if msg.chatID == chat {
			out = append(out, msg)
		}
	}
	return out
}

// callbacks lists the callback data of an inline keyboard.
func callbacks(markup models.ReplyMarkup) []string {
	kb, ok := markup.(*models.InlineKeyboardMarkup)
	if !ok || kb == nil {
		return nil
	}

	out := make([]string, 0)
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.CallbackData)
		}
	}
	return out
}

func hasCallback(markup models.ReplyMarkup, data string) bool {
	for _, cb := range callbacks(markup) {
		if cb == data {
			return true
		}
	}
	return false
}

type fakeUsers struct {
	mu       sync.Mutex
	subs     map[string]domain.Subscription
	created  []string
	getErr   error
	setCalls int
}

func newFakeUsers(subs ...domain.Subscription) *fakeUsers {
	f := &fakeUsers{subs: make(map[string]domain.Subscription)}
	for _, sub := range subs {
		f.subs[sub.UserID] = sub
	}
	return f
}

func (f *fakeUsers) EnsureUser(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[userID]; ok {
		return false, nil
	}
	f.subs[userID] = domain.Subscription{UserID: userID}
	f.created = append(f.created, userID)
	return true, nil
}

func (f *fakeUsers) SetLocation(_ context.Context, userID, locationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := f.subs[userID]
	sub.UserID = userID
	sub.LocationID = locationID
	f.subs[userID] = sub
	return nil
}

func (f *fakeUsers) SetSubscribed(_ context.Context, userID string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setCalls++
	sub, ok := f.subs[userID]
	if !ok {
		return domain.ErrSubscriptionNotFound
	}
	sub.Subscribed = value
	f.subs[userID] = sub
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[userID]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	delete(f.subs, userID)
	return nil
}

func (f *fakeUsers) Get(_ context.Context, userID string) (domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return domain.Subscription{}, f.getErr
	}
	sub, ok := f.subs[userID]
	if !ok {
		return domain.Subscription{}, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (f *fakeUsers) ListAll(context.Context) ([]domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeUsers) get(userID string) domain.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[userID]
}

type fakeQuotes struct {
	quotes []domain.Quote
}

func (f *fakeQuotes) Add(_ context.Context, text, author string) (domain.Quote, error) {
	q := domain.Quote{Text: text, Author: author}
	f.quotes = append(f.quotes, q)
	return q, nil
}

func (f *fakeQuotes) List(context.Context) ([]domain.Quote, error) {
	return append([]domain.Quote(nil), f.quotes...), nil
}

func (f *fakeQuotes) DeleteAt(_ context.Context, n int) (domain.Quote, error) {
	if n < 1 || n > len(f.quotes) {
		return domain.Quote{}, domain.ErrQuoteNotFound
	}
	q := f.quotes[n-1]
	f.quotes = append(f.quotes[:n-1], f.quotes[n:]...)
	return q, nil
}

func (f *fakeQuotes) Random(context.Context) (domain.Quote, error) {
	if len(f.quotes) == 0 {
		return domain.FallbackQuote, nil
	}
	return f.quotes[0], nil
}

type fakeCatalogue struct {
	locations map[string]domain.Location
	times     map[string]map[time.Month]map[int]domain.DayEntry
}

func newFakeCatalogue() *fakeCatalogue {
	return &fakeCatalogue{
		locations: map[string]domain.Location{
			"1": {ID: "1", Kind: domain.LocationCity, Name: "Казань"},
			"2": {ID: "2", Kind: domain.LocationDistrict, Name: "Арский район"},
		},
		times: map[string]map[time.Month]map[int]domain.DayEntry{
			"1": {
				time.March: {
					14: {Fajr: &domain.Clock{Hour: 5, Minute: 12}, Dhuhr: &domain.Clock{Hour: 12, Minute: 30}},
				},
			},
		},
	}
}

func (f *fakeCatalogue) ofKind(kind domain.LocationKind) []domain.Location {
	out := make([]domain.Location, 0)
	for _, loc := range f.locations {
		if loc.Kind == kind {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeCatalogue) Cities() []domain.Location    { return f.ofKind(domain.LocationCity) }
func (f *fakeCatalogue) Districts() []domain.Location { return f.ofKind(domain.LocationDistrict) }

func (f *fakeCatalogue) Location(id string) (domain.Location, bool) {
	loc, ok := f.locations[id]
	return loc, ok
}

func (f *fakeCatalogue) Search(query string) []domain.Location {
	out := make([]domain.Location, 0)
	for _, loc := range f.locations {
		if strings.Contains(strings.ToLower(loc.Name), strings.ToLower(strings.TrimSpace(query))) {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeCatalogue) HasTimes(id string) bool {
	_, ok := f.times[id]
	return ok
}

func (f *fakeCatalogue) TodayEntry(id string, date time.Time) (domain.DayEntry, bool) {
	entry, ok := f.times[id][date.Month()][date.Day()]
	return entry, ok
}

func (f *fakeCatalogue) Month(id string, month time.Month) (map[int]domain.DayEntry, bool) {
	days, ok := f.times[id][month]
	return days, ok
}

type fakeStats struct {
	users, subscribed, quotes int64
	err                       error
}

func (f fakeStats) CountUsers(context.Context) (int64, error)      { return f.users, f.err }
func (f fakeStats) CountSubscribed(context.Context) (int64, error) { return f.subscribed, f.err }
func (f fakeStats) CountQuotes(context.Context) (int64, error)     { return f.quotes, f.err }
