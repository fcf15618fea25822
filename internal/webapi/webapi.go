// Package webapi serves the read-only JSON endpoints used by the Telegram web
// app: the location catalogue, time tables and a random hadith.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/logging"
	"ruznama_bot/internal/metrics"
	"ruznama_bot/internal/timetable"
)

const (
	// Prefix is the path the API is mounted under.
	Prefix = "/api/"

	quoteTimeout = 5 * time.Second
)

var numericID = regexp.MustCompile(`^\d+$`)

// Catalogue is the time table view the API reads from.
type Catalogue interface {
	Locations() []domain.Location
	Location(id string) (domain.Location, bool)
	Times(id string) (map[string]map[string]domain.DayEntry, error)
	TodayEntry(id string, date time.Time) (domain.DayEntry, bool)
}

// QuoteSource picks a hadith to show.
type QuoteSource interface {
	Random(ctx context.Context) (domain.Quote, error)
}

// Handler routes /api/ requests.
type Handler struct {
	catalogue Catalogue
	quotes    QuoteSource
	location  *time.Location
	logger    *logrus.Entry
	now       func() time.Time
	mux       *http.ServeMux
}

type errorBody struct {
	Error string `json:"error"`
}

type cityBody struct {
	ID   string `json:"id"`
	Name string `json:"name_cities"`
}

type areaBody struct {
	ID   string `json:"id"`
	Name string `json:"name_areas"`
}

type locationsBody struct {
	Cities []cityBody `json:"cities"`
	Areas  []areaBody `json:"areas"`
}

type todayBody struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Date  string          `json:"date"`
	Times domain.DayEntry `json:"times"`
	Quote string          `json:"quote"`
}

// New builds the API handler. Dates for the today endpoint are taken in loc.
func New(catalogue Catalogue, quotes QuoteSource, loc *time.Location, logger *logrus.Entry) (*Handler, error) {
	if catalogue == nil {
		return nil, errors.New("catalogue is required")
	}
	if quotes == nil {
		return nil, errors.New("quote source is required")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Logger()
	}

	h := &Handler{
		catalogue: catalogue,
		quotes:    quotes,
		location:  loc,
		logger:    logger,
		now:       time.Now,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc(Prefix+"locations", h.getOnly("locations", h.handleLocations))
	h.mux.HandleFunc(Prefix+"quote", h.getOnly("quote", h.handleQuote))
	h.mux.HandleFunc(Prefix+"times/{id}", h.getOnly("times", h.handleTimes))
	h.mux.HandleFunc(Prefix+"times-today", h.getOnly("times_today", h.handleToday))
	h.mux.HandleFunc(Prefix, func(w http.ResponseWriter, r *http.Request) {
		h.write(w, "unknown", http.StatusNotFound, errorBody{Error: "Не найдено"})
	})

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type endpointFunc func(w http.ResponseWriter, r *http.Request, endpoint string)

func (h *Handler) getOnly(endpoint string, next endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			h.write(w, endpoint, http.StatusMethodNotAllowed, errorBody{Error: "Метод не разрешён"})
			return
		}
		next(w, r, endpoint)
	}
}

func (h *Handler) handleLocations(w http.ResponseWriter, _ *http.Request, endpoint string) {
	body := locationsBody{Cities: []cityBody{}, Areas: []areaBody{}}
	for _, loc := range h.catalogue.Locations() {
		if loc.Kind == domain.LocationCity {
			body.Cities = append(body.Cities, cityBody{ID: loc.ID, Name: loc.Name})
			continue
		}
		body.Areas = append(body.Areas, areaBody{ID: loc.ID, Name: loc.Name})
	}

	h.write(w, endpoint, http.StatusOK, body)
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request, endpoint string) {
	ctx, cancel := context.WithTimeout(r.Context(), quoteTimeout)
	defer cancel()

	q, err := h.quotes.Random(ctx)
	if err != nil {
		h.logger.WithField("event", "webapi_quote_failed").WithError(err).Error("failed to load hadith")
		h.write(w, endpoint, http.StatusInternalServerError, domain.Quote{Text: "Ошибка загрузки хадиса.", Author: "Администрация"})
		return
	}

	h.write(w, endpoint, http.StatusOK, q)
}

func (h *Handler) handleTimes(w http.ResponseWriter, r *http.Request, endpoint string) {
	id := r.PathValue("id")
	if !numericID.MatchString(id) {
		h.write(w, endpoint, http.StatusBadRequest, errorBody{Error: "Неверный ID"})
		return
	}

	table, err := h.catalogue.Times(id)
	switch {
	case errors.Is(err, domain.ErrLocationNotFound), errors.Is(err, timetable.ErrNoTimes):
		h.write(w, endpoint, http.StatusNotFound, errorBody{Error: "Расписание не найдено"})
	case err != nil:
		logging.WithContext(h.logger, logging.Context{LocationID: id, Event: "webapi_times_failed"}).
			WithError(err).Error("failed to load time table")
		h.write(w, endpoint, http.StatusInternalServerError, errorBody{Error: "Ошибка сервера"})
	default:
		h.write(w, endpoint, http.StatusOK, table)
	}
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request, endpoint string) {
	id := r.URL.Query().Get("id")
	if !numericID.MatchString(id) {
		h.write(w, endpoint, http.StatusBadRequest, errorBody{Error: "Неверный ID"})
		return
	}

	loc, ok := h.catalogue.Location(id)
	if !ok {
		h.write(w, endpoint, http.StatusNotFound, errorBody{Error: "Место не найдено"})
		return
	}

	today := h.now().In(h.location)
	entry, ok := h.catalogue.TodayEntry(loc.ID, today)
	if !ok {
		h.write(w, endpoint, http.StatusNotFound, errorBody{Error: "Расписание не найдено"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), quoteTimeout)
	defer cancel()

	q, err := h.quotes.Random(ctx)
	if err != nil {
		logging.WithContext(h.logger, logging.Context{LocationID: loc.ID, Event: "webapi_quote_failed"}).
			WithError(err).Warn("serving today without a fresh hadith")
		q = domain.FallbackQuote
	}

	h.write(w, endpoint, http.StatusOK, todayBody{
		ID:    loc.ID,
		Name:  loc.Name,
		Date:  today.Format(time.DateOnly),
		Times: entry,
		Quote: q.Text,
	})
}

func (h *Handler) write(w http.ResponseWriter, endpoint string, status int, body any) {
	metrics.IncAPIRequest(endpoint, status)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithFields(logging.Fields{
			"event":    "webapi_write_error",
			"endpoint": endpoint,
		}).WithError(err).Error("failed to encode api response")
	}
}
