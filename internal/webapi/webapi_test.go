package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/timetable"
)

var msk = time.FixedZone("MSK", 3*60*60)

func newTestHandler(t *testing.T, quotes *fakeQuotes) (*Handler, *logtest.Hook) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	h, err := New(newFakeCatalogue(), quotes, msk, logrus.NewEntry(logger))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	h.now = func() time.Time { return time.Date(2025, time.March, 14, 23, 30, 0, 0, time.UTC) }
	return h, hook
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestLocations(t *testing.T) {
	h, _ := newTestHandler(t, &fakeQuotes{})

	rr := serve(h, http.MethodGet, "/api/locations")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body struct {
		Cities []map[string]string `json:"cities"`
		Areas  []map[string]string `json:"areas"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Cities) != 1 || body.Cities[0]["id"] != "1" || body.Cities[0]["name_cities"] != "Курах" {
		t.Fatalf("unexpected cities: %v", body.Cities)
	}
	if len(body.Areas) != 2 || body.Areas[1]["name_areas"] != "Усуг" {
		t.Fatalf("unexpected areas: %v", body.Areas)
	}
}

func TestLocationsEmptyCatalogue(t *testing.T) {
	h, err := New(&fakeCatalogue{}, &fakeQuotes{}, msk, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rr := serve(h, http.MethodGet, "/api/locations")
	if body := strings.TrimSpace(rr.Body.String()); body != `{"cities":[],"areas":[]}` {
		t.Fatalf("expected empty arrays, got %s", body)
	}
}

func TestTimes(t *testing.T) {
	h, _ := newTestHandler(t, &fakeQuotes{})

	cases := []struct {
		target string
		code   int
		want   string
	}{
		{target: "/api/times/1", code: http.StatusOK, want: `"Fajr":[5,0]`},
		{target: "/api/times/abc", code: http.StatusBadRequest, want: "Неверный ID"},
		{target: "/api/times/1%3B2", code: http.StatusBadRequest, want: "Неверный ID"},
		{target: "/api/times/999", code: http.StatusNotFound, want: "Расписание не найдено"},
		{target: "/api/times/11", code: http.StatusNotFound, want: "Расписание не найдено"},
		{target: "/api/times/13", code: http.StatusInternalServerError, want: "Ошибка сервера"},
	}

	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rr := serve(h, http.MethodGet, tc.target)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tc.want) {
				t.Fatalf("expected %q in %s", tc.want, rr.Body.String())
			}
		})
	}
}

func TestRejectsNonGet(t *testing.T) {
	h, _ := newTestHandler(t, &fakeQuotes{})

	for _, target := range []string{"/api/locations", "/api/quote", "/api/times/1", "/api/times-today?id=1"} {
		rr := serve(h, http.MethodPost, target)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", target, rr.Code)
		}
		if rr.Header().Get("Allow") != http.MethodGet {
			t.Fatalf("%s: expected Allow header", target)
		}
	}
}

func TestQuote(t *testing.T) {
	h, _ := newTestHandler(t, &fakeQuotes{quote: domain.Quote{Text: "Намаз есть опора религии.", Author: "Байхаки"}})

	rr := serve(h, http.MethodGet, "/api/quote")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"text":"Намаз есть опора религии.","author":"Байхаки"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestQuoteStoreFailure(t *testing.T) {
	h, hook := newTestHandler(t, &fakeQuotes{err: errors.New("mongo down")})

	rr := serve(h, http.MethodGet, "/api/quote")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Ошибка загрузки хадиса.") {
		t.Fatalf("expected fallback hadith, got %s", rr.Body.String())
	}
	if hook.LastEntry() == nil || hook.LastEntry().Data["event"] != "webapi_quote_failed" {
		t.Fatalf("expected webapi_quote_failed log")
	}
}

func TestTimesToday(t *testing.T) {
	h, _ := newTestHandler(t, &fakeQuotes{quote: domain.Quote{Text: "hadith"}})

	// 23:30 UTC is already the 15th in Moscow
	rr := serve(h, http.MethodGet, "/api/times-today?id=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Date  string          `json:"date"`
		Times domain.DayEntry `json:"times"`
		Quote string          `json:"quote"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Date != "2025-03-15" || body.Name != "Курах" || body.Quote != "hadith" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Times.Fajr == nil || body.Times.Fajr.String() != "05:00" {
		t.Fatalf("unexpected times: %+v", body.Times)
	}
}

func TestTimesTodayErrors(t *testing.T) {
	h, _ := newTestHandler(t, &fakeQuotes{err: errors.New("mongo down")})

	cases := []struct {
		target string
		code   int
	}{
		{target: "/api/times-today", code: http.StatusBadRequest},
		{target: "/api/times-today?id=x1", code: http.StatusBadRequest},
		{target: "/api/times-today?id=999", code: http.StatusNotFound},
		{target: "/api/times-today?id=11", code: http.StatusNotFound},
	}
	for _, tc := range cases {
		if rr := serve(h, http.MethodGet, tc.target); rr.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.target, tc.code, rr.Code)
		}
	}

	rr := serve(h, http.MethodGet, "/api/times-today?id=1")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), domain.FallbackQuote.Text) {
		t.Fatalf("expected fallback hadith when the store fails, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestUnknownPath(t *testing.T) {
	h, _ := newTestHandler(t, &fakeQuotes{})

	if rr := serve(h, http.MethodGet, "/api/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(nil, &fakeQuotes{}, nil, nil); err == nil {
		t.Fatalf("expected error for missing catalogue")
	}
	if _, err := New(&fakeCatalogue{}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for missing quote source")
	}
}

type fakeCatalogue struct {
	locations []domain.Location
	times     map[string]map[string]map[string]domain.DayEntry
	broken    map[string]bool
}

func newFakeCatalogue() *fakeCatalogue {
	return &fakeCatalogue{
		locations: []domain.Location{
			{ID: "1", Kind: domain.LocationCity, Name: "Курах"},
			{ID: "11", Kind: domain.LocationDistrict, Name: "Ашага-Яраг"},
			{ID: "13", Kind: domain.LocationDistrict, Name: "Усуг"},
		},
		times: map[string]map[string]map[string]domain.DayEntry{
			"1": {"March": {"15": {Fajr: &domain.Clock{Hour: 5, Minute: 0}}}},
		},
		broken: map[string]bool{"13": true},
	}
}

func (f *fakeCatalogue) Locations() []domain.Location {
	return f.locations
}

func (f *fakeCatalogue) Location(id string) (domain.Location, bool) {
	for _, loc := range f.locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return domain.Location{}, false
}

func (f *fakeCatalogue) Times(id string) (map[string]map[string]domain.DayEntry, error) {
	if f.broken[id] {
		return nil, errors.New("disk on fire")
	}
	if _, ok := f.Location(id); !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrLocationNotFound, id)
	}
	table, ok := f.times[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", timetable.ErrNoTimes, id)
	}
	return table, nil
}

func (f *fakeCatalogue) TodayEntry(id string, date time.Time) (domain.DayEntry, bool) {
	entry, ok := f.times[id][date.Month().String()][fmt.Sprintf("%02d", date.Day())]
	return entry, ok
}

type fakeQuotes struct {
	quote domain.Quote
	err   error
}

func (f *fakeQuotes) Random(context.Context) (domain.Quote, error) {
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return f.quote, nil
}
