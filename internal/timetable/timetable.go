// Package timetable loads the location catalogue and per-location prayer time
// tables from disk and serves read-only lookups over them.
package timetable

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/logging"
)

const (
	// CatalogueFile is the location list inside the data directory.
	CatalogueFile = "cities-areas.json"
	// TimesDir holds one <id>.json time table per location.
	TimesDir = "cities-areas"
	// SearchLimit caps the number of search results.
	SearchLimit = 10
)

// ErrNoTimes reports a catalogue location without a loaded time table.
var ErrNoTimes = errors.New("no time table for location")

// monthTable maps zero-padded day numbers ("01".."31") to that day's entry.
type monthTable map[string]domain.DayEntry

// yearTable maps English month names ("January") to their month table.
type yearTable map[string]monthTable

type catalogueFile struct {
	Cities []struct {
		ID   flexID `json:"id"`
		Name string `json:"name_cities"`
	} `json:"cities"`
	Areas []struct {
		ID   flexID `json:"id"`
		Name string `json:"name_areas"`
	} `json:"areas"`
}

// flexID accepts both numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode location id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// Provider is an immutable in-memory view of the data directory. It is safe for
// concurrent use.
type Provider struct {
	locations []domain.Location
	byID      map[string]domain.Location
	folded    map[string]string
	times     map[string]yearTable
}

// NewProvider reads the catalogue and every location's time table from dir.
// A missing catalogue yields an empty provider; a malformed one is an error.
// Time tables that are missing, empty or malformed leave the location without
// times.
func NewProvider(dir string, logger *logrus.Entry) (*Provider, error) {
	if logger == nil {
		logger = logging.Logger()
	}

	p := &Provider{
		byID:   make(map[string]domain.Location),
		folded: make(map[string]string),
		times:  make(map[string]yearTable),
	}

	raw, err := os.ReadFile(filepath.Join(dir, CatalogueFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.WithFields(logging.Fields{
				"event": "catalogue_missing",
				"path":  filepath.Join(dir, CatalogueFile),
			}).Warn("location catalogue not found; starting with no locations")
			return p, nil
		}
		return nil, fmt.Errorf("read catalogue: %w", err)
	}

	var catalogue catalogueFile
	if err := json.Unmarshal(raw, &catalogue); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	for _, c := range catalogue.Cities {
		p.add(domain.Location{ID: string(c.ID), Kind: domain.LocationCity, Name: strings.TrimSpace(c.Name)}, logger)
	}
	for _, a := range catalogue.Areas {
		p.add(domain.Location{ID: string(a.ID), Kind: domain.LocationDistrict, Name: strings.TrimSpace(a.Name)}, logger)
	}

	for _, loc := range p.locations {
		table, err := loadTimes(filepath.Join(dir, TimesDir, loc.ID+".json"))
		if err != nil {
			logger.WithFields(logging.Fields{
				"event":       "timetable_load_failed",
				"location_id": loc.ID,
				"error":       err,
			}).Warn("time table unavailable")
			continue
		}
		if len(table) > 0 {
			p.times[loc.ID] = table
		}
	}

	logger.WithFields(logging.Fields{
		"event":      "timetable_loaded",
		"cities":     len(p.Cities()),
		"districts":  len(p.Districts()),
		"with_times": len(p.times),
	}).Info("time tables loaded")

	return p, nil
}

func (p *Provider) add(loc domain.Location, logger *logrus.Entry) {
	if loc.ID == "" || loc.Name == "" {
		logger.WithFields(logging.Fields{
			"event": "catalogue_entry_skipped",
			"id":    loc.ID,
			"name":  loc.Name,
		}).Warn("skipping incomplete catalogue entry")
		return
	}
	if _, dup := p.byID[loc.ID]; dup {
		logger.WithFields(logging.Fields{
			"event":       "catalogue_entry_skipped",
			"location_id": loc.ID,
		}).Warn("skipping duplicate catalogue id")
		return
	}

	p.locations = append(p.locations, loc)
	p.byID[loc.ID] = loc
	p.folded[loc.ID] = fold(loc.Name)
}

func loadTimes(path string) (yearTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read time table: %w", err)
	}

	var table yearTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("decode time table: %w", err)
	}

	return table, nil
}

// Locations returns cities followed by districts in catalogue order.
func (p *Provider) Locations() []domain.Location {
	out := make([]domain.Location, len(p.locations))
	copy(out, p.locations)
	return out
}

// Cities returns the city entries in catalogue order.
func (p *Provider) Cities() []domain.Location {
	return p.ofKind(domain.LocationCity)
}

// Districts returns the district entries in catalogue order.
func (p *Provider) Districts() []domain.Location {
	return p.ofKind(domain.LocationDistrict)
}

func (p *Provider) ofKind(kind domain.LocationKind) []domain.Location {
	out := make([]domain.Location, 0, len(p.locations))
	for _, loc := range p.locations {
		if loc.Kind == kind {
			out = append(out, loc)
		}
	}
	return out
}

// Location looks up a catalogue entry by id.
func (p *Provider) Location(id string) (domain.Location, bool) {
	loc, ok := p.byID[strings.TrimSpace(id)]
	return loc, ok
}

// Search returns up to SearchLimit locations whose name contains query,
// ignoring case and the ё/е distinction.
func (p *Provider) Search(query string) []domain.Location {
	needle := fold(query)
	if needle == "" {
		return nil
	}

	out := make([]domain.Location, 0, SearchLimit)
	for _, loc := range p.locations {
		if strings.Contains(p.folded[loc.ID], needle) {
			out = append(out, loc)
			if len(out) == SearchLimit {
				break
			}
		}
	}
	return out
}

// Times returns a copy of the location's whole time table, keyed by English
// month name and zero-padded day. It fails with domain.ErrLocationNotFound
// for ids outside the catalogue and ErrNoTimes when no table was loaded.
func (p *Provider) Times(id string) (map[string]map[string]domain.DayEntry, error) {
	id = strings.TrimSpace(id)
	if _, ok := p.byID[id]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrLocationNotFound, id)
	}
	table, ok := p.times[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTimes, id)
	}

	out := make(map[string]map[string]domain.DayEntry, len(table))
	for month, days := range table {
		copied := make(map[string]domain.DayEntry, len(days))
		for day, entry := range days {
			copied[day] = entry
		}
		out[month] = copied
	}
	return out, nil
}

// HasTimes reports whether a non-empty time table exists for the location.
func (p *Provider) HasTimes(id string) bool {
	_, ok := p.times[id]
	return ok
}

// TodayEntry returns the entry for the calendar day of date. Time tables are
// year-agnostic: only the month and day are used.
func (p *Provider) TodayEntry(id string, date time.Time) (domain.DayEntry, bool) {
	month, ok := p.times[id][date.Month().String()]
	if !ok {
		return domain.DayEntry{}, false
	}

	entry, ok := month[dayKey(date.Day())]
	return entry, ok
}

// Month returns the location's entries for month keyed by day of month.
func (p *Provider) Month(id string, month time.Month) (map[int]domain.DayEntry, bool) {
	table, ok := p.times[id][month.String()]
	if !ok || len(table) == 0 {
		return nil, false
	}

	out := make(map[int]domain.DayEntry, len(table))
	for key, entry := range table {
		day, err := strconv.Atoi(key)
		if err != nil || day < 1 || day > 31 {
			continue
		}
		out[day] = entry
	}
	return out, len(out) > 0
}

func dayKey(day int) string {
	return fmt.Sprintf("%02d", day)
}

func fold(value string) string {
	folded := cases.Fold().String(strings.TrimSpace(value))
	return strings.ReplaceAll(folded, "ё", "е")
}
