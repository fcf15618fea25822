package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Clock is a wall-clock time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Valid reports whether the clock is within a single day.
func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// On places the clock on the calendar date of day in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// UnmarshalJSON decodes the [hour, minute] pairs used by the time table files.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode clock: %w", err)
	}
	if len(pair) < 2 {
		return fmt.Errorf("decode clock: expected [hour, minute], got %s", string(data))
	}

	parsed := Clock{Hour: pair[0], Minute: pair[1]}
	if !parsed.Valid() {
		return fmt.Errorf("decode clock: %s is out of range", parsed)
	}

	*c = parsed
	return nil
}

// MarshalJSON encodes the clock as an [hour, minute] pair.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal([]int{c.Hour, c.Minute})
}

// DayEntry holds one day's prayer times for one location. Any clock may be
// absent.
type DayEntry struct {
	Fajr    *Clock `json:"Fajr,omitempty"`
	Sunrise *Clock `json:"Sunrise,omitempty"`
	Dhuhr   *Clock `json:"Dhuhr,omitempty"`
	Asr     *Clock `json:"Asr,omitempty"`
	Maghrib *Clock `json:"Maghrib,omitempty"`
	Isha    *Clock `json:"Isha,omitempty"`
}

// Time returns the clock for the prayer when present.
func (e DayEntry) Time(p Prayer) (Clock, bool) {
	var c *Clock
	switch p {
	case PrayerFajr:
		c = e.Fajr
	case PrayerSunrise:
		c = e.Sunrise
	case PrayerDhuhr:
		c = e.Dhuhr
	case PrayerAsr:
		c = e.Asr
	case PrayerMaghrib:
		c = e.Maghrib
	case PrayerIsha:
		c = e.Isha
	}
	if c == nil {
		return Clock{}, false
	}

	return *c, true
}
