// Package domain defines shared domain constants and types.
package domain

import (
	"fmt"
	"strings"
)

// Prayer names one of the six daily prayer times in a time table.
type Prayer string

const (
	PrayerFajr    Prayer = "Fajr"
	PrayerSunrise Prayer = "Sunrise"
	PrayerDhuhr   Prayer = "Dhuhr"
	PrayerAsr     Prayer = "Asr"
	PrayerMaghrib Prayer = "Maghrib"
	PrayerIsha    Prayer = "Isha"
)

// AllPrayers lists the prayers in the order they occur during the day.
var AllPrayers = []Prayer{
	PrayerFajr,
	PrayerSunrise,
	PrayerDhuhr,
	PrayerAsr,
	PrayerMaghrib,
	PrayerIsha,
}

// DefaultNotifiable is the reminder set used when none is configured.
// Sunrise is informational and is left out.
var DefaultNotifiable = []Prayer{
	PrayerFajr,
	PrayerDhuhr,
	PrayerAsr,
	PrayerMaghrib,
	PrayerIsha,
}

var prayerLabels = map[Prayer]string{
	PrayerFajr:    "Фаджр",
	PrayerSunrise: "Шурук",
	PrayerDhuhr:   "Зухр",
	PrayerAsr:     "Аср",
	PrayerMaghrib: "Магриб",
	PrayerIsha:    "Иша",
}

// Label returns the Russian display name of the prayer.
func (p Prayer) Label() string {
	if label, ok := prayerLabels[p]; ok {
		return label
	}
	return string(p)
}

// ParsePrayer resolves a prayer from its canonical or Russian name, ignoring case.
func ParsePrayer(value string) (Prayer, error) {
	needle := strings.TrimSpace(value)
	for _, p := range AllPrayers {
		if strings.EqualFold(needle, string(p)) || strings.EqualFold(needle, prayerLabels[p]) {
			return p, nil
		}
	}
	if strings.EqualFold(needle, "Восход") {
		return PrayerSunrise, nil
	}

	return "", fmt.Errorf("unknown prayer %q", value)
}

// ParsePrayers parses a comma-separated list, dropping duplicates and keeping
// the order of AllPrayers.
func ParsePrayers(value string) ([]Prayer, error) {
	seen := make(map[Prayer]bool)
	for _, raw := range strings.Split(value, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := ParsePrayer(raw)
		if err != nil {
			return nil, err
		}
		seen[p] = true
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("prayer list %q is empty", value)
	}

	out := make([]Prayer, 0, len(seen))
	for _, p := range AllPrayers {
		if seen[p] {
			out = append(out, p)
		}
	}

	return out, nil
}
