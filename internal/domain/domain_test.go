package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParsePrayersKeepsDayOrderAndDropsDuplicates(t *testing.T) {
	got, err := ParsePrayers(" isha, Fajr,шурук ,fajr")
	if err != nil {
		t.Fatalf("ParsePrayers returned error: %v", err)
	}

	want := []Prayer{PrayerFajr, PrayerSunrise, PrayerIsha}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestParsePrayersRejectsUnknownAndEmpty(t *testing.T) {
	if _, err := ParsePrayers("Fajr,Tahajjud"); err == nil {
		t.Fatalf("expected error for unknown prayer")
	}
	if _, err := ParsePrayers(" , "); err == nil {
		t.Fatalf("expected error for empty list")
	}
}

func TestClockUnmarshal(t *testing.T) {
	var entry DayEntry
	if err := json.Unmarshal([]byte(`{"Fajr":[5,12],"Dhuhr":[12,0]}`), &entry); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	fajr, ok := entry.Time(PrayerFajr)
	if !ok || fajr.String() != "05:12" {
		t.Fatalf("expected Fajr 05:12, got %v (present=%v)", fajr, ok)
	}
	if _, ok := entry.Time(PrayerAsr); ok {
		t.Fatalf("expected Asr to be absent")
	}

	for _, raw := range []string{`{"Fajr":[5]}`, `{"Fajr":[25,0]}`, `{"Fajr":"05:12"}`} {
		var bad DayEntry
		if err := json.Unmarshal([]byte(raw), &bad); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestClockOn(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	day := time.Date(2025, time.March, 14, 23, 59, 0, 0, loc)

	got := Clock{Hour: 5, Minute: 12}.On(day, loc)
	want := time.Date(2025, time.March, 14, 5, 12, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFailureReasonOf(t *testing.T) {
	unreachable := &DeliveryError{Reason: FailureUnreachable, Err: errors.New("forbidden")}

	tests := []struct {
		name string
		err  error
		want FailureReason
	}{
		{name: "unreachable", err: unreachable, want: FailureUnreachable},
		{name: "wrapped unreachable", err: fmt.Errorf("send: %w", unreachable), want: FailureUnreachable},
		{name: "transient", err: &DeliveryError{Reason: FailureTransient}, want: FailureTransient},
		{name: "plain error", err: errors.New("timeout"), want: FailureTransient},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureReasonOf(tt.err); got != tt.want {
				t.Fatalf("FailureReasonOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSubscriptionActive(t *testing.T) {
	if (Subscription{Subscribed: true}).Active() {
		t.Fatalf("subscription without location must not be active")
	}
	if (Subscription{LocationID: "7"}).Active() {
		t.Fatalf("unsubscribed record must not be active")
	}
	if !(Subscription{Subscribed: true, LocationID: "7"}).Active() {
		t.Fatalf("expected subscribed record with location to be active")
	}
}

func TestParseRevokePolicy(t *testing.T) {
	if p, err := ParseRevokePolicy(" Delete "); err != nil || p != RevokeDelete {
		t.Fatalf("expected delete policy, got %q (%v)", p, err)
	}
	if _, err := ParseRevokePolicy("archive"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
