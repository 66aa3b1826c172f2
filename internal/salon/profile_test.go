package salon

import (
	"testing"
	"time"
)

func TestHoursOnUsesSalonTimezone(t *testing.T) {
	p := DefaultProfile("salon-1")
	loc := p.Location()
	if loc.String() != "Asia/Kolkata" {
		t.Fatalf("expected Asia/Kolkata, got %s", loc)
	}

	// 2026-10-19 is a Monday.
	open, close, ok := p.HoursOn(time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("expected salon open on Tuesday local time")
	}
	// 22:00 UTC on Monday is already Tuesday 03:30 in Kolkata.
	if open.Weekday() != time.Tuesday || open.Hour() != 9 || close.Hour() != 18 {
		t.Fatalf("unexpected hours %s - %s", open, close)
	}
}

func TestHoursOnClosedDay(t *testing.T) {
	p := DefaultProfile("salon-1")
	sunday := time.Date(2026, 10, 25, 12, 0, 0, 0, p.Location())
	if p.IsOpenOn(sunday) {
		t.Fatalf("expected default profile to be closed on Sunday")
	}
}

func TestHoursOnRejectsInvertedHours(t *testing.T) {
	p := DefaultProfile("salon-1")
	p.BusinessHours.Monday = &DayHours{Open: "18:00", Close: "09:00"}
	monday := time.Date(2026, 10, 19, 12, 0, 0, 0, p.Location())
	if p.IsOpenOn(monday) {
		t.Fatalf("expected inverted hours to be treated as closed")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	p := &Profile{Timezone: "Mars/Olympus"}
	if p.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	if p.SlotInterval() != 30*time.Minute {
		t.Fatalf("expected default slot interval, got %s", p.SlotInterval())
	}
	if p.HorizonDays() != 30 {
		t.Fatalf("expected default horizon, got %d", p.HorizonDays())
	}
}

func TestClockMinutes(t *testing.T) {
	got, err := ClockMinutes("09:30")
	if err != nil || got != 570 {
		t.Fatalf("expected 570, got %d err=%v", got, err)
	}
	if _, err := ClockMinutes("9.30"); err == nil {
		t.Fatalf("expected error for malformed clock")
	}
}
