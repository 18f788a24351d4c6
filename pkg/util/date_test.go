package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDateKey(t *testing.T) {
	loc := time.Local
	at := time.Date(2025, 3, 7, 15, 4, 5, 0, loc)
	if got := DateKey(at); got != "2025-03-07" {
		t.Fatalf("unexpected date key %s", got)
	}
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2025, 3, 7, 15, 4, 5, 0, time.Local)
	start, end := DayBounds(at)
	if !start.Before(at) || !end.After(at) {
		t.Fatalf("bounds do not contain t: %v %v", start, end)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("expected 24h day, got %v", end.Sub(start))
	}
}
