package main

import (
	"testing"
	"time"
)

func TestCLIValue(t *testing.T) {
	tests := []struct {
		key, arg, want string
	}{
		{"zoom_level", "125", `125`},
		{"show_clock", "false", `false`},
		{"zip_code", "10115", `"10115"`},
		{"zip_code", `"10115"`, `"10115"`},
		{"lesson_days", "FREQ=WEEKLY;BYDAY=MO", `"FREQ=WEEKLY;BYDAY=MO"`},
		{"lesson_data", `[]`, `[]`},
		{"unknown", "plain words", `"plain words"`},
	}
	for _, tt := range tests {
		if got := string(cliValue(tt.key, tt.arg)); got != tt.want {
			t.Errorf("cliValue(%q, %q) = %s, want %s", tt.key, tt.arg, got, tt.want)
		}
	}
}

func TestEvaluationTime(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 9, 10, 15, 30, 0, loc)

	got, err := evaluationTime(now, "", "")
	if err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for no flags, got %v, %v", got, err)
	}

	got, err = evaluationTime(now, "", "08:45")
	if err != nil || !got.Equal(time.Date(2026, 3, 9, 8, 45, 0, 0, loc)) {
		t.Fatalf("unexpected --at result %v, %v", got, err)
	}

	got, err = evaluationTime(now, "2026-03-14", "")
	if err != nil || !got.Equal(time.Date(2026, 3, 14, 10, 15, 30, 0, loc)) {
		t.Fatalf("unexpected --date result %v, %v", got, err)
	}

	if _, err := evaluationTime(now, "", "24:00"); err == nil {
		t.Fatal("expected invalid --at to fail")
	}
	if _, err := evaluationTime(now, "14.03.2026", ""); err == nil {
		t.Fatal("expected invalid --date to fail")
	}
}

func TestEvaluationTimeOnDSTDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2026, 3, 28, 10, 15, 0, 0, berlin)

	got, err := evaluationTime(now, "2026-03-29", "08:00")
	if err != nil || !got.Equal(time.Date(2026, 3, 29, 8, 0, 0, 0, berlin)) {
		t.Fatalf("unexpected --date --at result %v, %v", got, err)
	}

	got, err = evaluationTime(now, "2026-03-29", "")
	if err != nil || got.Hour() != 10 || got.Minute() != 15 {
		t.Fatalf("expected 10:15 wall clock on the change day, got %v, %v", got, err)
	}

	// Clocks go back at 03:00 on 25 October 2026.
	got, err = evaluationTime(time.Date(2026, 10, 25, 12, 0, 0, 0, berlin), "", "09:30")
	if err != nil || got.Hour() != 9 || got.Minute() != 30 {
		t.Fatalf("expected 09:30 wall clock, got %v, %v", got, err)
	}
}
