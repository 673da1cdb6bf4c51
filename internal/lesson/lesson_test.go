package lesson

import (
	"errors"
	"math"
	"testing"
	"time"
)

func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 3, 9, hh, mm, ss, 0, time.Local)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateSinglePeriod(t *testing.T) {
	periods := []Period{{Kind: KindLesson, Start: "08:00", End: "09:30"}}

	tests := []struct {
		name      string
		now       time.Time
		active    bool
		progress  float64
		overtime  bool
		remaining float64
	}{
		{name: "at start", now: at(8, 0, 0), active: true, progress: 1, remaining: 90},
		{name: "halfway", now: at(8, 45, 0), active: true, progress: 0.5, remaining: 45},
		{name: "at end", now: at(9, 30, 0), active: true, progress: 0, remaining: 0},
		{name: "five seconds over", now: at(9, 30, 5), active: true, overtime: true},
		{name: "fifteen seconds over", now: at(9, 30, 15)},
		{name: "before start", now: at(7, 59, 59)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(periods, tc.now)
			if res.Active() != tc.active {
				t.Fatalf("active = %v, want %v", res.Active(), tc.active)
			}
			if !approx(res.Progress, tc.progress) {
				t.Fatalf("progress = %v, want %v", res.Progress, tc.progress)
			}
			if res.Overtime != tc.overtime {
				t.Fatalf("overtime = %v, want %v", res.Overtime, tc.overtime)
			}
			if !approx(res.RemainingMinutes, tc.remaining) {
				t.Fatalf("remaining = %v, want %v", res.RemainingMinutes, tc.remaining)
			}
		})
	}
}

func TestEvaluateOvertimeBoundaryIsInclusive(t *testing.T) {
	periods := []Period{{Kind: KindBreak, Start: "09:30", End: "09:45"}}

	if res := Evaluate(periods, at(9, 45, 10)); !res.Overtime {
		t.Fatalf("expected overtime exactly at end+10s, got %+v", res)
	}
	if res := Evaluate(periods, at(9, 45, 10).Add(time.Millisecond)); res.Active() {
		t.Fatalf("expected no period just after the overtime window, got %+v", res)
	}
}

func TestEvaluateZeroDurationPeriod(t *testing.T) {
	periods := []Period{{Kind: KindLesson, Start: "10:00", End: "10:00"}}

	res := Evaluate(periods, at(10, 0, 0))
	if !res.Active() {
		t.Fatal("expected zero-length period to match at its instant")
	}
	if res.Progress != 0 || math.IsNaN(res.Progress) {
		t.Fatalf("expected progress 0, got %v", res.Progress)
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	periods := []Period{
		{Kind: KindLesson, Start: "08:00", End: "09:00"},
		{Kind: KindBreak, Start: "08:30", End: "08:45"},
	}

	res := Evaluate(periods, at(8, 35, 0))
	if res.Period == nil || res.Period.Kind != KindLesson {
		t.Fatalf("expected first period to win, got %+v", res.Period)
	}
}

func TestEvaluateEarlierOvertimeWinsOverLaterActive(t *testing.T) {
	// At 09:30:05 the break is active, but the lesson is listed first and is
	// still inside its overtime window.
	periods := []Period{
		{Kind: KindLesson, Start: "08:00", End: "09:30"},
		{Kind: KindBreak, Start: "09:30", End: "09:45"},
	}

	res := Evaluate(periods, at(9, 30, 5))
	if res.Period == nil || res.Period.Kind != KindLesson || !res.Overtime {
		t.Fatalf("expected lesson overtime from the first period, got %+v", res)
	}
}

func TestEvaluateEmptyList(t *testing.T) {
	if res := Evaluate(nil, at(12, 0, 0)); res.Active() || res.Progress != 0 || res.Overtime {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestEvaluateDoesNotMutateInput(t *testing.T) {
	periods := []Period{{Kind: KindLesson, Start: "08:00", End: "09:30"}}
	res := Evaluate(periods, at(8, 10, 0))
	res.Period.End = "23:59"

	if periods[0].End != "09:30" {
		t.Fatalf("input was mutated: %+v", periods[0])
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	periods := []Period{{Kind: KindLesson, Start: "08:00", End: "09:30"}}
	now := at(8, 17, 42)

	a := Evaluate(periods, now)
	b := Evaluate(periods, now)
	if a.Progress != b.Progress || a.RemainingMinutes != b.RemainingMinutes || *a.Period != *b.Period {
		t.Fatalf("results differ: %+v vs %+v", a, b)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	periods := []Period{{Kind: KindLesson, Start: "08:00", End: "09:30"}}

	prev := 2.0
	for ts := at(8, 0, 0); !ts.After(at(9, 30, 0)); ts = ts.Add(7 * time.Second) {
		res := Evaluate(periods, ts)
		if res.Progress > prev {
			t.Fatalf("progress increased at %s: %v > %v", ts.Format("15:04:05"), res.Progress, prev)
		}
		prev = res.Progress
	}
}

func TestNowMinutesIncludesSeconds(t *testing.T) {
	got := NowMinutes(time.Date(2026, 1, 1, 9, 30, 30, 0, time.UTC))
	if !approx(got, 570.5) {
		t.Fatalf("NowMinutes = %v, want 570.5", got)
	}
}

func TestMinutes(t *testing.T) {
	cases := map[string]int{"00:00": 0, "08:05": 485, "23:59": 1439, "7:30": 450}
	for in, want := range cases {
		if got := Minutes(in); got != want {
			t.Fatalf("Minutes(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	if got, err := ParseTimeOfDay("13:45"); err != nil || got != 825 {
		t.Fatalf("ParseTimeOfDay(13:45) = %d, %v", got, err)
	}
	for _, bad := range []string{"", "24:00", "12:60", "12", "ab:cd", "1:5"} {
		if _, err := ParseTimeOfDay(bad); !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("expected ErrInvalidTime for %q, got %v", bad, err)
		}
	}
}

func TestValidate(t *testing.T) {
	good := []Period{
		{Kind: KindLesson, Start: "08:00", End: "09:30"},
		{Kind: KindBreak, Start: "09:30", End: "09:45"},
	}
	if err := Validate(good); err != nil {
		t.Fatalf("validate good schedule: %v", err)
	}

	bad := map[string][]Period{
		"unknown kind": {{Kind: "lunch", Start: "12:00", End: "13:00"}},
		"bad time":     {{Kind: KindLesson, Start: "8am", End: "09:00"}},
		"reversed":     {{Kind: KindLesson, Start: "10:00", End: "09:00"}},
		"overlap": {
			{Kind: KindLesson, Start: "08:00", End: "09:00"},
			{Kind: KindBreak, Start: "08:30", End: "09:15"},
		},
	}
	for name, periods := range bad {
		if err := Validate(periods); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
