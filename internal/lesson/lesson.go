/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package lesson evaluates the configured lesson and break periods against
// the wall clock and derives the countdown shown on the dashboard.
package lesson

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes lessons from breaks. The values are the ones stored in
// the lesson_data setting.
type Kind string

const (
	KindLesson Kind = "stunde"
	KindBreak  Kind = "pause"
)

// OvertimeWindow is the grace period after a period ends during which it is
// still reported, flagged as overtime.
const OvertimeWindow = 10 * time.Second

var overtimeMinutes = OvertimeWindow.Minutes()

// ErrInvalidTime is returned by ParseTimeOfDay for anything that is not HH:MM.
var ErrInvalidTime = errors.New("invalid time of day")

// Period is a single lesson or break, bounded by two HH:MM wall-clock times.
type Period struct {
	Kind  Kind   `json:"type"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Label returns the German display label for the period kind.
func (p Period) Label() string {
	if p.Kind == KindBreak {
		return "Pause"
	}
	return "Stunde"
}

// Result is the outcome of evaluating a period list at one instant.
type Result struct {
	Period           *Period `json:"period"`
	Progress         float64 `json:"progress"`
	Overtime         bool    `json:"isOvertime"`
	RemainingMinutes float64 `json:"remainingMinutes"`
}

// Active reports whether a period matched.
func (r Result) Active() bool {
	return r.Period != nil
}

// Evaluate scans periods in order and returns the first one that contains now,
// or whose end was passed less than OvertimeWindow ago. Periods are not sorted
// or checked for overlap; the first match wins.
func Evaluate(periods []Period, now time.Time) Result {
	current := NowMinutes(now)

	for i := range periods {
		start := float64(Minutes(periods[i].Start))
		end := float64(Minutes(periods[i].End))

		if current >= start && current <= end {
			p := periods[i]
			total := end - start
			remaining := end - current

			progress := 0.0
			if total > 0 {
				progress = remaining / total
			}
			if progress < 0 {
				progress = 0
			}
			return Result{Period: &p, Progress: progress, RemainingMinutes: remaining}
		}

		if current > end && current <= end+overtimeMinutes {
			p := periods[i]
			return Result{Period: &p, Overtime: true}
		}
	}

	return Result{}
}

// Minutes converts an HH:MM string to minutes since midnight. Unparsable
// components count as zero; use ParseTimeOfDay to validate input.
func Minutes(hhmm string) int {
	h, m, _ := strings.Cut(hhmm, ":")
	hours, _ := strconv.Atoi(strings.TrimSpace(h))
	minutes, _ := strconv.Atoi(strings.TrimSpace(m))
	return hours*60 + minutes
}

// NowMinutes returns the time of day of t in fractional minutes since midnight.
func NowMinutes(t time.Time) float64 {
	return float64(t.Hour()*60+t.Minute()) + (float64(t.Second())+float64(t.Nanosecond())/1e9)/60
}

// ParseTimeOfDay strictly parses HH:MM (00:00 through 23:59) and returns
// minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hours*60 + minutes, nil
}

// Validate checks that a schedule is well formed: known kinds, valid times,
// start before end, and periods in chronological order without overlap.
func Validate(periods []Period) error {
	prevEnd := -1
	for i, p := range periods {
		if p.Kind != KindLesson && p.Kind != KindBreak {
			return fmt.Errorf("period %d: unknown type %q", i+1, p.Kind)
		}
		start, err := ParseTimeOfDay(p.Start)
		if err != nil {
			return fmt.Errorf("period %d start: %w", i+1, err)
		}
		end, err := ParseTimeOfDay(p.End)
		if err != nil {
			return fmt.Errorf("period %d end: %w", i+1, err)
		}
		if start >= end {
			return fmt.Errorf("period %d: start %s is not before end %s", i+1, p.Start, p.End)
		}
		if start < prevEnd {
			return fmt.Errorf("period %d: starts at %s before the previous period ends", i+1, p.Start)
		}
		prevEnd = end
	}
	return nil
}

// DefaultPeriod is the period the admin editor adds for a new row.
func DefaultPeriod() Period {
	return Period{Kind: KindLesson, Start: "08:00", End: "09:30"}
}
