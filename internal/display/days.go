/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package display

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// LessonDay reports whether the recurrence rule has an occurrence on the
// calendar day of now. An empty rule matches every day. A rule without
// DTSTART is anchored at midnight of that day.
func LessonDay(rule string, now time.Time) (bool, error) {
	if rule == "" {
		return true, nil
	}

	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return false, fmt.Errorf("parse lesson_days: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)
	if opt.Dtstart.IsZero() {
		opt.Dtstart = dayStart
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return false, fmt.Errorf("build lesson_days rule: %w", err)
	}
	return len(r.Between(dayStart, dayEnd, true)) > 0, nil
}
