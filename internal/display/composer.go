/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package display composes the dashboard screen state and runs the lesson
// monitor that pushes period changes to connected displays.
package display

import (
	"context"
	"math"
	"time"

	"github.com/friendsincode/classboard/internal/clock"
	"github.com/friendsincode/classboard/internal/lesson"
	"github.com/friendsincode/classboard/internal/settings"
	"github.com/friendsincode/classboard/internal/testbed"
	"github.com/rs/zerolog"
)

// AlarmTitle is the headline of the overtime alarm.
const AlarmTitle = "Überzieh Alarm!"

// SnapshotSource supplies the current typed settings.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (settings.Snapshot, error)
}

// AffirmationSource supplies the affirmation text.
type AffirmationSource interface {
	Current(ctx context.Context) (string, error)
}

// Screen is everything a display renders at one instant.
type Screen struct {
	Timestamp       time.Time    `json:"timestamp"`
	Time            string       `json:"time"`
	Date            string       `json:"date"`
	ShowClock       bool         `json:"showClock"`
	ShowWeather     bool         `json:"showWeather"`
	ShowAffirmation bool         `json:"showAffirmation"`
	ZoomLevel       int          `json:"zoomLevel"`
	ZipCode         string       `json:"zipCode"`
	TrainStationID  string       `json:"trainStationId"`
	LessonDay       bool         `json:"lessonDay"`
	Lesson          *LessonView  `json:"lesson"`
	Alarm           *Alarm       `json:"alarm"`
	Testbeds        testbed.View `json:"testbeds"`
	Affirmation     string       `json:"affirmation,omitempty"`
}

// LessonView is the progress bar state of the active period.
type LessonView struct {
	Kind             lesson.Kind `json:"type"`
	Label            string      `json:"label"`
	Start            string      `json:"start"`
	End              string      `json:"end"`
	Progress         float64     `json:"progress"`
	Percent          float64     `json:"percent"`
	RemainingMinutes float64     `json:"remainingMinutes"`
	Overtime         bool        `json:"isOvertime"`
	Color            string      `json:"color"`
	ColorHex         string      `json:"colorHex"`
}

// Alarm is the full-screen overtime warning.
type Alarm struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Range   string `json:"range"`
}

// NewLessonView renders an evaluation result, or nil when no period is active.
func NewLessonView(res lesson.Result) *LessonView {
	if !res.Active() {
		return nil
	}
	p := res.Period
	color := lesson.Color(res.Progress)
	if res.Overtime {
		color = lesson.Color(0)
	}
	return &LessonView{
		Kind:             p.Kind,
		Label:            p.Label(),
		Start:            p.Start,
		End:              p.End,
		Progress:         res.Progress,
		Percent:          math.Round(res.Progress*1000) / 10,
		RemainingMinutes: res.RemainingMinutes,
		Overtime:         res.Overtime,
		Color:            color.String(),
		ColorHex:         color.Hex(),
	}
}

// NewAlarm returns the overtime alarm for res when enabled is set.
func NewAlarm(res lesson.Result, enabled bool) *Alarm {
	if !enabled || !res.Overtime || res.Period == nil {
		return nil
	}
	return &Alarm{
		Title:   AlarmTitle,
		Message: res.Period.Label() + " zu Ende",
		Range:   res.Period.Start + " - " + res.Period.End,
	}
}

// Composer builds Screens from settings and the clock.
type Composer struct {
	settings     SnapshotSource
	affirmations AffirmationSource
	clock        clock.Clock
	logger       zerolog.Logger
}

// NewComposer constructs a Composer. affirmations may be nil.
func NewComposer(src SnapshotSource, affirmations AffirmationSource, clk clock.Clock, logger zerolog.Logger) *Composer {
	return &Composer{
		settings:     src,
		affirmations: affirmations,
		clock:        clk,
		logger:       logger.With().Str("component", "display").Logger(),
	}
}

// Compose returns the screen for the current instant.
func (c *Composer) Compose(ctx context.Context) (Screen, error) {
	snap, err := c.settings.Snapshot(ctx)
	if err != nil {
		return Screen{}, err
	}
	now := c.clock.Now()

	screen := Screen{
		Timestamp:       now,
		Time:            ClockText(now),
		Date:            DateText(now),
		ShowClock:       snap.ShowClock,
		ShowWeather:     snap.ShowWeather,
		ShowAffirmation: snap.ShowAffirmation,
		ZoomLevel:       snap.ZoomLevel,
		ZipCode:         snap.ZipCode,
		TrainStationID:  snap.TrainStationID,
		Testbeds:        testbed.ViewAt(snap.Testbeds, now),
	}

	res, lessonDay := evaluate(snap, now, c.logger)
	screen.LessonDay = lessonDay
	screen.Lesson = NewLessonView(res)
	screen.Alarm = NewAlarm(res, snap.ShowOvertimeAlarm)

	if snap.ShowAffirmation && c.affirmations != nil {
		text, err := c.affirmations.Current(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Msg("affirmation unavailable")
		} else {
			screen.Affirmation = text
		}
	}
	return screen, nil
}

// Lesson evaluates the schedule at t, or at the clock's time when t is zero.
func (c *Composer) Lesson(ctx context.Context, t time.Time) (lesson.Result, time.Time, error) {
	snap, err := c.settings.Snapshot(ctx)
	if err != nil {
		return lesson.Result{}, time.Time{}, err
	}
	if t.IsZero() {
		t = c.clock.Now()
	}
	res, _ := evaluate(snap, t, c.logger)
	return res, t, nil
}

// Now returns the composer's clock time.
func (c *Composer) Now() time.Time {
	return c.clock.Now()
}

func evaluate(snap settings.Snapshot, now time.Time, logger zerolog.Logger) (lesson.Result, bool) {
	ok, err := LessonDay(snap.LessonDays, now)
	if err != nil {
		logger.Warn().Err(err).Str("rule", snap.LessonDays).Msg("invalid lesson_days, treating every day as a lesson day")
		ok = true
	}
	if !ok {
		return lesson.Result{}, false
	}
	return lesson.Evaluate(snap.Lessons, now), true
}
