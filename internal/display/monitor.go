/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package display

import (
	"context"
	"time"

	"github.com/friendsincode/classboard/internal/clock"
	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/lesson"
	"github.com/friendsincode/classboard/internal/telemetry"
	"github.com/rs/zerolog"
)

// TickInterval is how often the monitor evaluates the schedule.
const TickInterval = time.Second

// Monitor evaluates the lesson schedule once per tick and publishes the
// result. Ticks are handled one at a time; missed ticks are dropped.
type Monitor struct {
	settings SnapshotSource
	clock    clock.Clock
	bus      events.Broker
	logger   zerolog.Logger

	current   string // key of the active period, "" when idle
	overtimed string // key of the period whose overtime was announced
}

// NewMonitor constructs a lesson monitor.
func NewMonitor(src SnapshotSource, clk clock.Clock, bus events.Broker, logger zerolog.Logger) *Monitor {
	return &Monitor{
		settings: src,
		clock:    clk,
		bus:      bus,
		logger:   logger.With().Str("component", "lesson_monitor").Logger(),
	}
}

// Run ticks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", TickInterval).Msg("lesson monitor started")
	m.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("lesson monitor stopped")
			return
		case <-ticker.C():
			m.Tick(ctx)
		}
	}
}

// Tick evaluates the schedule at the clock's current time and publishes
// lesson.tick, plus lesson.period_changed and lesson.overtime on
// transitions.
func (m *Monitor) Tick(ctx context.Context) lesson.Result {
	start := time.Now()
	defer func() {
		telemetry.LessonTickDuration.Observe(time.Since(start).Seconds())
	}()

	snap, err := m.settings.Snapshot(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("load settings for lesson tick")
		return lesson.Result{}
	}
	now := m.clock.Now()
	res, lessonDay := evaluate(snap, now, m.logger)

	key := periodKey(res)
	if key != m.current {
		m.logger.Debug().Str("from", m.current).Str("to", key).Msg("period changed")
		m.bus.Publish(events.EventPeriodChanged, events.Payload{
			"from":      m.current,
			"to":        key,
			"timestamp": now,
			"lesson":    NewLessonView(res),
		})
		m.current = key
	}

	if res.Overtime {
		if m.overtimed != key {
			m.overtimed = key
			telemetry.LessonOvertimeTotal.WithLabelValues(string(res.Period.Kind)).Inc()
			m.logger.Info().Str("period", key).Msg("period overtime")
			m.bus.Publish(events.EventOvertime, events.Payload{
				"period":    key,
				"type":      string(res.Period.Kind),
				"start":     res.Period.Start,
				"end":       res.Period.End,
				"alarm":     NewAlarm(res, snap.ShowOvertimeAlarm),
				"timestamp": now,
			})
		}
	} else if m.overtimed != "" && m.overtimed != key {
		m.overtimed = ""
	}

	if res.Active() {
		telemetry.LessonActive.Set(1)
	} else {
		telemetry.LessonActive.Set(0)
	}
	telemetry.LessonProgress.Set(res.Progress)

	m.bus.Publish(events.EventLessonTick, events.Payload{
		"timestamp": now,
		"time":      ClockText(now),
		"lessonDay": lessonDay,
		"lesson":    NewLessonView(res),
		"alarm":     NewAlarm(res, snap.ShowOvertimeAlarm),
	})
	return res
}

func periodKey(res lesson.Result) string {
	if res.Period == nil {
		return ""
	}
	return string(res.Period.Kind) + " " + res.Period.Start + "-" + res.Period.End
}
