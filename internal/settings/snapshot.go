/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package settings

import (
	"encoding/json"

	"github.com/friendsincode/classboard/internal/lesson"
	"github.com/friendsincode/classboard/internal/testbed"
	"github.com/rs/zerolog"
)

// Snapshot is the typed view of all settings, with defaults applied.
type Snapshot struct {
	ShowClock         bool             `json:"show_clock"`
	ShowWeather       bool             `json:"show_weather"`
	ShowAffirmation   bool             `json:"show_affirmation"`
	ZipCode           string           `json:"zip_code"`
	ZoomLevel         int              `json:"zoom_level"`
	Lessons           []lesson.Period  `json:"lesson_data"`
	ShowOvertimeAlarm bool             `json:"show_overtime_alarm"`
	LessonDays        string           `json:"lesson_days"`
	TrainStationID    string           `json:"train_station_id"`
	Testbeds          []testbed.Config `json:"testbed_info"`
}

// DefaultSnapshot returns the snapshot of an empty settings store.
func DefaultSnapshot() Snapshot {
	return BuildSnapshot(nil, zerolog.Nop())
}

// BuildSnapshot decodes stored values by key. A missing key takes its
// default; a stored value that no longer decodes is logged and replaced by
// the default.
func BuildSnapshot(values map[string]json.RawMessage, logger zerolog.Logger) Snapshot {
	var snap Snapshot

	decode := func(key string, dest any) {
		def, _ := Lookup(key)
		if raw, ok := values[key]; ok {
			err := json.Unmarshal(raw, dest)
			if err == nil {
				return
			}
			logger.Warn().Err(err).Str("key", key).Msg("stored setting is invalid, using default")
		}
		_ = json.Unmarshal(def.Default, dest)
	}

	decode(KeyShowClock, &snap.ShowClock)
	decode(KeyShowWeather, &snap.ShowWeather)
	decode(KeyShowAffirmation, &snap.ShowAffirmation)
	decode(KeyZipCode, &snap.ZipCode)
	decode(KeyZoomLevel, &snap.ZoomLevel)
	decode(KeyLessonData, &snap.Lessons)
	decode(KeyShowOvertimeAlarm, &snap.ShowOvertimeAlarm)
	decode(KeyLessonDays, &snap.LessonDays)
	decode(KeyTrainStationID, &snap.TrainStationID)

	snap.Testbeds = []testbed.Config{}
	if raw, ok := values[KeyTestbedInfo]; ok {
		configs, err := testbed.Parse(raw)
		if err != nil {
			logger.Warn().Err(err).Str("key", KeyTestbedInfo).Msg("stored setting is invalid, using default")
		} else {
			snap.Testbeds = configs
		}
	}

	if snap.Lessons == nil {
		snap.Lessons = []lesson.Period{}
	}
	return snap
}
