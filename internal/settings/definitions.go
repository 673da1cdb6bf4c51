/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/friendsincode/classboard/internal/lesson"
	"github.com/friendsincode/classboard/internal/testbed"
	"github.com/teambition/rrule-go"
)

// Setting keys.
const (
	KeyShowClock         = "show_clock"
	KeyShowWeather       = "show_weather"
	KeyShowAffirmation   = "show_affirmation"
	KeyZipCode           = "zip_code"
	KeyZoomLevel         = "zoom_level"
	KeyLessonData        = "lesson_data"
	KeyShowOvertimeAlarm = "show_overtime_alarm"
	KeyLessonDays        = "lesson_days"
	KeyTrainStationID    = "train_station_id"
	KeyTestbedInfo       = "testbed_info"
)

// Type names the editor widget and decoding rule of a setting.
type Type string

const (
	TypeBoolean        Type = "boolean"
	TypeString         Type = "string"
	TypeNumber         Type = "number"
	TypeLessonSchedule Type = "lesson_schedule"
	TypeRecurrence     Type = "rrule"
	TypeTestbed        Type = "testbed"
)

// Definition describes a known setting.
type Definition struct {
	Key         string          `json:"key"`
	Type        Type            `json:"type"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Icon        string          `json:"icon"`
	Default     json.RawMessage `json:"default"`
	Min         *float64        `json:"min,omitempty"`
	Max         *float64        `json:"max,omitempty"`
	Step        *float64        `json:"step,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`

	// normalize validates a raw value and returns its canonical encoding.
	normalize func(Definition, json.RawMessage) (json.RawMessage, error)
}

func ptr(f float64) *float64 { return &f }

var (
	zipPattern     = regexp.MustCompile(`^[0-9]{5}$`)
	stationPattern = regexp.MustCompile(`^[0-9]{1,12}$`)
)

var definitions = []Definition{
	{
		Key: KeyShowClock, Type: TypeBoolean, Category: "Anzeige", Icon: "🕐",
		Label: "Uhr anzeigen", Description: "Zeigt die aktuelle Uhrzeit auf dem Hauptbildschirm an",
		Default: json.RawMessage(`true`), normalize: normalizeBool,
	},
	{
		Key: KeyShowWeather, Type: TypeBoolean, Category: "Anzeige", Icon: "🌤️",
		Label: "Wetter anzeigen", Description: "Zeigt das aktuelle Wetter auf dem Dashboard an",
		Default: json.RawMessage(`true`), normalize: normalizeBool,
	},
	{
		Key: KeyShowAffirmation, Type: TypeBoolean, Category: "Anzeige", Icon: "💝",
		Label: "Bestätigungen anzeigen", Description: "Zeigt positive Nachrichten oder Bestätigungen an",
		Default: json.RawMessage(`false`), normalize: normalizeBool,
	},
	{
		Key: KeyZipCode, Type: TypeString, Category: "Standort", Icon: "📍",
		Label: "Postleitzahl", Description: "Postleitzahl für die Wetteranzeige",
		Default: json.RawMessage(`""`), Pattern: zipPattern.String(), normalize: normalizeZip,
	},
	{
		Key: KeyZoomLevel, Type: TypeNumber, Category: "Anzeige", Icon: "🔍",
		Label: "Zoom Level", Description: "Vergrößerung der Anzeige in Prozent (50-200%)",
		Default: json.RawMessage(`100`), Min: ptr(50), Max: ptr(200), Step: ptr(5), normalize: normalizeNumber,
	},
	{
		Key: KeyLessonData, Type: TypeLessonSchedule, Category: "Zeitplanung", Icon: "📚",
		Label: "Stundenplan", Description: "Zeitplan für Unterrichtsstunden und Pausen",
		Default: json.RawMessage(`[]`), normalize: normalizeSchedule,
	},
	{
		Key: KeyShowOvertimeAlarm, Type: TypeBoolean, Category: "Zeitplanung", Icon: "🚨",
		Label: "Überzieh-Alarm anzeigen", Description: "Zeigt eine Vollbild-Warnung an, wenn eine Stunde oder Pause überzogen wird",
		Default: json.RawMessage(`true`), normalize: normalizeBool,
	},
	{
		Key: KeyLessonDays, Type: TypeRecurrence, Category: "Zeitplanung", Icon: "📅",
		Label: "Unterrichtstage", Description: "Wiederholungsregel (RRULE) für Tage, an denen der Stundenplan gilt; leer bedeutet täglich",
		Default: json.RawMessage(`"FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR"`), normalize: normalizeRecurrence,
	},
	{
		Key: KeyTrainStationID, Type: TypeString, Category: "Standort", Icon: "🚆",
		Label: "Bahnhof", Description: "Haltestellen-ID für die Abfahrtsanzeige",
		Default: json.RawMessage(`"8000294"`), Pattern: stationPattern.String(), normalize: normalizeStation,
	},
	{
		Key: KeyTestbedInfo, Type: TypeTestbed, Category: "TestBeds", Icon: "🖥️",
		Label: "TestBed Belegung", Description: "Zuordnung der Gruppen zu den TestBed-Servern",
		Default: json.RawMessage(`[]`), normalize: normalizeTestbeds,
	},
}

var definitionIndex = func() map[string]Definition {
	idx := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		idx[def.Key] = def
	}
	return idx
}()

// Definitions returns all known settings in editor order.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	def, ok := definitionIndex[key]
	return def, ok
}

// Categories returns the distinct categories in first-seen order.
func Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, def := range definitions {
		if !seen[def.Category] {
			seen[def.Category] = true
			out = append(out, def.Category)
		}
	}
	return out
}

// Keys returns the known keys sorted alphabetically.
func Keys() []string {
	keys := make([]string, 0, len(definitions))
	for _, def := range definitions {
		keys = append(keys, def.Key)
	}
	sort.Strings(keys)
	return keys
}

// Normalize validates raw against the definition of key and returns the
// canonical JSON to store.
func Normalize(key string, raw json.RawMessage) (json.RawMessage, error) {
	def, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: %s: missing value", ErrInvalidValue, key)
	}
	out, err := def.normalize(def, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
	}
	return out, nil
}

func normalizeBool(_ Definition, raw json.RawMessage) (json.RawMessage, error) {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("expected true or false")
	}
	return json.Marshal(v)
}

func normalizeZip(_ Definition, raw json.RawMessage) (json.RawMessage, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("expected a string")
	}
	v = strings.TrimSpace(v)
	if v != "" && !zipPattern.MatchString(v) {
		return nil, fmt.Errorf("expected a five digit postal code")
	}
	return json.Marshal(v)
}

func normalizeStation(_ Definition, raw json.RawMessage) (json.RawMessage, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("expected a string")
	}
	v = strings.TrimSpace(v)
	if !stationPattern.MatchString(v) {
		return nil, fmt.Errorf("expected a numeric station id")
	}
	return json.Marshal(v)
}

func normalizeNumber(def Definition, raw json.RawMessage) (json.RawMessage, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("expected a number")
	}
	if def.Min != nil && v < *def.Min {
		return nil, fmt.Errorf("must be at least %g", *def.Min)
	}
	if def.Max != nil && v > *def.Max {
		return nil, fmt.Errorf("must be at most %g", *def.Max)
	}
	if def.Step != nil {
		base := 0.0
		if def.Min != nil {
			base = *def.Min
		}
		if steps := (v - base) / *def.Step; math.Abs(steps-math.Round(steps)) > 1e-9 {
			return nil, fmt.Errorf("must be a multiple of %g", *def.Step)
		}
	}
	return json.Marshal(v)
}

func normalizeSchedule(_ Definition, raw json.RawMessage) (json.RawMessage, error) {
	var periods []lesson.Period
	if err := json.Unmarshal(raw, &periods); err != nil {
		return nil, fmt.Errorf("expected a list of periods")
	}
	if periods == nil {
		periods = []lesson.Period{}
	}
	if err := lesson.Validate(periods); err != nil {
		return nil, err
	}
	return json.Marshal(periods)
}

func normalizeRecurrence(_ Definition, raw json.RawMessage) (json.RawMessage, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("expected a string")
	}
	v = strings.TrimSpace(v)
	if v != "" {
		if _, err := rrule.StrToROption(v); err != nil {
			return nil, fmt.Errorf("invalid recurrence rule: %v", err)
		}
	}
	return json.Marshal(v)
}

func normalizeTestbeds(_ Definition, raw json.RawMessage) (json.RawMessage, error) {
	configs, err := testbed.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := testbed.Validate(configs); err != nil {
		return nil, err
	}
	return json.Marshal(configs)
}
