/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package testbed models the testbed server assignment cards shown on the
// dashboard and the rotation between them.
package testbed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SlotsPerTestbed is the number of server cards per testbed.
	SlotsPerTestbed = 4
	// PerView is the number of testbeds shown side by side.
	PerView = 2
	// RotateEvery is how long each view is shown when they rotate.
	RotateEvery = 3 * time.Second
	// EmptySlotLabel is shown for a slot without an assigned group.
	EmptySlotLabel = "Nicht belegt"
)

// ErrUnknownTestbed is returned when editing a testbed id that is not configured.
var ErrUnknownTestbed = errors.New("unknown testbed")

// Server assigns a group to one server slot. Ort is "<testbed>.<slot>".
type Server struct {
	Ort    string `json:"ort"`
	Gruppe string `json:"gruppe"`
}

// Config is one testbed with its server assignments.
type Config struct {
	TestbedID int      `json:"testbedId"`
	Name      string   `json:"name"`
	Enabled   bool     `json:"enabled"`
	Servers   []Server `json:"servers"`
}

// Slot is one rendered server card.
type Slot struct {
	Ort    string `json:"ort"`
	Gruppe string `json:"gruppe,omitempty"`
	Empty  bool   `json:"empty"`
	Label  string `json:"label"`
}

// View is the set of testbeds on screen at one instant.
type View struct {
	Page     int         `json:"page"`
	Pages    int         `json:"pages"`
	Testbeds []CardGroup `json:"testbeds"`
}

// CardGroup is a testbed with its four rendered slots.
type CardGroup struct {
	TestbedID int    `json:"testbedId"`
	Name      string `json:"name"`
	Slots     []Slot `json:"slots"`
}

// Parse decodes the stored testbed_info value. It accepts both the current
// list of testbed configs and the legacy flat list of servers.
func Parse(raw json.RawMessage) ([]Config, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []Config{}, nil
	}

	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode testbed info: %w", err)
	}
	if len(probe) == 0 {
		return []Config{}, nil
	}

	if _, legacy := probe[0]["ort"]; legacy {
		var servers []Server
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("decode legacy testbed info: %w", err)
		}
		return Normalize(servers), nil
	}

	var configs []Config
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("decode testbed configs: %w", err)
	}
	for i := range configs {
		if configs[i].Servers == nil {
			configs[i].Servers = []Server{}
		}
	}
	return configs, nil
}

// Normalize converts the legacy flat server list into two testbeds, split by
// the "1." and "2." prefixes of the server location.
func Normalize(servers []Server) []Config {
	out := make([]Config, 0, 2)
	for id := 1; id <= 2; id++ {
		prefix := strconv.Itoa(id) + "."
		cfg := Config{TestbedID: id, Name: fmt.Sprintf("TestBed %d", id), Enabled: true, Servers: []Server{}}
		for _, s := range servers {
			if strings.HasPrefix(s.Ort, prefix) {
				cfg.Servers = append(cfg.Servers, s)
			}
		}
		out = append(out, cfg)
	}
	return out
}

// Validate checks ids are positive and unique and server locations belong
// to their testbed.
func Validate(configs []Config) error {
	seen := make(map[int]bool, len(configs))
	for _, cfg := range configs {
		if cfg.TestbedID <= 0 {
			return fmt.Errorf("testbed id must be positive, got %d", cfg.TestbedID)
		}
		if seen[cfg.TestbedID] {
			return fmt.Errorf("duplicate testbed id %d", cfg.TestbedID)
		}
		seen[cfg.TestbedID] = true

		ids := SlotIDs(cfg.TestbedID)
		for _, s := range cfg.Servers {
			if !contains(ids, s.Ort) {
				return fmt.Errorf("testbed %d: server %q is not one of %s", cfg.TestbedID, s.Ort, strings.Join(ids, ", "))
			}
		}
	}
	return nil
}

// Enabled returns only the enabled testbeds, in order.
func Enabled(configs []Config) []Config {
	out := make([]Config, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}

// SlotIDs returns the four server locations of a testbed: "N.1" to "N.4".
func SlotIDs(testbedID int) []string {
	ids := make([]string, SlotsPerTestbed)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d.%d", testbedID, i+1)
	}
	return ids
}

// Slots renders the four cards of a testbed. Unassigned slots are marked
// empty and labelled EmptySlotLabel.
func Slots(cfg Config) []Slot {
	ids := SlotIDs(cfg.TestbedID)
	slots := make([]Slot, 0, len(ids))
	for _, id := range ids {
		slot := Slot{Ort: id, Empty: true, Label: EmptySlotLabel}
		for _, s := range cfg.Servers {
			if s.Ort == id {
				slot = Slot{Ort: id, Gruppe: s.Gruppe, Label: s.Gruppe}
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// Pages returns the number of views needed for n enabled testbeds.
func Pages(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PerView - 1) / PerView
}

// ViewAt returns the view visible at now. With up to PerView enabled
// testbeds all of them are shown; otherwise views rotate every RotateEvery,
// derived from the wall clock so every display shows the same page.
func ViewAt(configs []Config, now time.Time) View {
	enabled := Enabled(configs)
	pages := Pages(len(enabled))
	view := View{Pages: pages, Testbeds: []CardGroup{}}
	if pages == 0 {
		return view
	}

	if pages > 1 {
		view.Page = int((now.UnixNano() / int64(RotateEvery)) % int64(pages))
	}

	start := view.Page * PerView
	end := start + PerView
	if end > len(enabled) {
		end = len(enabled)
	}
	for _, cfg := range enabled[start:end] {
		view.Testbeds = append(view.Testbeds, CardGroup{TestbedID: cfg.TestbedID, Name: cfg.Name, Slots: Slots(cfg)})
	}
	return view
}

// SetGroup assigns gruppe to a server slot; an empty gruppe clears it.
func SetGroup(configs []Config, testbedID int, ort, gruppe string) ([]Config, error) {
	out := clone(configs)
	idx := indexOf(out, testbedID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTestbed, testbedID)
	}
	if !contains(SlotIDs(testbedID), ort) {
		return nil, fmt.Errorf("testbed %d has no server %q", testbedID, ort)
	}

	servers := out[idx].Servers[:0]
	for _, s := range out[idx].Servers {
		if s.Ort != ort {
			servers = append(servers, s)
		}
	}
	if strings.TrimSpace(gruppe) != "" {
		servers = append(servers, Server{Ort: ort, Gruppe: gruppe})
	}
	out[idx].Servers = servers
	return out, nil
}

// SetEnabled toggles whether a testbed is shown.
func SetEnabled(configs []Config, testbedID int, enabled bool) ([]Config, error) {
	out := clone(configs)
	idx := indexOf(out, testbedID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTestbed, testbedID)
	}
	out[idx].Enabled = enabled
	return out, nil
}

// Rename changes a testbed's display name.
func Rename(configs []Config, testbedID int, name string) ([]Config, error) {
	out := clone(configs)
	idx := indexOf(out, testbedID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTestbed, testbedID)
	}
	out[idx].Name = name
	return out, nil
}

// Filter returns the items whose fields equal every filter entry. Items are
// compared by their JSON representation, so filters address JSON field names.
func Filter(items []json.RawMessage, filter map[string]any) []json.RawMessage {
	if len(filter) == 0 {
		return items
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		match := true
		for key, want := range filter {
			if !equalJSON(fields[key], want) {
				match = false
				break
			}
		}
		if match {
			out = append(out, item)
		}
	}
	return out
}

func equalJSON(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ab) == string(bb)
}

func clone(configs []Config) []Config {
	out := make([]Config, len(configs))
	for i, cfg := range configs {
		out[i] = cfg
		out[i].Servers = append([]Server{}, cfg.Servers...)
	}
	return out
}

func indexOf(configs []Config, testbedID int) int {
	for i, cfg := range configs {
		if cfg.TestbedID == testbedID {
			return i
		}
	}
	return -1
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
