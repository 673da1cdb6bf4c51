package testbed

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseLegacyFormat(t *testing.T) {
	raw := json.RawMessage(`[{"ort":"1.1","gruppe":"Team A"},{"ort":"2.3","gruppe":"Team B"},{"ort":"1.4","gruppe":"Team C"}]`)

	configs, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 testbeds, got %d", len(configs))
	}
	if configs[0].Name != "TestBed 1" || len(configs[0].Servers) != 2 || !configs[0].Enabled {
		t.Fatalf("unexpected first testbed %+v", configs[0])
	}
	if configs[1].TestbedID != 2 || len(configs[1].Servers) != 1 || configs[1].Servers[0].Gruppe != "Team B" {
		t.Fatalf("unexpected second testbed %+v", configs[1])
	}
}

func TestParseCurrentFormatAndEmpty(t *testing.T) {
	configs, err := Parse(json.RawMessage(`[{"testbedId":3,"name":"Lab","enabled":false}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(configs) != 1 || configs[0].TestbedID != 3 || configs[0].Servers == nil {
		t.Fatalf("unexpected configs %+v", configs)
	}

	for _, raw := range []string{"", "null", "[]"} {
		configs, err := Parse(json.RawMessage(raw))
		if err != nil || len(configs) != 0 {
			t.Fatalf("Parse(%q) = %v, %v", raw, configs, err)
		}
	}

	if _, err := Parse(json.RawMessage(`{"ort":"1.1"}`)); err == nil {
		t.Fatal("expected error for non-list value")
	}
}

func TestSlotsMarkEmptyPositions(t *testing.T) {
	slots := Slots(Config{TestbedID: 2, Servers: []Server{{Ort: "2.2", Gruppe: "Gruppe 7"}}})
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if slots[0].Ort != "2.1" || !slots[0].Empty || slots[0].Label != EmptySlotLabel {
		t.Fatalf("unexpected first slot %+v", slots[0])
	}
	if slots[1].Empty || slots[1].Label != "Gruppe 7" {
		t.Fatalf("unexpected second slot %+v", slots[1])
	}
}

func TestViewAtShowsAllWhenTwoOrFewer(t *testing.T) {
	configs := []Config{
		{TestbedID: 1, Enabled: true},
		{TestbedID: 2, Enabled: false},
		{TestbedID: 3, Enabled: true},
	}
	view := ViewAt(configs, time.Unix(7, 0))
	if view.Pages != 1 || view.Page != 0 || len(view.Testbeds) != 2 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Testbeds[1].TestbedID != 3 {
		t.Fatalf("expected disabled testbed to be skipped, got %+v", view.Testbeds)
	}
}

func TestViewAtRotatesEveryThreeSeconds(t *testing.T) {
	configs := []Config{
		{TestbedID: 1, Enabled: true},
		{TestbedID: 2, Enabled: true},
		{TestbedID: 3, Enabled: true},
	}

	first := ViewAt(configs, time.Unix(0, 0))
	second := ViewAt(configs, time.Unix(3, 0))
	third := ViewAt(configs, time.Unix(6, 0))

	if first.Pages != 2 || first.Page != 0 || len(first.Testbeds) != 2 {
		t.Fatalf("unexpected first view %+v", first)
	}
	if second.Page != 1 || len(second.Testbeds) != 1 || second.Testbeds[0].TestbedID != 3 {
		t.Fatalf("unexpected second view %+v", second)
	}
	if third.Page != 0 {
		t.Fatalf("expected rotation to wrap, got page %d", third.Page)
	}
}

func TestViewAtNoneEnabled(t *testing.T) {
	view := ViewAt([]Config{{TestbedID: 1}}, time.Now())
	if view.Pages != 0 || len(view.Testbeds) != 0 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestEditing(t *testing.T) {
	configs := Normalize(nil)

	updated, err := SetGroup(configs, 1, "1.2", "Team X")
	if err != nil {
		t.Fatalf("set group: %v", err)
	}
	if len(configs[0].Servers) != 0 {
		t.Fatal("input was mutated")
	}
	if len(updated[0].Servers) != 1 {
		t.Fatalf("expected one server, got %+v", updated[0].Servers)
	}

	updated, err = SetGroup(updated, 1, "1.2", "")
	if err != nil || len(updated[0].Servers) != 0 {
		t.Fatalf("expected cleared slot, got %+v, %v", updated[0].Servers, err)
	}

	if _, err := SetGroup(updated, 1, "2.1", "x"); err == nil {
		t.Fatal("expected error for foreign slot")
	}
	if _, err := SetEnabled(updated, 9, true); !errors.Is(err, ErrUnknownTestbed) {
		t.Fatalf("expected ErrUnknownTestbed, got %v", err)
	}

	updated, _ = SetEnabled(updated, 2, false)
	updated, _ = Rename(updated, 2, "Keller")
	if updated[1].Enabled || updated[1].Name != "Keller" {
		t.Fatalf("unexpected testbed %+v", updated[1])
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Normalize([]Server{{Ort: "1.1", Gruppe: "A"}})); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := Validate([]Config{{TestbedID: 1}, {TestbedID: 1}}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if err := Validate([]Config{{TestbedID: 1, Servers: []Server{{Ort: "1.5"}}}}); err == nil {
		t.Fatal("expected invalid slot error")
	}
}

func TestFilter(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"testbedId":1,"enabled":true,"name":"A"}`),
		json.RawMessage(`{"testbedId":2,"enabled":false,"name":"B"}`),
		json.RawMessage(`{"testbedId":3,"enabled":true,"name":"C"}`),
	}

	got := Filter(items, map[string]any{"enabled": true})
	if len(got) != 2 {
		t.Fatalf("expected 2 enabled items, got %d", len(got))
	}

	got = Filter(items, map[string]any{"testbedId": float64(2)})
	if len(got) != 1 || string(got[0]) != string(items[1]) {
		t.Fatalf("unexpected filter result %s", got)
	}

	if got := Filter(items, nil); len(got) != 3 {
		t.Fatalf("expected empty filter to keep all items, got %d", len(got))
	}
}
