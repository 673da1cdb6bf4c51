package display

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/classboard/internal/clock"
	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/lesson"
	"github.com/friendsincode/classboard/internal/settings"
	"github.com/friendsincode/classboard/internal/testbed"
	"github.com/rs/zerolog"
)

type fakeSettings struct {
	snap settings.Snapshot
	err  error
}

func (f *fakeSettings) Snapshot(context.Context) (settings.Snapshot, error) {
	return f.snap, f.err
}

type fakeAffirmations struct{ text string }

func (f fakeAffirmations) Current(context.Context) (string, error) { return f.text, nil }

// Monday 9 March 2026.
func at(hour, min, sec int) time.Time {
	return time.Date(2026, 3, 9, hour, min, sec, 0, time.UTC)
}

func testSnapshot() settings.Snapshot {
	snap := settings.DefaultSnapshot()
	snap.Lessons = []lesson.Period{{Kind: lesson.KindLesson, Start: "08:00", End: "09:30"}}
	return snap
}

func TestComposeDuringLesson(t *testing.T) {
	snap := testSnapshot()
	snap.ShowAffirmation = true
	snap.Testbeds = []testbed.Config{{TestbedID: 1, Name: "TestBed 1", Enabled: true}}
	clk := clock.NewManual(at(8, 45, 0))

	c := NewComposer(&fakeSettings{snap: snap}, fakeAffirmations{"Du schaffst das."}, clk, zerolog.Nop())
	screen, err := c.Compose(context.Background())
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if screen.Time != "08:45:00" || screen.Date != "Montag, 9. März 2026" {
		t.Fatalf("unexpected clock text %q %q", screen.Time, screen.Date)
	}
	if !screen.LessonDay || screen.Lesson == nil {
		t.Fatalf("expected active lesson, got %+v", screen)
	}
	if screen.Lesson.Progress != 0.5 || screen.Lesson.Percent != 50 || screen.Lesson.Label != "Stunde" {
		t.Fatalf("unexpected lesson view %+v", screen.Lesson)
	}
	if screen.Lesson.Color != "rgb(255, 255, 0)" {
		t.Fatalf("expected yellow at half time, got %s", screen.Lesson.Color)
	}
	if screen.Alarm != nil {
		t.Fatal("no alarm expected during the lesson")
	}
	if screen.Affirmation != "Du schaffst das." {
		t.Fatalf("unexpected affirmation %q", screen.Affirmation)
	}
	if len(screen.Testbeds.Testbeds) != 1 || len(screen.Testbeds.Testbeds[0].Slots) != testbed.SlotsPerTestbed {
		t.Fatalf("unexpected testbed view %+v", screen.Testbeds)
	}
}

func TestComposeOvertimeAlarm(t *testing.T) {
	snap := testSnapshot()
	clk := clock.NewManual(at(9, 30, 5))
	src := &fakeSettings{snap: snap}
	c := NewComposer(src, nil, clk, zerolog.Nop())

	screen, err := c.Compose(context.Background())
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if screen.Lesson == nil || !screen.Lesson.Overtime || screen.Lesson.Color != "rgb(255, 0, 0)" {
		t.Fatalf("expected overtime lesson view, got %+v", screen.Lesson)
	}
	want := Alarm{Title: "Überzieh Alarm!", Message: "Stunde zu Ende", Range: "08:00 - 09:30"}
	if screen.Alarm == nil || *screen.Alarm != want {
		t.Fatalf("unexpected alarm %+v", screen.Alarm)
	}

	src.snap.ShowOvertimeAlarm = false
	screen, _ = c.Compose(context.Background())
	if screen.Alarm != nil {
		t.Fatal("alarm must respect show_overtime_alarm")
	}
	if screen.Lesson == nil || !screen.Lesson.Overtime {
		t.Fatal("overtime state is reported even without the alarm")
	}
}

func TestComposeOutsideLessonDays(t *testing.T) {
	snap := testSnapshot()
	// Saturday.
	clk := clock.NewManual(time.Date(2026, 3, 14, 8, 45, 0, 0, time.UTC))
	c := NewComposer(&fakeSettings{snap: snap}, nil, clk, zerolog.Nop())

	screen, err := c.Compose(context.Background())
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if screen.LessonDay || screen.Lesson != nil {
		t.Fatalf("expected no lesson on saturday, got %+v", screen.Lesson)
	}
}

func TestComposeSettingsError(t *testing.T) {
	boom := errors.New("db down")
	c := NewComposer(&fakeSettings{err: boom}, nil, clock.NewManual(at(8, 0, 0)), zerolog.Nop())
	if _, err := c.Compose(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected settings error, got %v", err)
	}
}

func TestLessonDay(t *testing.T) {
	monday := at(12, 0, 0)
	sunday := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		rule string
		now  time.Time
		want bool
	}{
		{"", sunday, true},
		{"FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR", monday, true},
		{"FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR", sunday, false},
		{"FREQ=DAILY", sunday, true},
		{"FREQ=WEEKLY;BYDAY=SU", sunday, true},
	}
	for _, tc := range cases {
		got, err := LessonDay(tc.rule, tc.now)
		if err != nil {
			t.Fatalf("%q: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("LessonDay(%q, %s) = %v, want %v", tc.rule, tc.now.Weekday(), got, tc.want)
		}
	}

	if _, err := LessonDay("FREQ=NEVER", monday); err == nil {
		t.Fatal("expected error for invalid rule")
	}
}

func TestNewLessonViewIdle(t *testing.T) {
	if NewLessonView(lesson.Result{}) != nil {
		t.Fatal("expected nil view without a period")
	}
	if NewAlarm(lesson.Result{}, true) != nil {
		t.Fatal("expected nil alarm without a period")
	}
}

func TestMonitorPublishesTransitions(t *testing.T) {
	snap := testSnapshot()
	snap.Lessons = append(snap.Lessons, lesson.Period{Kind: lesson.KindBreak, Start: "09:30", End: "09:45"})
	clk := clock.NewManual(at(7, 59, 58))
	bus := events.NewBus()

	changed := bus.Subscribe(events.EventPeriodChanged)
	overtime := bus.Subscribe(events.EventOvertime)
	ticks := bus.Subscribe(events.EventLessonTick)

	m := NewMonitor(&fakeSettings{snap: snap}, clk, bus, zerolog.Nop())

	drain := func(sub events.Subscriber) []events.Payload {
		var out []events.Payload
		for {
			select {
			case p := <-sub:
				out = append(out, p)
			default:
				return out
			}
		}
	}

	if res := m.Tick(context.Background()); res.Active() {
		t.Fatal("expected idle before 08:00")
	}
	if got := drain(changed); len(got) != 0 {
		t.Fatalf("no change expected while idle, got %v", got)
	}
	if got := drain(ticks); len(got) != 1 {
		t.Fatalf("expected one tick event, got %d", len(got))
	}

	clk.Set(at(8, 0, 0))
	m.Tick(context.Background())
	got := drain(changed)
	if len(got) != 1 || got[0].String("to") != "stunde 08:00-09:30" || got[0].String("from") != "" {
		t.Fatalf("unexpected period change %v", got)
	}

	clk.Set(at(9, 0, 0))
	m.Tick(context.Background())
	if got := drain(changed); len(got) != 0 {
		t.Fatalf("no change expected within the period, got %v", got)
	}

	// Back-to-back periods: the lesson's overtime window still matches
	// first, before the break that starts at its end.
	clk.Set(at(9, 30, 5))
	for i := 0; i < 3; i++ {
		if res := m.Tick(context.Background()); !res.Overtime {
			t.Fatal("expected lesson overtime to win over the following break")
		}
	}
	ot := drain(overtime)
	if len(ot) != 1 || ot[0].String("type") != "stunde" {
		t.Fatalf("expected exactly one overtime event, got %v", ot)
	}

	if got := drain(changed); len(got) != 0 {
		t.Fatalf("overtime is the same period, got %v", got)
	}

	clk.Set(at(9, 31, 0))
	m.Tick(context.Background())
	got = drain(changed)
	if len(got) != 1 || got[0].String("to") != "pause 09:30-09:45" {
		t.Fatalf("expected change to the break, got %v", got)
	}

	clk.Set(at(10, 0, 0))
	m.Tick(context.Background())
	got = drain(changed)
	if len(got) != 1 || got[0].String("to") != "" {
		t.Fatalf("expected change to idle, got %v", got)
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	clk := clock.NewManual(at(8, 0, 0))
	bus := events.NewBus()
	ticks := bus.Subscribe(events.EventLessonTick)
	m := NewMonitor(&fakeSettings{snap: testSnapshot()}, clk, bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("expected initial tick")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestLessonAtExplicitTime(t *testing.T) {
	c := NewComposer(&fakeSettings{snap: testSnapshot()}, nil, clock.NewManual(at(12, 0, 0)), zerolog.Nop())

	res, when, err := c.Lesson(context.Background(), at(8, 0, 0))
	if err != nil {
		t.Fatalf("lesson: %v", err)
	}
	if !when.Equal(at(8, 0, 0)) || !res.Active() || res.Progress != 1 {
		t.Fatalf("unexpected result %+v at %s", res, when)
	}

	res, when, _ = c.Lesson(context.Background(), time.Time{})
	if !when.Equal(at(12, 0, 0)) || res.Active() {
		t.Fatalf("expected idle at clock time, got %+v at %s", res, when)
	}
}
