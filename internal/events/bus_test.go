package events

import "testing"

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(EventSettingUpdated)
	b := bus.Subscribe(EventSettingUpdated)
	other := bus.Subscribe(EventLessonTick)

	bus.Publish(EventSettingUpdated, Payload{"key": "zoom_level"})

	for _, sub := range []Subscriber{a, b} {
		select {
		case p := <-sub:
			if p.String("key") != "zoom_level" {
				t.Fatalf("unexpected payload %v", p)
			}
		default:
			t.Fatal("expected payload")
		}
	}
	select {
	case p := <-other:
		t.Fatalf("unexpected delivery to other type: %v", p)
	default:
	}
}

func TestBusPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventLessonTick)

	for i := 0; i < 100; i++ {
		bus.Publish(EventLessonTick, Payload{"i": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("expected full buffer, got %d/%d", len(sub), cap(sub))
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventOvertime)
	bus.Unsubscribe(EventOvertime, sub)
	bus.Unsubscribe(EventOvertime, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(EventOvertime, Payload{})
}

func TestReplicatedTypes(t *testing.T) {
	if !EventSettingUpdated.Replicated() || EventLessonTick.Replicated() {
		t.Fatal("only settings events replicate")
	}
}

func TestPayloadAccessors(t *testing.T) {
	p := Payload{"s": "x", "b": true, "n": 1}
	if p.String("s") != "x" || p.String("n") != "" || !p.Bool("b") || p.Bool("s") {
		t.Fatalf("unexpected accessor results for %v", p)
	}
}
