/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"sync"

	"github.com/friendsincode/classboard/internal/telemetry"
)

// EventType enumerates event categories.
type EventType string

const (
	// Settings changes. These are replicated between instances.
	EventSettingUpdated   EventType = "settings.updated"
	EventSettingsImported EventType = "settings.imported"

	// Lesson monitor
	EventLessonTick    EventType = "lesson.tick"
	EventPeriodChanged EventType = "lesson.period_changed"
	EventOvertime      EventType = "lesson.overtime"

	// Admin session
	EventLogin       EventType = "auth.login"
	EventLoginFailed EventType = "auth.login_failed"
	EventLogout      EventType = "auth.logout"
)

// DisplayEvents are the event types pushed to dashboard clients.
var DisplayEvents = []EventType{
	EventSettingUpdated,
	EventSettingsImported,
	EventLessonTick,
	EventPeriodChanged,
	EventOvertime,
}

// Replicated reports whether events of this type must reach other instances.
func (t EventType) Replicated() bool {
	return t == EventSettingUpdated || t == EventSettingsImported
}

// Payload generic event payload.
type Payload map[string]any

// String returns the string value stored under key, or "".
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the boolean value stored under key.
func (p Payload) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Subscriber receives event payloads.
type Subscriber chan Payload

// Broker is implemented by the in-process Bus and by transports that extend
// it across instances.
type Broker interface {
	Subscribe(eventType EventType) Subscriber
	Publish(eventType EventType, payload Payload)
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType), "local").Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}
