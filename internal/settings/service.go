/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package settings manages the dashboard configuration documents: known
// keys with defaults and validation, persistence and change notification.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/friendsincode/classboard/internal/cache"
	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/models"
	"github.com/friendsincode/classboard/internal/telemetry"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by stores for keys without a document.
	ErrNotFound = errors.New("setting not found")
	// ErrUnknownKey is returned for keys without a definition.
	ErrUnknownKey = errors.New("unknown setting key")
	// ErrInvalidValue wraps validation failures.
	ErrInvalidValue = errors.New("invalid setting value")
)

// Actor identifies who changed a setting.
type Actor struct {
	IP        string
	UserAgent string
}

// Service reads and writes settings.
type Service struct {
	store  Store
	cache  *cache.Cache
	bus    events.Broker
	logger zerolog.Logger
}

// NewService constructs the settings service.
func NewService(store Store, c *cache.Cache, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  c,
		bus:    bus,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// Definitions returns all known settings.
func (s *Service) Definitions() []Definition {
	return Definitions()
}

// List returns one document per known key, plus any stored keys that are
// no longer defined. Keys never written are returned with their default
// value and revision 0.
func (s *Service) List(ctx context.Context) ([]models.Setting, error) {
	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]models.Setting, len(stored))
	for _, row := range stored {
		byKey[row.Key] = row
	}

	out := make([]models.Setting, 0, len(definitions)+len(stored))
	for _, def := range definitions {
		if row, ok := byKey[def.Key]; ok {
			out = append(out, row)
			delete(byKey, def.Key)
			continue
		}
		out = append(out, models.Setting{Key: def.Key, Value: string(def.Default)})
	}

	extra := make([]string, 0, len(byKey))
	for key := range byKey {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	for _, key := range extra {
		out = append(out, byKey[key])
	}
	return out, nil
}

// Get returns the document for a known key, or its default.
func (s *Service) Get(ctx context.Context, key string) (models.Setting, error) {
	def, ok := Lookup(key)
	if !ok {
		return models.Setting{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	row, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return models.Setting{Key: key, Value: string(def.Default)}, nil
	}
	if err != nil {
		return models.Setting{}, err
	}
	return *row, nil
}

// Update validates and stores a new value for key, then invalidates the
// cached snapshot and publishes EventSettingUpdated.
func (s *Service) Update(ctx context.Context, key string, raw json.RawMessage, actor Actor) (*models.Setting, error) {
	value, err := Normalize(key, raw)
	if err != nil {
		telemetry.SettingsUpdatesTotal.WithLabelValues(metricKey(key), "rejected").Inc()
		return nil, err
	}

	old := ""
	if prev, err := s.store.Get(ctx, key); err == nil {
		old = prev.Value
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	saved, err := s.store.Put(ctx, key, value)
	if err != nil {
		telemetry.SettingsUpdatesTotal.WithLabelValues(key, "error").Inc()
		return nil, err
	}
	telemetry.SettingsUpdatesTotal.WithLabelValues(key, "ok").Inc()

	s.invalidate(ctx)
	s.logger.Info().Str("key", key).Int("rev", saved.Rev).Str("ip", actor.IP).Msg("setting updated")

	s.bus.Publish(events.EventSettingUpdated, events.Payload{
		"key":        key,
		"old_value":  old,
		"new_value":  saved.Value,
		"rev":        saved.Rev,
		"ip":         actor.IP,
		"user_agent": actor.UserAgent,
	})
	return saved, nil
}

// Import validates every value first and then stores them all in one
// transaction. Unknown keys abort the import. It returns the number of
// stored keys.
func (s *Service) Import(ctx context.Context, values map[string]json.RawMessage, actor Actor) (int, error) {
	normalized := make(map[string]json.RawMessage, len(values))
	for key, raw := range values {
		value, err := Normalize(key, raw)
		if err != nil {
			return 0, err
		}
		normalized[key] = value
	}

	keys := make([]string, 0, len(normalized))
	for key := range normalized {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if err := s.store.PutAll(ctx, normalized); err != nil {
		return 0, err
	}

	s.invalidate(ctx)
	s.logger.Info().Int("count", len(keys)).Str("ip", actor.IP).Msg("settings imported")
	s.bus.Publish(events.EventSettingsImported, events.Payload{
		"keys":       keys,
		"ip":         actor.IP,
		"user_agent": actor.UserAgent,
	})
	return len(keys), nil
}

// Seed stores the default of every known key that has no document yet.
func (s *Service) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, def := range definitions {
		_, err := s.store.Get(ctx, def.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		if _, err := s.store.Put(ctx, def.Key, def.Default); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.invalidate(ctx)
		s.logger.Info().Int("count", created).Msg("seeded default settings")
	}
	return created, nil
}

// Values returns the stored raw values of every known key, defaults
// included.
func (s *Service) Values(ctx context.Context) (map[string]json.RawMessage, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[string]json.RawMessage, len(docs))
	for _, doc := range docs {
		if _, ok := Lookup(doc.Key); ok {
			values[doc.Key] = doc.RawValue()
		}
	}
	return values, nil
}

// Snapshot returns the typed settings, served from cache when possible.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	return cache.Fetch(ctx, s.cache, "settings", cache.KeySettings, cache.DefaultSettingsTTL, func(ctx context.Context) (Snapshot, error) {
		rows, err := s.store.List(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		values := make(map[string]json.RawMessage, len(rows))
		for _, row := range rows {
			values[row.Key] = row.RawValue()
		}
		return BuildSnapshot(values, s.logger), nil
	})
}

// Start drops the cached snapshot whenever settings change on any instance.
func (s *Service) Start(ctx context.Context) {
	updated := s.bus.Subscribe(events.EventSettingUpdated)
	imported := s.bus.Subscribe(events.EventSettingsImported)
	defer s.bus.Unsubscribe(events.EventSettingUpdated, updated)
	defer s.bus.Unsubscribe(events.EventSettingsImported, imported)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-updated:
			if !ok {
				return
			}
			if payload.Bool("remote") {
				s.invalidate(ctx)
			}
		case payload, ok := <-imported:
			if !ok {
				return
			}
			if payload.Bool("remote") {
				s.invalidate(ctx)
			}
		}
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeySettings); err != nil {
		s.logger.Debug().Err(err).Msg("invalidate settings cache")
	}
}

// metricKey keeps the key label bounded to known keys.
func metricKey(key string) string {
	if _, ok := Lookup(key); ok {
		return key
	}
	return "unknown"
}
