/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package backup exports and imports the settings as YAML documents.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/classboard/internal/settings"
	"github.com/friendsincode/classboard/internal/storage"
	"github.com/friendsincode/classboard/internal/telemetry"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// FormatVersion is written to every export.
const FormatVersion = 1

// Prefix is the object key prefix of stored backups.
const Prefix = "backups/"

var (
	// ErrInvalidDocument is returned for input that is not a backup document.
	ErrInvalidDocument = errors.New("invalid backup document")
	// ErrUnsupportedVersion is returned for documents from a newer format.
	ErrUnsupportedVersion = errors.New("unsupported backup version")
)

// Document is the YAML export format.
type Document struct {
	Version    int            `yaml:"version"`
	ExportedAt time.Time      `yaml:"exported_at"`
	Instance   string         `yaml:"instance,omitempty"`
	Settings   map[string]any `yaml:"settings"`
}

// SettingsSource reads and imports setting values.
type SettingsSource interface {
	Values(ctx context.Context) (map[string]json.RawMessage, error)
	Import(ctx context.Context, values map[string]json.RawMessage, actor settings.Actor) (int, error)
}

// Service exports settings and keeps backups in an object store.
type Service struct {
	settings SettingsSource
	store    storage.ObjectStore
	instance string
	now      func() time.Time
	isLeader func() bool
	logger   zerolog.Logger
}

// NewService constructs a backup service. store may be nil when only
// Export and Import are used.
func NewService(src SettingsSource, store storage.ObjectStore, instance string, logger zerolog.Logger) *Service {
	return &Service{
		settings: src,
		store:    store,
		instance: instance,
		now:      time.Now,
		logger:   logger.With().Str("component", "backup").Logger(),
	}
}

// SetLeaderCheck restricts periodic backups to ticks where isLeader
// reports true. Without it every tick writes a backup.
func (s *Service) SetLeaderCheck(isLeader func() bool) {
	s.isLeader = isLeader
}

// Export renders all settings as a YAML document.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	values, err := s.settings.Values(ctx)
	if err != nil {
		return nil, err
	}

	doc := Document{
		Version:    FormatVersion,
		ExportedAt: s.now().UTC().Truncate(time.Second),
		Instance:   s.instance,
		Settings:   make(map[string]any, len(values)),
	}
	for key, raw := range values {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode setting %s: %w", key, err)
		}
		doc.Settings[key] = v
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return out, nil
}

// Parse decodes a YAML export into raw JSON setting values.
func Parse(data []byte) (map[string]json.RawMessage, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	values := make(map[string]json.RawMessage, len(doc.Settings))
	for key, v := range doc.Settings {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode setting %s: %w", key, err)
		}
		values[key] = raw
	}
	return values, nil
}

// Import validates and stores every setting of a YAML export.
func (s *Service) Import(ctx context.Context, data []byte, actor settings.Actor) (int, error) {
	values, err := Parse(data)
	if err != nil {
		return 0, err
	}
	return s.settings.Import(ctx, values, actor)
}

// Backup exports the settings into the object store and returns the key.
func (s *Service) Backup(ctx context.Context) (key string, err error) {
	if s.store == nil {
		return "", errors.New("backup storage not configured")
	}
	ctx, span := telemetry.StartSpan(ctx, "backup", "Backup")
	defer func() { telemetry.EndSpan(span, err) }()

	data, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	key = Prefix + "settings-" + s.now().UTC().Format("20060102T150405Z") + ".yaml"
	if err = s.store.Put(ctx, key, data); err != nil {
		return "", err
	}
	s.logger.Info().Str("key", key).Int("bytes", len(data)).Msg("settings backup written")
	return key, nil
}

// List returns stored backup keys, newest first.
func (s *Service) List(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return []string{}, nil
	}
	keys, err := s.store.List(ctx, Prefix)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// Restore imports a stored backup.
func (s *Service) Restore(ctx context.Context, key string, actor settings.Actor) (int, error) {
	if s.store == nil {
		return 0, errors.New("backup storage not configured")
	}
	if !strings.HasPrefix(key, Prefix) {
		key = Prefix + key
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := s.Import(ctx, data, actor)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("key", key).Int("count", n).Msg("settings restored from backup")
	return n, nil
}

// Run writes a backup every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.store == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("periodic backups enabled")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.isLeader != nil && !s.isLeader() {
				s.logger.Debug().Msg("not the leader, skipping periodic backup")
				continue
			}
			if _, err := s.Backup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("periodic backup failed")
			}
		}
	}
}
