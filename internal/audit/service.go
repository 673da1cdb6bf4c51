/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit records admin operations by listening on the event bus.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/classboard/internal/events"
	"github.com/friendsincode/classboard/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db         *gorm.DB
	bus        events.Broker
	instanceID string
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus events.Broker, instanceID string, logger zerolog.Logger) *Service {
	return &Service{
		db:         db,
		bus:        bus,
		instanceID: instanceID,
		now:        time.Now,
		logger:     logger.With().Str("component", "audit").Logger(),
	}
}

var audited = map[events.EventType]models.AuditAction{
	events.EventSettingUpdated:   models.AuditActionSettingUpdate,
	events.EventSettingsImported: models.AuditActionSettingsImport,
	events.EventLogin:            models.AuditActionLogin,
	events.EventLoginFailed:      models.AuditActionLoginFailed,
	events.EventLogout:           models.AuditActionLogout,
}

type auditEvent struct {
	action  models.AuditAction
	payload events.Payload
}

// Start subscribes to admin events and logs them until ctx is done. Events
// replicated from other instances are skipped; their origin logs them.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	type subscription struct {
		eventType events.EventType
		ch        events.Subscriber
	}
	subs := make([]subscription, 0, len(audited))
	merged := make(chan auditEvent, 16)

	for eventType, action := range audited {
		sub := s.bus.Subscribe(eventType)
		subs = append(subs, subscription{eventType, sub})
		go func(action models.AuditAction, sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- auditEvent{action, payload}:
				case <-ctx.Done():
					return
				}
			}
		}(action, sub)
	}
	defer func() {
		for _, sub := range subs {
			s.bus.Unsubscribe(sub.eventType, sub.ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return
		case ev := <-merged:
			if ev.payload.Bool("remote") {
				continue
			}
			s.logAuditEntry(ctx, ev.action, ev.payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		Action:     action,
		SettingKey: payload.String("key"),
		OldValue:   payload.String("old_value"),
		NewValue:   payload.String("new_value"),
		IPAddress:  payload.String("ip"),
		UserAgent:  truncate(payload.String("user_agent"), 512),
		InstanceID: s.instanceID,
	}
	if keys, ok := payload["keys"].([]string); ok {
		entry.NewValue = strings.Join(keys, ",")
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly.
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	Action     *models.AuditAction
	SettingKey *string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// Query retrieves audit logs with filters, most recent first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.SettingKey != nil {
		query = query.Where("setting_key = ?", *filters.SettingKey)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 && filters.Limit <= 500 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
