/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/friendsincode/classboard/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store persists setting documents keyed by name.
type Store interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Put(ctx context.Context, key string, value json.RawMessage) (*models.Setting, error)
	// PutAll stores every value or none of them.
	PutAll(ctx context.Context, values map[string]json.RawMessage) error
}

// GormStore stores settings in the settings table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// List returns all stored documents ordered by key.
func (s *GormStore) List(ctx context.Context) ([]models.Setting, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return rows, nil
}

// Get returns the document for key or ErrNotFound.
func (s *GormStore) Get(ctx context.Context, key string) (*models.Setting, error) {
	var row models.Setting
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return &row, nil
}

// Put creates or replaces the value of key, incrementing its revision.
func (s *GormStore) Put(ctx context.Context, key string, value json.RawMessage) (*models.Setting, error) {
	var saved *models.Setting
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := put(tx, key, value)
		saved = row
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("put setting %s: %w", key, err)
	}
	return saved, nil
}

// PutAll writes all values in one transaction, in key order.
func (s *GormStore) PutAll(ctx context.Context, values map[string]json.RawMessage) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			if _, err := put(tx, key, values[key]); err != nil {
				return fmt.Errorf("put setting %s: %w", key, err)
			}
		}
		return nil
	})
}

func put(tx *gorm.DB, key string, value json.RawMessage) (*models.Setting, error) {
	var row models.Setting
	err := tx.Where("name = ?", key).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.Setting{ID: uuid.NewString(), Key: key, Value: string(value), Rev: 1}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := tx.Model(&row).Updates(map[string]any{
			"value": string(value),
			"rev":   gorm.Expr("rev + 1"),
		}).Error; err != nil {
			return nil, err
		}
		if err := tx.Where("id = ?", row.ID).First(&row).Error; err != nil {
			return nil, err
		}
	}
	return &row, nil
}
