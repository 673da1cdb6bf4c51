/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/classboard/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Setting{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if err := normalizeEmptySettingValues(database); err != nil {
		return err
	}

	return nil
}

// normalizeEmptySettingValues rewrites rows imported with an empty value to
// JSON null so every stored value decodes.
func normalizeEmptySettingValues(database *gorm.DB) error {
	if err := database.Model(&models.Setting{}).
		Where("value = ?", "").
		Update("value", "null").Error; err != nil {
		return fmt.Errorf("normalize empty setting values: %w", err)
	}
	return nil
}
