/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for admin operations.
const (
	AuditActionSettingUpdate  AuditAction = "setting.update"
	AuditActionSettingsImport AuditAction = "settings.import"
	AuditActionLogin          AuditAction = "auth.login"
	AuditActionLoginFailed    AuditAction = "auth.login_failed"
	AuditActionLogout         AuditAction = "auth.logout"
)

// AuditLog records admin operations on the dashboard configuration.
type AuditLog struct {
	ID         string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp  time.Time   `gorm:"index:idx_audit_timestamp;not null" json:"timestamp"`
	Action     AuditAction `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"`
	SettingKey string      `gorm:"type:varchar(64);index:idx_audit_key" json:"key,omitempty"`
	OldValue   string      `gorm:"type:text" json:"oldValue,omitempty"`
	NewValue   string      `gorm:"type:text" json:"newValue,omitempty"`
	IPAddress  string      `gorm:"type:varchar(45)" json:"ip,omitempty"` // IPv4 or IPv6
	UserAgent  string      `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	InstanceID string      `gorm:"type:varchar(64)" json:"instanceId,omitempty"`
	CreatedAt  time.Time   `json:"-"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
