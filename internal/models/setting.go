/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"encoding/json"
	"time"
)

// Setting is one dashboard configuration document: a unique key with an
// arbitrary JSON value. Rev increases on every write.
type Setting struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"_id"`
	Key       string    `gorm:"column:name;type:varchar(64);uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"-"`
	Rev       int       `gorm:"not null;default:1" json:"_rev"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (Setting) TableName() string {
	return "settings"
}

// RawValue returns the stored JSON value, or null when empty.
func (s Setting) RawValue() json.RawMessage {
	if s.Value == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s.Value)
}

// MarshalJSON renders the document with its value inlined as JSON.
func (s Setting) MarshalJSON() ([]byte, error) {
	type alias Setting
	return json.Marshal(struct {
		alias
		Value json.RawMessage `json:"value"`
	}{alias: alias(s), Value: s.RawValue()})
}
