/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/friendsincode/classboard/internal/backup"
	"github.com/friendsincode/classboard/internal/storage"
)

type restoreRequest struct {
	Key string `json:"key"`
}

// handleBackupExport downloads the settings as YAML.
func (a *API) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	data, err := a.backup.Export(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to export settings")
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="classboard-settings.yaml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleBackupImport imports a YAML export from the request body.
func (a *API) handleBackupImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	n, err := a.backup.Import(r.Context(), data, actor(r))
	if err != nil {
		a.writeBackupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (a *API) handleBackupList(w http.ResponseWriter, r *http.Request) {
	keys, err := a.backup.List(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to list backups")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": keys})
}

func (a *API) handleBackupCreate(w http.ResponseWriter, r *http.Request) {
	key, err := a.backup.Backup(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to write backup")
		writeError(w, http.StatusInternalServerError, "backup_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (a *API) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(r, &req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	n, err := a.backup.Restore(r.Context(), req.Key, actor(r))
	if err != nil {
		a.writeBackupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (a *API) writeBackupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "backup_not_found")
	case errors.Is(err, backup.ErrInvalidDocument), errors.Is(err, backup.ErrUnsupportedVersion):
		writeErrorDetail(w, http.StatusBadRequest, "invalid_backup", err)
	default:
		a.writeSettingsError(w, err)
	}
}
