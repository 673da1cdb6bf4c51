/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/classboard/internal/settings"
	"github.com/friendsincode/classboard/internal/testbed"
)

type settingValueRequest struct {
	Value json.RawMessage `json:"value"`
}

type legacyUpdateRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type testbedPatchRequest struct {
	Name    *string          `json:"name,omitempty"`
	Enabled *bool            `json:"enabled,omitempty"`
	Servers []testbed.Server `json:"servers,omitempty"`
}

// handleSettingsList returns every setting document, defaults included.
func (a *API) handleSettingsList(w http.ResponseWriter, r *http.Request) {
	docs, err := a.settings.List(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to list settings")
		writeError(w, http.StatusInternalServerError, "query_failed")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (a *API) handleSettingsDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"definitions": a.settings.Definitions(),
		"categories":  settings.Categories(),
	})
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	doc, err := a.settings.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		a.writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var req settingValueRequest
	if err := decodeJSON(r, &req); err != nil || len(req.Value) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	doc, err := a.settings.Update(r.Context(), chi.URLParam(r, "key"), req.Value, actor(r))
	if err != nil {
		a.writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleSettingsImport stores a map of key to value after validating all of them.
func (a *API) handleSettingsImport(w http.ResponseWriter, r *http.Request) {
	var values map[string]json.RawMessage
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	n, err := a.settings.Import(r.Context(), values, actor(r))
	if err != nil {
		a.writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// handleLegacyUpdateSetting accepts {key, value} and answers {success, result}.
func (a *API) handleLegacyUpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req legacyUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "Missing key")
		return
	}
	if len(req.Value) == 0 {
		req.Value = json.RawMessage("null")
	}

	doc, err := a.settings.Update(r.Context(), req.Key, req.Value, actor(r))
	if err != nil {
		a.writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result": map[string]any{
			"ok":  true,
			"id":  doc.ID,
			"rev": doc.Rev,
		},
	})
}

// handleTestbedPatch edits one testbed inside the testbed_info setting.
func (a *API) handleTestbedPatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "testbedID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_testbed_id")
		return
	}

	var req testbedPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	snap, err := a.settings.Snapshot(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load settings")
		writeError(w, http.StatusInternalServerError, "query_failed")
		return
	}

	configs := snap.Testbeds
	if req.Name != nil {
		configs, err = testbed.Rename(configs, id, *req.Name)
	}
	if err == nil && req.Enabled != nil {
		configs, err = testbed.SetEnabled(configs, id, *req.Enabled)
	}
	for _, srv := range req.Servers {
		if err != nil {
			break
		}
		configs, err = testbed.SetGroup(configs, id, srv.Ort, srv.Gruppe)
	}
	if errors.Is(err, testbed.ErrUnknownTestbed) {
		writeError(w, http.StatusNotFound, "testbed_not_found")
		return
	}
	if err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "invalid_value", err)
		return
	}

	raw, err := json.Marshal(configs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed")
		return
	}
	if _, err := a.settings.Update(r.Context(), settings.KeyTestbedInfo, raw, actor(r)); err != nil {
		a.writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

func (a *API) writeSettingsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settings.ErrUnknownKey):
		writeErrorDetail(w, http.StatusBadRequest, "unknown_key", err)
	case errors.Is(err, settings.ErrInvalidValue):
		writeErrorDetail(w, http.StatusBadRequest, "invalid_value", err)
	case errors.Is(err, settings.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		a.logger.Error().Err(err).Msg("settings operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
