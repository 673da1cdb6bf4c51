/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/friendsincode/classboard/internal/settings"
	"github.com/friendsincode/classboard/internal/testbed"
)

type testbedFilterRequest struct {
	Filter map[string]any `json:"filter"`
}

// loadTestbedItems returns the stored testbed_info entries and whether a
// document exists.
func (a *API) loadTestbedItems(r *http.Request) ([]json.RawMessage, bool, error) {
	doc, err := a.settings.Get(r.Context(), settings.KeyTestbedInfo)
	if err != nil {
		return nil, false, err
	}
	items := []json.RawMessage{}
	if err := json.Unmarshal(doc.RawValue(), &items); err != nil || items == nil {
		items = []json.RawMessage{}
	}
	return items, doc.Rev > 0, nil
}

func testbedResponse(items []json.RawMessage, found bool) map[string]any {
	resp := map[string]any{
		"success":   true,
		"data":      items,
		"count":     len(items),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if !found {
		resp["message"] = "No testbed data found"
	}
	return resp
}

// handleTestbedInfo returns the testbed assignments to API key holders.
func (a *API) handleTestbedInfo(w http.ResponseWriter, r *http.Request) {
	items, found, err := a.loadTestbedItems(r)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load testbed info")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, testbedResponse(items, found))
}

// handleTestbedInfoFilter returns only the entries matching {filter}.
func (a *API) handleTestbedInfoFilter(w http.ResponseWriter, r *http.Request) {
	var req testbedFilterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items, found, err := a.loadTestbedItems(r)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load testbed info")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := testbedResponse(testbed.Filter(items, req.Filter), found)
	resp["count"] = len(resp["data"].([]json.RawMessage))
	resp["filter"] = req.Filter
	writeJSON(w, http.StatusOK, resp)
}
