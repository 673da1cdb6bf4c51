/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/friendsincode/classboard/internal/display"
	"github.com/friendsincode/classboard/internal/lesson"
	"github.com/friendsincode/classboard/internal/trains"
	"github.com/friendsincode/classboard/internal/upstream"
	"github.com/friendsincode/classboard/internal/weather"
)

type lessonResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	Result    lesson.Result       `json:"result"`
	View      *display.LessonView `json:"view"`
}

// handleDisplay returns the full screen state.
func (a *API) handleDisplay(w http.ResponseWriter, r *http.Request) {
	screen, err := a.display.Compose(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to compose display")
		writeError(w, http.StatusInternalServerError, "compose_failed")
		return
	}
	writeJSON(w, http.StatusOK, screen)
}

// handleLesson evaluates the schedule now, or today at ?at=HH:MM.
func (a *API) handleLesson(w http.ResponseWriter, r *http.Request) {
	var at time.Time
	if v := r.URL.Query().Get("at"); v != "" {
		minutes, err := lesson.ParseTimeOfDay(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time")
			return
		}
		now := a.display.Now()
		at = time.Date(now.Year(), now.Month(), now.Day(), minutes/60, minutes%60, 0, 0, now.Location())
	}

	res, when, err := a.display.Lesson(r.Context(), at)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to evaluate lesson")
		writeError(w, http.StatusInternalServerError, "evaluate_failed")
		return
	}
	writeJSON(w, http.StatusOK, lessonResponse{Timestamp: when, Result: res, View: display.NewLessonView(res)})
}

// handleWeather reports the weather for ?zip= or the configured zip code.
func (a *API) handleWeather(w http.ResponseWriter, r *http.Request) {
	if a.weather == nil {
		writeError(w, http.StatusServiceUnavailable, "weather_not_configured")
		return
	}
	zip := strings.TrimSpace(r.URL.Query().Get("zip"))
	if zip == "" {
		snap, err := a.settings.Snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "query_failed")
			return
		}
		zip = snap.ZipCode
	}
	if zip == "" {
		writeError(w, http.StatusNotFound, "zip_not_configured")
		return
	}

	report, err := a.weather.Current(r.Context(), zip)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, weather.ErrInvalidZip):
		writeError(w, http.StatusBadRequest, "invalid_zip")
	case errors.Is(err, weather.ErrZipNotFound):
		writeError(w, http.StatusNotFound, "zip_not_found")
	case errors.Is(err, weather.ErrNoWeatherData):
		writeError(w, http.StatusBadGateway, "no_weather_data")
	default:
		a.writeUpstreamError(w, err)
	}
}

// handleDepartures lists the next trains at ?station= or the configured station.
func (a *API) handleDepartures(w http.ResponseWriter, r *http.Request) {
	if a.trains == nil {
		writeError(w, http.StatusServiceUnavailable, "departures_not_configured")
		return
	}
	station := strings.TrimSpace(r.URL.Query().Get("station"))
	if station == "" {
		snap, err := a.settings.Snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "query_failed")
			return
		}
		station = snap.TrainStationID
	}

	board, err := a.trains.Next(r.Context(), station)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, board)
	case errors.Is(err, trains.ErrInvalidStation):
		writeError(w, http.StatusBadRequest, "invalid_station")
	default:
		a.writeUpstreamError(w, err)
	}
}

// handleAffirmation returns the affirmation of the hour.
func (a *API) handleAffirmation(w http.ResponseWriter, r *http.Request) {
	if a.affirmation == nil {
		writeError(w, http.StatusServiceUnavailable, "affirmation_not_configured")
		return
	}
	text, err := a.affirmation.Current(r.Context())
	if err != nil {
		a.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"affirmation": text})
}

func (a *API) writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, upstream.ErrUnavailable) {
		writeError(w, http.StatusBadGateway, "upstream_unavailable")
		return
	}
	a.logger.Error().Err(err).Msg("upstream lookup failed")
	writeError(w, http.StatusBadGateway, "upstream_error")
}
