/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package trains lists the next regional departures at a station.
package trains

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"time"

	"github.com/friendsincode/classboard/internal/cache"
	"github.com/friendsincode/classboard/internal/upstream"
	"github.com/rs/zerolog"
)

// Shown is the number of departures displayed.
const Shown = 8

// ErrInvalidStation is returned for station ids that are not numeric.
var ErrInvalidStation = errors.New("invalid station id")

var stationPattern = regexp.MustCompile(`^[0-9]+$`)

// Departure is one upcoming train.
type Departure struct {
	Line         string    `json:"line"`
	Direction    string    `json:"direction"`
	Stop         string    `json:"stop"`
	When         time.Time `json:"when"`
	Time         string    `json:"time"`
	DelaySeconds int       `json:"delaySeconds"`
	Delay        string    `json:"delay"`
	Platform     string    `json:"platform,omitempty"`
	Cancelled    bool      `json:"cancelled,omitempty"`
}

// Board is the departure list of one station.
type Board struct {
	StationID  string      `json:"stationId"`
	Departures []Departure `json:"departures"`
}

// Service fetches departures from the transport REST API.
type Service struct {
	client *upstream.Client
	cache  *cache.Cache
	loc    *time.Location
	logger zerolog.Logger
}

// NewService constructs a departures service. Times are rendered in loc.
func NewService(client *upstream.Client, c *cache.Cache, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		client: client,
		cache:  c,
		loc:    loc,
		logger: logger.With().Str("component", "trains").Logger(),
	}
}

// Next returns the next departures at station, cached for
// cache.DefaultDeparturesTTL.
func (s *Service) Next(ctx context.Context, station string) (Board, error) {
	if !stationPattern.MatchString(station) {
		return Board{}, fmt.Errorf("%w: %q", ErrInvalidStation, station)
	}
	return cache.Fetch(ctx, s.cache, "departures", cache.KeyDepartures+station, cache.DefaultDeparturesTTL, func(ctx context.Context) (Board, error) {
		return s.fetch(ctx, station)
	})
}

type departuresResponse struct {
	Departures []struct {
		When        *time.Time `json:"when"`
		PlannedWhen *time.Time `json:"plannedWhen"`
		Delay       *int       `json:"delay"`
		Direction   string     `json:"direction"`
		Platform    string     `json:"platform"`
		Cancelled   bool       `json:"cancelled"`
		Line        struct {
			Name string `json:"name"`
		} `json:"line"`
		Stop struct {
			Name string `json:"name"`
		} `json:"stop"`
	} `json:"departures"`
}

func (s *Service) fetch(ctx context.Context, station string) (Board, error) {
	var resp departuresResponse
	err := s.client.GetJSON(ctx, "/stops/"+station+"/departures", url.Values{
		"results":         {"20"},
		"duration":        {"60"},
		"bus":             {"false"},
		"tram":            {"false"},
		"subway":          {"false"},
		"taxi":            {"false"},
		"ferry":           {"false"},
		"national":        {"false"},
		"nationalExpress": {"false"},
	}, &resp)
	if err != nil {
		return Board{}, err
	}

	board := Board{StationID: station, Departures: make([]Departure, 0, len(resp.Departures))}
	for _, d := range resp.Departures {
		when := d.When
		if when == nil {
			when = d.PlannedWhen
		}
		if when == nil {
			continue
		}
		dep := Departure{
			Line:      d.Line.Name,
			Direction: d.Direction,
			Stop:      d.Stop.Name,
			When:      *when,
			Time:      when.In(s.loc).Format("15:04"),
			Platform:  d.Platform,
			Cancelled: d.Cancelled,
		}
		if d.Delay != nil {
			dep.DelaySeconds = *d.Delay
		}
		dep.Delay = FormatDelay(dep.DelaySeconds)
		board.Departures = append(board.Departures, dep)
	}

	sort.SliceStable(board.Departures, func(i, j int) bool {
		return board.Departures[i].When.Before(board.Departures[j].When)
	})
	if len(board.Departures) > Shown {
		board.Departures = board.Departures[:Shown]
	}

	s.logger.Debug().Str("station", station).Int("count", len(board.Departures)).Msg("departures refreshed")
	return board, nil
}

// FormatDelay renders a delay in seconds as "+N" whole minutes, or "" when
// the train is on time or early.
func FormatDelay(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d", seconds/60)
}
