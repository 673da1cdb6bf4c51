/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package weather resolves a German ZIP code to coordinates and reports the
// current weather there.
package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"

	"github.com/friendsincode/classboard/internal/cache"
	"github.com/friendsincode/classboard/internal/upstream"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidZip is returned for ZIP codes that are not five digits.
	ErrInvalidZip = errors.New("invalid zip code")
	// ErrZipNotFound is returned when the geocoder has no match.
	ErrZipNotFound = errors.New("zip code not found")
	// ErrNoWeatherData is returned when the weather service has no observation.
	ErrNoWeatherData = errors.New("no weather data available")
)

var zipPattern = regexp.MustCompile(`^[0-9]{5}$`)

// Report is the current weather at a ZIP code.
type Report struct {
	Zip         string   `json:"zip"`
	Latitude    float64  `json:"lat"`
	Longitude   float64  `json:"lon"`
	Place       string   `json:"place,omitempty"`
	Temperature int      `json:"temperature"`
	Condition   string   `json:"condition"`
	WindSpeed   *float64 `json:"wind_speed,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Symbol      string   `json:"symbol"`
	Station     string   `json:"station,omitempty"`
}

// Service queries the geocoder and the weather API.
type Service struct {
	geocoder *upstream.Client
	weather  *upstream.Client
	cache    *cache.Cache
	logger   zerolog.Logger
}

// NewService constructs a weather service from two upstream clients.
func NewService(geocoder, weather *upstream.Client, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		geocoder: geocoder,
		weather:  weather,
		cache:    c,
		logger:   logger.With().Str("component", "weather").Logger(),
	}
}

// Current returns the weather for zip, cached for cache.DefaultWeatherTTL.
func (s *Service) Current(ctx context.Context, zip string) (Report, error) {
	if !zipPattern.MatchString(zip) {
		return Report{}, fmt.Errorf("%w: %q", ErrInvalidZip, zip)
	}
	return cache.Fetch(ctx, s.cache, "weather", cache.KeyWeather+zip, cache.DefaultWeatherTTL, func(ctx context.Context) (Report, error) {
		return s.fetch(ctx, zip)
	})
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type currentWeather struct {
	Weather *struct {
		Temperature      *float64 `json:"temperature"`
		Condition        string   `json:"condition"`
		Icon             string   `json:"icon"`
		WindSpeed        *float64 `json:"wind_speed"`
		WindSpeed10      *float64 `json:"wind_speed_10"`
		RelativeHumidity *float64 `json:"relative_humidity"`
	} `json:"weather"`
	Sources []struct {
		StationName string `json:"station_name"`
	} `json:"sources"`
}

func (s *Service) fetch(ctx context.Context, zip string) (Report, error) {
	var places []place
	err := s.geocoder.GetJSON(ctx, "/search", url.Values{
		"postalcode": {zip},
		"country":    {"DE"},
		"format":     {"json"},
		"limit":      {"1"},
	}, &places)
	if err != nil {
		return Report{}, err
	}
	if len(places) == 0 {
		return Report{}, fmt.Errorf("%w: %s", ErrZipNotFound, zip)
	}

	lat, lon := places[0].Lat, places[0].Lon
	report := Report{Zip: zip, Place: places[0].DisplayName}
	if _, err := fmt.Sscan(lat, &report.Latitude); err != nil {
		return Report{}, fmt.Errorf("geocoder latitude %q: %w", lat, err)
	}
	if _, err := fmt.Sscan(lon, &report.Longitude); err != nil {
		return Report{}, fmt.Errorf("geocoder longitude %q: %w", lon, err)
	}

	var data currentWeather
	if err := s.weather.GetJSON(ctx, "/current_weather", url.Values{"lat": {lat}, "lon": {lon}}, &data); err != nil {
		return Report{}, err
	}
	if data.Weather == nil || data.Weather.Temperature == nil {
		return Report{}, ErrNoWeatherData
	}

	w := data.Weather
	report.Temperature = int(math.Round(*w.Temperature))
	report.Condition = w.Condition
	report.Icon = w.Icon
	report.Symbol = Symbol(w.Icon)
	report.Humidity = w.RelativeHumidity
	report.WindSpeed = w.WindSpeed
	if report.WindSpeed == nil {
		report.WindSpeed = w.WindSpeed10
	}
	if len(data.Sources) > 0 {
		report.Station = data.Sources[0].StationName
	}

	s.logger.Debug().Str("zip", zip).Int("temperature", report.Temperature).Str("icon", w.Icon).Msg("weather refreshed")
	return report, nil
}

// Symbol maps a weather icon name to the emoji shown on the display.
func Symbol(icon string) string {
	switch icon {
	case "clear-day":
		return "☀️"
	case "clear-night":
		return "🌙"
	case "partly-cloudy-day":
		return "⛅"
	case "partly-cloudy-night", "cloudy":
		return "☁️"
	case "fog":
		return "🌫️"
	case "wind":
		return "💨"
	case "rain":
		return "🌧️"
	case "sleet":
		return "🌨️"
	case "snow":
		return "❄️"
	case "hail":
		return "🧊"
	case "thunderstorm":
		return "⛈️"
	default:
		return "🌤️"
	}
}
