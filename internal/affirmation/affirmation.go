/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package affirmation fetches the encouraging line shown under the clock.
package affirmation

import (
	"context"
	"errors"
	"strings"

	"github.com/friendsincode/classboard/internal/cache"
	"github.com/friendsincode/classboard/internal/upstream"
)

// ErrEmpty is returned when the upstream sends no text.
var ErrEmpty = errors.New("empty affirmation")

// Service fetches affirmations, cached for cache.DefaultAffirmationTTL.
type Service struct {
	client *upstream.Client
	cache  *cache.Cache
}

// NewService constructs an affirmation service.
func NewService(client *upstream.Client, c *cache.Cache) *Service {
	return &Service{client: client, cache: c}
}

// Current returns the affirmation of the hour.
func (s *Service) Current(ctx context.Context) (string, error) {
	return cache.Fetch(ctx, s.cache, "affirmation", cache.KeyAffirmation, cache.DefaultAffirmationTTL, func(ctx context.Context) (string, error) {
		var body struct {
			Affirmation string `json:"affirmation"`
		}
		if err := s.client.GetJSON(ctx, "/", nil, &body); err != nil {
			return "", err
		}
		text := strings.TrimSpace(body.Affirmation)
		if text == "" {
			return "", ErrEmpty
		}
		return text, nil
	})
}
