/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lesson

import (
	"fmt"
	"math"
)

// RGB is an 8-bit colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String renders the colour as a CSS rgb() value.
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Color maps remaining progress to the bar colour: green while plenty of the
// period is left, yellow halfway, red at the end. Progress outside [0,1] is
// clamped.
func Color(progress float64) RGB {
	if math.IsNaN(progress) {
		progress = 0
	}
	progress = math.Max(0, math.Min(1, progress))
	c := 1 - progress

	if c < 0.5 {
		return RGB{R: uint8(math.Round(255 * c * 2)), G: 255}
	}
	return RGB{R: 255, G: uint8(math.Round(255 * (1 - (c-0.5)*2)))}
}
