package lesson

import "testing"

func TestColorEndpoints(t *testing.T) {
	tests := []struct {
		progress float64
		want     RGB
	}{
		{1, RGB{R: 0, G: 255}},
		{0.5, RGB{R: 255, G: 255}},
		{0, RGB{R: 255, G: 0}},
		{0.75, RGB{R: 128, G: 255}},
		{0.25, RGB{R: 255, G: 128}},
		{1.5, RGB{R: 0, G: 255}},
		{-1, RGB{R: 255, G: 0}},
	}
	for _, tc := range tests {
		if got := Color(tc.progress); got != tc.want {
			t.Fatalf("Color(%v) = %+v, want %+v", tc.progress, got, tc.want)
		}
	}
}

func TestColorFormatting(t *testing.T) {
	c := Color(0.5)
	if c.String() != "rgb(255, 255, 0)" {
		t.Fatalf("unexpected css colour %q", c.String())
	}
	if c.Hex() != "#ffff00" {
		t.Fatalf("unexpected hex colour %q", c.Hex())
	}
}

func TestColorRedNeverDecreasesAsTimeRunsOut(t *testing.T) {
	prevR, prevG := -1, 256
	for p := 1.0; p >= 0; p -= 0.01 {
		c := Color(p)
		if int(c.R) < prevR {
			t.Fatalf("red decreased at progress %v", p)
		}
		if int(c.G) > prevG {
			t.Fatalf("green increased at progress %v", p)
		}
		prevR, prevG = int(c.R), int(c.G)
	}
}
