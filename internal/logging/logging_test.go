package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		env, override string
		want          zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"development", "bogus", zerolog.DebugLevel},
	}
	for _, tt := range tests {
		t.Setenv("CLASSBOARD_LOG_LEVEL", tt.override)
		logger := Setup(tt.env)
		if logger.GetLevel() != tt.want {
			t.Errorf("Setup(%q) with override %q: level %v, want %v", tt.env, tt.override, logger.GetLevel(), tt.want)
		}
		if log.Logger.GetLevel() != tt.want {
			t.Errorf("Setup(%q) did not replace the global logger", tt.env)
		}
	}
}
