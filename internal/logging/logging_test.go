package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]zerolog.Level{
		"error":   zerolog.ErrorLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		" debug ": zerolog.DebugLevel,
		"trace":   zerolog.TraceLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, LevelFromString(input), "input %q", input)
	}
}

func TestSetupWriter_DebugOverridesLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	SetupWriter(&buf, "error", true)
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")

	buf.Reset()
	SetupWriter(&buf, "error", false)
	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}
