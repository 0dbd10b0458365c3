package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-medapp/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := logging.SetupWriter(&buf, "warn", false)

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "session").Msg("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"component":"session"`)
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestSetupWriter_UnknownLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logging.SetupWriter(&bytes.Buffer{}, "loud", false)
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
