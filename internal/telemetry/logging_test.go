package telemetry_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/izerolog"
	"github.com/rs/zerolog"

	"github.com/joeycumines/klee-mta-go/internal/telemetry"
)

func TestLDefaultsToNonNilLogger(t *testing.T) {
	require.NotNil(t, telemetry.L())
}

func TestConfigureReplacesDefault(t *testing.T) {
	original := telemetry.L()
	var buf bytes.Buffer
	logger := izerolog.L.New(
		izerolog.L.WithZerolog(zerolog.New(&buf)),
		izerolog.L.WithLevel(izerolog.L.LevelTrace()),
	)

	telemetry.Configure(logger)
	t.Cleanup(func() { telemetry.Configure(original) })

	require.Same(t, logger, telemetry.L())

	telemetry.L().Info().Log("hello")
	assert.Contains(t, buf.String(), `"hello"`)
}
