package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/internal/config"
)

func TestLoadAppliesDefaultsWithNoFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := config.Load(fs, "", "./a.out")
	require.NoError(t, err)
	assert.Equal(t, "./a.out", cfg.Program)
	assert.Equal(t, 1, cfg.GranularityLevel)
	assert.False(t, cfg.EnableDSTAM)
	assert.True(t, cfg.Optimization1)
	assert.Equal(t, 16, cfg.MaxThreads)
}

func TestLoadHonoursExplicitFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--granularity=2", "--dstam", "--symbolic-taint"}))

	cfg, err := config.Load(fs, "", "./a.out")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.GranularityLevel)
	assert.True(t, cfg.EnableDSTAM)
	assert.True(t, cfg.EnableSymbolicTaint)
}

func TestLoadRejectsSymbolicTaintWithoutDSTAM(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--symbolic-taint"}))

	_, err := config.Load(fs, "", "./a.out")
	assert.Error(t, err)
}

func TestLoadRejectsGranularityOutOfRange(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--granularity=5"}))

	_, err := config.Load(fs, "", "./a.out")
	assert.Error(t, err)
}
