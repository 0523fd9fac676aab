package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configFile, preset, methane = "", "", false
	cmd := &cobra.Command{Use: "test"}
	addModelFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestResolveConfig_Defaults(t *testing.T) {
	cfg, err := resolveConfig(newTestCommand(t))
	require.NoError(t, err)
	assert.Equal(t, "mass-balance", cfg.Name)

	_, err = cfg.Build()
	assert.NoError(t, err)
}

func TestResolveConfig_FlagsOverridePreset(t *testing.T) {
	cmd := newTestCommand(t, "--preset", "spouted-bed-high", "--temperature", "700", "--mass", "2", "--methane")
	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "spouted-bed-high", cfg.Name)
	assert.Equal(t, 700.0, cfg.Temperature)
	assert.Equal(t, 2.0, cfg.InitialMasses[0])
	assert.Contains(t, cfg.ActiveReactions, "methane")

	setup, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, 5, setup.Model.StateDim())
}

func TestResolveConfig_UnknownPreset(t *testing.T) {
	_, err := resolveConfig(newTestCommand(t, "--preset", "nope"))
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	key, values, err := parseRange("styrene.activation_energy=60:80:5")
	require.NoError(t, err)
	assert.Equal(t, "styrene.activation_energy", key)
	assert.Equal(t, []float64{60, 65, 70, 75, 80}, values)

	for _, bad := range []string{"temperature_k", "temperature_k=1:2", "temperature_k=a:2:3", "temperature_k=1:2:0"} {
		_, _, err := parseRange(bad)
		assert.Error(t, err, bad)
	}
}
