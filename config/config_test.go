package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/horus-robotics/horus/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetLookup(t *testing.T) {
	s, ok := config.Preset("hard_realtime")
	require.True(t, ok)
	assert.Equal(t, config.Sequential, s.Execution)
	assert.True(t, s.Realtime.WCETEnforcement)

	_, ok = config.Preset("does_not_exist")
	assert.False(t, ok)
}

func TestAllPresetNamesResolve(t *testing.T) {
	for _, name := range config.PresetNames() {
		_, ok := config.Preset(name)
		assert.True(t, ok, name)
	}
}

func TestTickIntervalZeroRateMeansNoSleep(t *testing.T) {
	s := config.Scheduler{Timing: config.Timing{GlobalRateHz: 0}}
	assert.Equal(t, time.Duration(0), s.TickInterval())
}

// S6 from spec §8: config load (TOML).
func TestLoadFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "horus.toml")
	contents := `
preset = "standard"

[hubs.camera]
transport = "localhost"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := config.LoadFile(path)
	require.NoError(t, err)
	require.Contains(t, f.Hubs, "camera")
	assert.Equal(t, config.TransportLocalhost, f.Hubs["camera"].Transport)
	assert.Equal(t, "camera@localhost", f.Hubs["camera"].ResolvedEndpoint("camera"))
	require.NotNil(t, f.Scheduler)
	assert.Equal(t, config.Sequential, f.Scheduler.Execution)
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "horus.yaml")
	contents := "hubs:\n  cmd:\n    transport: router\n    port: 8888\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := config.LoadFile(path)
	require.NoError(t, err)
	require.Contains(t, f.Hubs, "cmd")
	assert.Equal(t, "cmd@router:8888", f.Hubs["cmd"].ResolvedEndpoint("cmd"))
}

func TestLoadFileUnknownPresetErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "horus.toml")
	require.NoError(t, os.WriteFile(path, []byte(`preset = "nonexistent"`), 0o644))
	_, err := config.LoadFile(path)
	assert.Error(t, err)
}

func TestFindReturnsNotFoundWhenNoFileExists(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	_, err = config.Find()
	assert.Error(t, err)
}

func TestHubConfigEndpointPassthrough(t *testing.T) {
	hc := config.HubConfig{Endpoint: "cam@192.168.1.5:9000"}
	assert.Equal(t, "cam@192.168.1.5:9000", hc.ResolvedEndpoint("cam"))
}
