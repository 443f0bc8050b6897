package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plotter-studio/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PlotterStudio.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config should be written")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dir, "data", "history.duckdb"), cfg.Storage.HistoryDatabase)
	assert.Equal(t, 9600, cfg.Plotter.BaudRate)
	assert.Equal(t, 4*time.Millisecond, cfg.PacketDelay())
	assert.Equal(t, 120*time.Millisecond, cfg.PausePollInterval())

	assert.Equal(t, models.PlotterConfig{
		Model:          models.ModelA4,
		SpeedPenDown:   35,
		SpeedPenUp:     65,
		PenUpDelayMs:   140,
		PenDownDelayMs: 170,
		RepeatCount:    1,
	}, cfg.MachineDefaults())
}

func TestLoadConfig_ReadsFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PlotterStudio.config")
	content := `<?xml version="1.0" encoding="UTF-8"?>
<PlotterStudio>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Plotter><Model>A3</Model><SpeedPenDown>20</SpeedPenDown></Plotter>
</PlotterStudio>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, models.ModelA3, cfg.MachineDefaults().Model)
	assert.Equal(t, 20.0, cfg.MachineDefaults().SpeedPenDown)
	assert.Equal(t, 65.0, cfg.MachineDefaults().SpeedPenUp, "missing fields keep defaults")
	assert.Equal(t, 30, cfg.Processing.SessionTimeoutMinutes)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "7070")
	t.Setenv("DATA_DIR", "/srv/plotter")
	t.Setenv("PLOTTER_PORT", "/dev/ttyACM0")

	cfg, err := LoadConfig(filepath.Join(dir, "PlotterStudio.config"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/srv/plotter", cfg.GetDataDir())
	assert.Equal(t, "/dev/ttyACM0", cfg.Plotter.PortName)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PlotterStudio.config")
	require.NoError(t, os.WriteFile(path, []byte("<PlotterStudio><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)

	require.NoError(t, cfg.EnsureDirectories())
	for _, p := range []string{cfg.Storage.DataDirectory, cfg.Storage.UploadsDirectory} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
