package assets

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInstallWritesAssets(t *testing.T) {
	dir := t.TempDir()
	installer := NewInstaller(dir, "MicroNova", "0.4.3", log.New(io.Discard, "", 0))

	require.NoError(t, installer.Install())

	sensorsPath := filepath.Join(dir, "amplipi_sensors.yaml")
	raw, err := os.ReadFile(sensorsPath)
	require.NoError(t, err)

	var pkg sensorPackage
	require.NoError(t, yaml.Unmarshal(raw, &pkg))
	require.Len(t, pkg.Template, 1)
	sensors := pkg.Template[0]["sensor"]
	require.Len(t, sensors, 2)
	assert.Equal(t, "amplipi_hub_player_count", sensors[0].UniqueID)

	blueprintPath := filepath.Join(dir, "blueprints", "amplipi_announcement.yaml")
	raw, err = os.ReadFile(blueprintPath)
	require.NoError(t, err)

	var bp blueprint
	require.NoError(t, yaml.Unmarshal(raw, &bp))
	assert.Equal(t, "automation", bp.Blueprint.Domain)
	assert.Contains(t, bp.Blueprint.Description, "0.4.3")
}

func TestFirstRunMarkerWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	installer := NewInstaller(dir, "MicroNova", "0.4.3", log.New(io.Discard, "", 0))

	require.NoError(t, installer.Install())

	markerPath := filepath.Join(dir, ".storage", "amplipi_notification_shown")
	raw, err := os.ReadFile(markerPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"shown": true}`, string(raw))

	info, err := os.Stat(markerPath)
	require.NoError(t, err)
	firstWrite := info.ModTime()

	// A second install leaves the marker alone.
	require.NoError(t, installer.Install())
	info, err = os.Stat(markerPath)
	require.NoError(t, err)
	assert.Equal(t, firstWrite, info.ModTime())
}
