package assets

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const markerRelPath = ".storage/amplipi_notification_shown"

// Installer writes the companion assets (template sensor package and the
// announcement automation blueprint) into the configured directory so a
// dashboard or automation engine can pick them up.
type Installer struct {
	dir     string
	vendor  string
	version string
	logger  *log.Logger
}

// NewInstaller creates an Installer targeting dir.
func NewInstaller(dir, vendor, version string, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{dir: dir, vendor: vendor, version: version, logger: logger}
}

type sensorDefinition struct {
	Name         string `yaml:"name"`
	UniqueID     string `yaml:"unique_id"`
	State        string `yaml:"state"`
	Availability string `yaml:"availability,omitempty"`
}

type sensorPackage struct {
	Template []map[string][]sensorDefinition `yaml:"template"`
}

type blueprintInput struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Default     any    `yaml:"default,omitempty"`
}

type blueprint struct {
	Blueprint struct {
		Name        string                    `yaml:"name"`
		Description string                    `yaml:"description"`
		Domain      string                    `yaml:"domain"`
		Input       map[string]blueprintInput `yaml:"input"`
	} `yaml:"blueprint"`
	Trigger []map[string]string `yaml:"trigger"`
	Action  []map[string]any    `yaml:"action"`
}

// Install writes the asset files. Asset files are rewritten on every start
// so upgrades propagate; the first-run marker is written once.
func (i *Installer) Install() error {
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}

	if err := i.writeSensorPackage(); err != nil {
		return err
	}
	if err := i.writeAnnounceBlueprint(); err != nil {
		return err
	}
	return i.writeFirstRunMarker()
}

func (i *Installer) writeSensorPackage() error {
	pkg := sensorPackage{
		Template: []map[string][]sensorDefinition{
			{"sensor": {
				{
					Name:         "AmpliPi Hub Players",
					UniqueID:     "amplipi_hub_player_count",
					State:        "{{ states.media_player | selectattr('attributes.amplipi_source_id', 'defined') | list | count }}",
					Availability: "{{ states('media_player.amplipi_source_1') != 'unavailable' }}",
				},
				{
					Name:     "AmpliPi Hub Active Sources",
					UniqueID: "amplipi_hub_active_sources",
					State:    "{{ states.media_player | selectattr('state', 'eq', 'playing') | selectattr('attributes.amplipi_source_id', 'defined') | list | count }}",
				},
			}},
		},
	}

	return i.writeYAML(filepath.Join(i.dir, "amplipi_sensors.yaml"), pkg)
}

func (i *Installer) writeAnnounceBlueprint() error {
	var bp blueprint
	bp.Blueprint.Name = "AmpliPi Announcement"
	bp.Blueprint.Description = fmt.Sprintf("Play an announcement over all AmpliPi zones (%s hub %s).", i.vendor, i.version)
	bp.Blueprint.Domain = "automation"
	bp.Blueprint.Input = map[string]blueprintInput{
		"media_url": {
			Name:        "Announcement media URL",
			Description: "http(s) URL or media-source reference to play",
		},
		"volume": {
			Name:    "Announcement volume",
			Default: 0.5,
		},
	}
	bp.Trigger = []map[string]string{{"platform": "event", "event_type": "amplipi_announce"}}
	bp.Action = []map[string]any{
		{
			"service": "media_player.volume_set",
			"target":  map[string]any{"entity_id": "media_player.amplipi_announcement"},
			"data":    map[string]any{"volume_level": "!input volume"},
		},
		{
			"service": "media_player.play_media",
			"target":  map[string]any{"entity_id": "media_player.amplipi_announcement"},
			"data":    map[string]any{"media_content_id": "!input media_url", "media_content_type": "music"},
		},
	}

	blueprintDir := filepath.Join(i.dir, "blueprints")
	if err := os.MkdirAll(blueprintDir, 0o755); err != nil {
		return fmt.Errorf("create blueprint dir: %w", err)
	}
	return i.writeYAML(filepath.Join(blueprintDir, "amplipi_announcement.yaml"), bp)
}

func (i *Installer) writeYAML(path string, value any) error {
	rendered, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFirstRunMarker records that the install notice has been shown. The
// marker survives restarts so the notice only appears once per install dir.
func (i *Installer) writeFirstRunMarker() error {
	markerPath := filepath.Join(i.dir, markerRelPath)
	if _, err := os.Stat(markerPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(markerPath), 0o755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	payload, err := json.Marshal(map[string]bool{"shown": true})
	if err != nil {
		return err
	}
	if err := os.WriteFile(markerPath, payload, 0o644); err != nil {
		return fmt.Errorf("write first-run marker: %w", err)
	}

	i.logger.Printf("installed companion assets into %s; import the blueprint from blueprints/amplipi_announcement.yaml", i.dir)
	return nil
}
