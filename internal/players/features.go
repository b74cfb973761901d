package players

import "fmt"

// Feature is a bitmask of media-player commands a player currently supports.
type Feature uint32

const (
	FeaturePlay Feature = 1 << iota
	FeaturePause
	FeatureStop
	FeatureNextTrack
	FeaturePreviousTrack
	FeatureTurnOn
	FeatureTurnOff
	FeatureVolumeSet
	FeatureVolumeMute
	FeatureVolumeStep
	FeatureSelectSource
	FeaturePlayMedia
	FeatureBrowseMedia
	FeatureGrouping
)

var featureNames = map[Feature]string{
	FeaturePlay:          "play",
	FeaturePause:         "pause",
	FeatureStop:          "stop",
	FeatureNextTrack:     "next_track",
	FeaturePreviousTrack: "previous_track",
	FeatureTurnOn:        "turn_on",
	FeatureTurnOff:       "turn_off",
	FeatureVolumeSet:     "volume_set",
	FeatureVolumeMute:    "volume_mute",
	FeatureVolumeStep:    "volume_step",
	FeatureSelectSource:  "select_source",
	FeaturePlayMedia:     "play_media",
	FeatureBrowseMedia:   "browse_media",
	FeatureGrouping:      "grouping",
}

// featureDAC is the baseline feature set for source, zone, group, and stream
// players.
const featureDAC = FeatureSelectSource | FeaturePlayMedia | FeatureVolumeMute |
	FeatureVolumeSet | FeatureGrouping | FeatureVolumeStep | FeatureBrowseMedia | FeatureTurnOff

// featureAnnounce is the feature set for the announcer player.
const featureAnnounce = FeaturePlayMedia | FeatureBrowseMedia | FeatureVolumeSet

// Names returns the set feature flags as sorted-by-bit name strings, for
// rendering in API payloads.
func (f Feature) Names() []string {
	names := make([]string, 0, len(featureNames))
	for bit := Feature(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit != 0 {
			names = append(names, featureNames[bit])
		}
	}
	return names
}

// Command tables map the controller's supported_cmds names onto feature
// flags. Kept per player kind: the sets happen to overlap today but the
// hardware reports them independently.
var (
	sourceCommandFeatures = map[string]Feature{
		"play":   FeaturePlay,
		"pause":  FeaturePause,
		"stop":   FeatureStop,
		"next":   FeatureNextTrack,
		"prev":   FeaturePreviousTrack,
		"toggle": FeatureTurnOff,
	}

	zoneCommandFeatures = map[string]Feature{
		"play":   FeaturePlay,
		"pause":  FeaturePause,
		"stop":   FeatureStop,
		"next":   FeatureNextTrack,
		"prev":   FeaturePreviousTrack,
		"toggle": FeatureTurnOff,
		"join":   FeatureGrouping,
	}

	streamCommandFeatures = map[string]Feature{
		"play":   FeaturePlay,
		"pause":  FeaturePause,
		"stop":   FeatureStop,
		"next":   FeatureNextTrack,
		"prev":   FeaturePreviousTrack,
		"toggle": FeatureTurnOff,
	}
)

// legalCommandNames is the closed set of command names the controller may
// report in supported_cmds.
var legalCommandNames = map[string]struct{}{
	"play":   {},
	"pause":  {},
	"stop":   {},
	"next":   {},
	"prev":   {},
	"toggle": {},
	"join":   {},
}

// ValidateCommandTables checks every command table key against the legal
// name set. Called once at startup so a typo in a table fails loudly instead
// of silently dropping a capability.
func ValidateCommandTables() error {
	tables := map[string]map[string]Feature{
		"source": sourceCommandFeatures,
		"zone":   zoneCommandFeatures,
		"stream": streamCommandFeatures,
	}
	for tableName, table := range tables {
		for name := range table {
			if _, ok := legalCommandNames[name]; !ok {
				return fmt.Errorf("%s command table contains unknown command %q", tableName, name)
			}
		}
	}
	return nil
}

// featuresForCommands folds the reported supported_cmds into a feature mask
// using the given table. Unknown command names are ignored.
func featuresForCommands(table map[string]Feature, cmds []string) Feature {
	var features Feature
	for _, cmd := range cmds {
		if flag, ok := table[cmd]; ok {
			features |= flag
		}
	}
	return features
}
