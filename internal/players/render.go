package players

// PlayerState is the wire rendering of a player, shared by the REST API and
// the state stream.
type PlayerState struct {
	Object            string         `json:"object"`
	UniqueID          string         `json:"unique_id"`
	EntityID          string         `json:"entity_id"`
	Kind              Kind           `json:"kind"`
	Name              string         `json:"name"`
	DeviceClass       string         `json:"device_class"`
	Available         bool           `json:"available"`
	State             PlaybackState  `json:"state"`
	VolumeLevel       *float64       `json:"volume_level,omitempty"`
	Muted             *bool          `json:"muted,omitempty"`
	Source            string         `json:"source,omitempty"`
	SourceList        []string       `json:"source_list,omitempty"`
	SupportedFeatures []string       `json:"supported_features"`
	Media             MediaInfo      `json:"media"`
	Attributes        map[string]any `json:"attributes,omitempty"`
}

// Render snapshots a player into its wire form.
func Render(player MediaPlayer) PlayerState {
	return PlayerState{
		Object:            "player",
		UniqueID:          player.UniqueID(),
		EntityID:          player.EntityID(),
		Kind:              player.Kind(),
		Name:              player.Name(),
		DeviceClass:       player.DeviceClass(),
		Available:         player.Available(),
		State:             player.State(),
		VolumeLevel:       player.VolumeLevel(),
		Muted:             player.Muted(),
		Source:            player.Source(),
		SourceList:        player.SourceList(),
		SupportedFeatures: player.SupportedFeatures().Names(),
		Media:             player.Media(),
		Attributes:        player.ExtraAttributes(),
	}
}

// RenderAll snapshots a set of players.
func RenderAll(players []MediaPlayer) []PlayerState {
	states := make([]PlayerState, 0, len(players))
	for _, player := range players {
		states = append(states, Render(player))
	}
	return states
}
