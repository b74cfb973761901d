package amplipi

// SourceIDUnassigned marks a zone or group that is not routed to any source.
const SourceIDUnassigned = -1

// Source is one of the controller's four audio inputs. Input is one of
// "local" (RCA), "None"/"" (disconnected), or "stream={id}".
type Source struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Input string      `json:"input"`
	Info  *SourceInfo `json:"info,omitempty"`
}

// SourceInfo describes whatever is currently feeding a source. It is only
// present while something is playing through the input.
type SourceInfo struct {
	Name          string   `json:"name,omitempty"`
	State         string   `json:"state,omitempty"`
	Artist        string   `json:"artist,omitempty"`
	Track         string   `json:"track,omitempty"`
	Album         string   `json:"album,omitempty"`
	Station       string   `json:"station,omitempty"`
	ImgURL        string   `json:"img_url,omitempty"`
	SupportedCmds []string `json:"supported_cmds,omitempty"`
}

// Zone is a single physical audio output channel.
type Zone struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	SourceID int      `json:"source_id"`
	VolF     *float64 `json:"vol_f,omitempty"`
	Mute     *bool    `json:"mute,omitempty"`
	Disabled bool     `json:"disabled"`
}

// Group is a named set of zones controlled together.
type Group struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	SourceID int      `json:"source_id"`
	VolF     *float64 `json:"vol_f,omitempty"`
	Mute     *bool    `json:"mute,omitempty"`
	Zones    []int    `json:"zones"`
}

// Stream is a named virtual input that can be attached to a source.
type Stream struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Status is one consistent read of the controller's full state.
type Status struct {
	Sources []Source `json:"sources"`
	Zones   []Zone   `json:"zones"`
	Groups  []Group  `json:"groups"`
	Streams []Stream `json:"streams"`
}

// SourceUpdate is a partial source update. Nil fields are not sent.
type SourceUpdate struct {
	Name  *string `json:"name,omitempty"`
	Input *string `json:"input,omitempty"`
}

// ZoneUpdate is a partial zone update.
type ZoneUpdate struct {
	Name     *string  `json:"name,omitempty"`
	SourceID *int     `json:"source_id,omitempty"`
	VolF     *float64 `json:"vol_f,omitempty"`
	Mute     *bool    `json:"mute,omitempty"`
	Disabled *bool    `json:"disabled,omitempty"`
}

// MultiZoneUpdate applies one ZoneUpdate to a set of zones and groups.
type MultiZoneUpdate struct {
	Zones  []int      `json:"zones,omitempty"`
	Groups []int      `json:"groups,omitempty"`
	Update ZoneUpdate `json:"update"`
}

// GroupUpdate is a partial group update.
type GroupUpdate struct {
	Name     *string  `json:"name,omitempty"`
	SourceID *int     `json:"source_id,omitempty"`
	Zones    []int    `json:"zones,omitempty"`
	VolF     *float64 `json:"vol_f,omitempty"`
	Mute     *bool    `json:"mute,omitempty"`
}

// PlayMedia asks the controller to play a URL on a source.
type PlayMedia struct {
	SourceID int    `json:"source_id"`
	Media    string `json:"media"`
}

// Announcement triggers a one-shot PA-style announcement.
type Announcement struct {
	Media    string   `json:"media"`
	VolF     *float64 `json:"vol_f,omitempty"`
	SourceID *int     `json:"source_id,omitempty"`
	Zones    []int    `json:"zones,omitempty"`
	Groups   []int    `json:"groups,omitempty"`
}

// Ptr returns a pointer to v. Convenience for building partial updates.
func Ptr[T any](v T) *T { return &v }
