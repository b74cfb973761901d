package players

import (
	"context"
	"errors"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

// PlaybackState is a player's externally observable playback state.
type PlaybackState string

const (
	StateUnknown PlaybackState = "unknown"
	StateIdle    PlaybackState = "idle"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

// Kind identifies which controller object a player wraps.
type Kind string

const (
	KindSource    Kind = "source"
	KindZone      Kind = "zone"
	KindGroup     Kind = "group"
	KindStream    Kind = "stream"
	KindAnnouncer Kind = "announcer"
)

// ErrSourcesExhausted is returned when a stream needs a source but all four
// hardware inputs are occupied. This is a user-facing failure, not something
// to swallow: the user has to clear out a source and try again.
var ErrSourcesExhausted = errors.New("all sources are in use: clear out a source or select an existing one and try again")

// MediaInfo is the currently playing media metadata. Empty fields render as
// absent.
type MediaInfo struct {
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Track    string `json:"track,omitempty"`
	Channel  string `json:"channel,omitempty"`
	AppName  string `json:"app_name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Client is the slice of the AmpliPi API the players need. Implemented by
// *amplipi.Client; tests substitute fakes.
type Client interface {
	GetStatus(ctx context.Context) (*amplipi.Status, error)
	GetSources(ctx context.Context) ([]amplipi.Source, error)
	SetSource(ctx context.Context, id int, update amplipi.SourceUpdate) error
	SetZone(ctx context.Context, id int, update amplipi.ZoneUpdate) error
	SetZones(ctx context.Context, update amplipi.MultiZoneUpdate) error
	PlayStream(ctx context.Context, id int) error
	PauseStream(ctx context.Context, id int) error
	StopStream(ctx context.Context, id int) error
	PreviousStream(ctx context.Context, id int) error
	NextStream(ctx context.Context, id int) error
	PlayMedia(ctx context.Context, media amplipi.PlayMedia) error
	Announce(ctx context.Context, announcement amplipi.Announcement) error
}

// MediaResolver resolves an opaque media reference to a playable URL.
type MediaResolver interface {
	Resolve(ctx context.Context, mediaID string) (string, error)
}

// MediaPlayer is the capability contract every entity adapter implements.
// The poller drives Update; the REST layer dispatches the commands. Players
// that do not support a command report it via SupportedFeatures and return
// nil from the method (lookup failures are logged no-ops, never errors).
type MediaPlayer interface {
	UniqueID() string
	EntityID() string
	Kind() Kind
	Name() string
	DeviceClass() string
	Available() bool
	State() PlaybackState
	VolumeLevel() *float64
	Muted() *bool
	Source() string
	SourceList() []string
	SupportedFeatures() Feature
	Media() MediaInfo
	ExtraAttributes() map[string]any

	Update(ctx context.Context) error
	SelectSource(ctx context.Context, label string) error
	SetVolume(ctx context.Context, level *float64) error
	SetMute(ctx context.Context, mute *bool) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	PlayMedia(ctx context.Context, mediaID string) error
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}

// volumeStep is the increment applied by the volume up/down commands.
const volumeStep = 0.01

// StepVolume nudges a player's volume by delta steps of volumeStep, clamped
// to [0, 1]. A player with no current volume level is a no-op.
func StepVolume(ctx context.Context, p MediaPlayer, delta int) error {
	level := p.VolumeLevel()
	if level == nil {
		return nil
	}
	next := *level + float64(delta)*volumeStep
	if next < 0 {
		next = 0
	}
	if next > 1 {
		next = 1
	}
	return p.SetVolume(ctx, &next)
}

// buildMediaInfo renders a source's info record into media metadata.
// titleFromTrack selects the source-player behavior where the track name is
// preferred over the stream's own name for the title.
func buildMediaInfo(info *amplipi.SourceInfo, imageBase, appName string, titleFromTrack bool) MediaInfo {
	if info == nil {
		return MediaInfo{}
	}

	title := info.Name
	if titleFromTrack && info.Track != "" {
		title = info.Track
	}

	return MediaInfo{
		Title:    title,
		Artist:   info.Artist,
		Album:    info.Album,
		Track:    info.Track,
		Channel:  info.Station,
		AppName:  appName,
		ImageURL: BuildImageURL(imageBase, info.ImgURL),
	}
}

// playbackStateFor maps a source's info record onto the state machine.
// Absent info or an unrecognized state (including "stopped") renders as
// idle, never as an error.
func playbackStateFor(info *amplipi.SourceInfo) PlaybackState {
	if info == nil || info.State == "" {
		return StateIdle
	}
	switch info.State {
	case "playing":
		return StatePlaying
	case "paused":
		return StatePaused
	default:
		return StateIdle
	}
}

// streamInputID parses a source input descriptor of the form "stream={id}".
// "stream=local" and anything else yield false.
func streamInputID(input string) (int, bool) {
	const prefix = "stream="
	if len(input) <= len(prefix) || input[:len(prefix)] != prefix {
		return 0, false
	}
	if input == "stream=local" {
		return 0, false
	}
	var id int
	for _, r := range input[len(prefix):] {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int(r-'0')
	}
	return id, true
}

// findStream returns the stream with the given ID, or nil.
func findStream(streams []amplipi.Stream, id int) *amplipi.Stream {
	for i := range streams {
		if streams[i].ID == id {
			return &streams[i]
		}
	}
	return nil
}

// findSourceByID returns the source with the given ID, or nil.
func findSourceByID(sources []amplipi.Source, id int) *amplipi.Source {
	for i := range sources {
		if sources[i].ID == id {
			return &sources[i]
		}
	}
	return nil
}

// sourceInputFree reports whether a source has nothing attached.
func sourceInputFree(source amplipi.Source) bool {
	return source.Input == "" || source.Input == "None"
}
