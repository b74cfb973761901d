package players

import (
	"context"
	"log"
	"sync"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

const defaultAnnouncementVolume = 0.5

// AnnouncerPlayer is the virtual PA entity. It has no hardware counterpart:
// it caches an announcement volume and fires one-shot announcements over all
// zones. Its state is fixed at idle and it is always available.
type AnnouncerPlayer struct {
	client   Client
	resolver MediaResolver
	logger   *log.Logger

	mu     sync.RWMutex
	volume float64
}

// NewAnnouncerPlayer builds the announcer with the default volume.
func NewAnnouncerPlayer(client Client, resolver MediaResolver, logger *log.Logger) *AnnouncerPlayer {
	if logger == nil {
		logger = log.Default()
	}
	return &AnnouncerPlayer{
		client:   client,
		resolver: resolver,
		logger:   logger,
		volume:   defaultAnnouncementVolume,
	}
}

func (p *AnnouncerPlayer) UniqueID() string { return "amplipi_announcement" }

func (p *AnnouncerPlayer) EntityID() string { return "media_player.amplipi_announcement" }

func (p *AnnouncerPlayer) Kind() Kind { return KindAnnouncer }

func (p *AnnouncerPlayer) Name() string { return "AmpliPi Announcement" }

func (p *AnnouncerPlayer) DeviceClass() string { return "speaker" }

func (p *AnnouncerPlayer) Available() bool { return true }

func (p *AnnouncerPlayer) State() PlaybackState { return StateIdle }

func (p *AnnouncerPlayer) VolumeLevel() *float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return amplipi.Ptr(p.volume)
}

func (p *AnnouncerPlayer) Muted() *bool { return nil }

func (p *AnnouncerPlayer) Source() string { return "" }

func (p *AnnouncerPlayer) SourceList() []string { return nil }

func (p *AnnouncerPlayer) SupportedFeatures() Feature { return featureAnnounce }

func (p *AnnouncerPlayer) Media() MediaInfo { return MediaInfo{} }

func (p *AnnouncerPlayer) ExtraAttributes() map[string]any { return nil }

// Update is a no-op: the announcer has no controller state to mirror.
func (p *AnnouncerPlayer) Update(ctx context.Context) error { return nil }

func (p *AnnouncerPlayer) SelectSource(ctx context.Context, label string) error {
	p.logger.Printf("select source %q on announcer: not supported", label)
	return nil
}

// SetVolume caches the level for subsequent announcements.
func (p *AnnouncerPlayer) SetVolume(ctx context.Context, level *float64) error {
	if level == nil {
		return nil
	}
	p.mu.Lock()
	p.volume = *level
	p.mu.Unlock()
	return nil
}

func (p *AnnouncerPlayer) SetMute(ctx context.Context, mute *bool) error { return nil }

func (p *AnnouncerPlayer) Play(ctx context.Context) error { return nil }

func (p *AnnouncerPlayer) Pause(ctx context.Context) error { return nil }

func (p *AnnouncerPlayer) Stop(ctx context.Context) error { return nil }

func (p *AnnouncerPlayer) NextTrack(ctx context.Context) error { return nil }

func (p *AnnouncerPlayer) PreviousTrack(ctx context.Context) error { return nil }

// PlayMedia resolves the media ID and fires it as an announcement over all
// zones at the cached volume.
func (p *AnnouncerPlayer) PlayMedia(ctx context.Context, mediaID string) error {
	url, err := p.resolver.Resolve(ctx, mediaID)
	if err != nil {
		return err
	}
	p.mu.RLock()
	volume := p.volume
	p.mu.RUnlock()

	p.logger.Printf("announcing %s at volume %.2f", url, volume)
	return p.client.Announce(ctx, amplipi.Announcement{Media: url, VolF: amplipi.Ptr(volume)})
}

func (p *AnnouncerPlayer) TurnOn(ctx context.Context) error { return nil }

func (p *AnnouncerPlayer) TurnOff(ctx context.Context) error { return nil }
