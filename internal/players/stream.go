package players

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

// StreamPlayer represents a configured stream (internet radio, Pandora,
// AirPlay, ...). A stream exists whether or not any source is playing it;
// the owning source is found by reverse lookup against the source inputs.
type StreamPlayer struct {
	id        int
	client    Client
	resolver  MediaResolver
	imageBase string
	logger    *log.Logger

	mu            sync.RWMutex
	stream        *amplipi.Stream
	sources       []amplipi.Source
	currentSource *amplipi.Source
	zones         []amplipi.Zone
	groups        []amplipi.Group
	name          string
	media         MediaInfo
	available     bool
	lastUpdateOK  bool
}

// NewStreamPlayer builds a player for the given stream record.
func NewStreamPlayer(stream amplipi.Stream, client Client, resolver MediaResolver, imageBase string, logger *log.Logger) *StreamPlayer {
	if logger == nil {
		logger = log.Default()
	}
	normalized := NormalizeStreamNames([]amplipi.Stream{stream})[0]
	return &StreamPlayer{
		id:        stream.ID,
		client:    client,
		resolver:  resolver,
		imageBase: imageBase,
		logger:    logger,
		stream:    &normalized,
		name:      normalized.Name,
	}
}

func (p *StreamPlayer) UniqueID() string {
	return fmt.Sprintf("amplipi_stream_%d", p.id)
}

func (p *StreamPlayer) EntityID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("media_player.amplipi_stream_%d_%s", p.id, entitySlug(p.baseName()))
}

func (p *StreamPlayer) Kind() Kind { return KindStream }

func (p *StreamPlayer) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *StreamPlayer) DeviceClass() string { return "receiver" }

func (p *StreamPlayer) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available
}

// Update retrieves the latest snapshot and replaces the cached view. The
// stream stays available even while idle; it only goes unavailable when the
// record disappears from the controller or the fetch fails.
func (p *StreamPlayer) Update(ctx context.Context) error {
	status, err := p.client.GetStatus(ctx)
	if err != nil {
		p.mu.Lock()
		p.lastUpdateOK = false
		p.available = false
		p.mu.Unlock()
		return fmt.Errorf("update stream %d: %w", p.id, err)
	}

	p.syncState(status)
	return nil
}

func (p *StreamPlayer) syncState(status *amplipi.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	streams := NormalizeStreamNames(status.Streams)
	p.stream = findStream(streams, p.id)
	if p.stream == nil {
		p.lastUpdateOK = true
		p.available = false
		p.logger.Printf("stream %d missing from snapshot", p.id)
		return
	}
	p.name = p.stream.Name
	p.sources = status.Sources
	p.available = true
	p.lastUpdateOK = true

	// Reverse lookup: which source, if any, is playing this stream.
	p.currentSource = nil
	input := fmt.Sprintf("stream=%d", p.id)
	for i := range status.Sources {
		if status.Sources[i].Input == input {
			p.currentSource = &status.Sources[i]
			break
		}
	}

	p.zones = p.zones[:0]
	p.groups = p.groups[:0]
	var info *amplipi.SourceInfo
	if p.currentSource != nil {
		info = p.currentSource.Info
		for _, zone := range status.Zones {
			if zone.SourceID == p.currentSource.ID {
				p.zones = append(p.zones, zone)
			}
		}
		for _, group := range status.Groups {
			if group.SourceID == p.currentSource.ID {
				p.groups = append(p.groups, group)
			}
		}
	}

	p.media = buildMediaInfo(info, p.imageBase, p.stream.Type, false)
}

func (p *StreamPlayer) State() PlaybackState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.lastUpdateOK {
		return StateUnknown
	}
	if p.currentSource == nil {
		return StateIdle
	}
	return playbackStateFor(p.currentSource.Info)
}

func (p *StreamPlayer) VolumeLevel() *float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.groups) > 0 {
		return p.groups[0].VolF
	}
	if len(p.zones) > 0 {
		return p.zones[0].VolF
	}
	return nil
}

// Muted reports true when the stream is not routed anywhere: an unrouted
// stream is effectively silent.
func (p *StreamPlayer) Muted() *bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.currentSource == nil {
		return amplipi.Ptr(true)
	}
	if len(p.groups) > 0 {
		return p.groups[0].Mute
	}
	if len(p.zones) > 0 {
		return p.zones[0].Mute
	}
	return amplipi.Ptr(true)
}

func (p *StreamPlayer) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.currentSource != nil {
		return fmt.Sprintf("Source %d", p.currentSource.ID+1)
	}
	return ""
}

func (p *StreamPlayer) SourceList() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := make([]string, 0, len(p.sources))
	for i := range p.sources {
		list = append(list, fmt.Sprintf("Source %d", i+1))
	}
	return list
}

func (p *StreamPlayer) SupportedFeatures() Feature {
	p.mu.RLock()
	defer p.mu.RUnlock()
	features := featureDAC | FeatureTurnOn | FeatureTurnOff
	if p.currentSource != nil && p.currentSource.Info != nil {
		features |= featuresForCommands(streamCommandFeatures, p.currentSource.Info.SupportedCmds)
	}
	return features
}

func (p *StreamPlayer) Media() MediaInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.media
}

func (p *StreamPlayer) ExtraAttributes() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	attrs := map[string]any{"amplipi_stream_id": p.id}
	if p.stream != nil {
		attrs["amplipi_stream_type"] = p.stream.Type
	}
	if p.currentSource != nil {
		attrs["amplipi_source_id"] = p.currentSource.ID
	}
	return attrs
}

// SelectSource routes this stream to the source named by the label.
func (p *StreamPlayer) SelectSource(ctx context.Context, label string) error {
	sourceID, err := ExtractSourceID(label)
	if err != nil {
		p.logger.Printf("select source %q on stream %d: %v", label, p.id, err)
		return p.Update(ctx)
	}
	return p.attachTo(ctx, sourceID)
}

func (p *StreamPlayer) SetVolume(ctx context.Context, level *float64) error {
	if level == nil {
		return nil
	}
	return p.applyZoneUpdate(ctx, amplipi.ZoneUpdate{VolF: level})
}

func (p *StreamPlayer) SetMute(ctx context.Context, mute *bool) error {
	if mute == nil {
		return nil
	}
	return p.applyZoneUpdate(ctx, amplipi.ZoneUpdate{Mute: mute})
}

func (p *StreamPlayer) Play(ctx context.Context) error {
	return p.streamCommand(ctx, "play", p.client.PlayStream)
}

func (p *StreamPlayer) Pause(ctx context.Context) error {
	return p.streamCommand(ctx, "pause", p.client.PauseStream)
}

func (p *StreamPlayer) Stop(ctx context.Context) error {
	return p.streamCommand(ctx, "stop", p.client.StopStream)
}

func (p *StreamPlayer) NextTrack(ctx context.Context) error {
	return p.streamCommand(ctx, "next", p.client.NextStream)
}

func (p *StreamPlayer) PreviousTrack(ctx context.Context) error {
	return p.streamCommand(ctx, "prev", p.client.PreviousStream)
}

// PlayMedia resolves the media ID and plays it through the owning source,
// adopting a free one first when the stream is not routed anywhere.
func (p *StreamPlayer) PlayMedia(ctx context.Context, mediaID string) error {
	p.mu.RLock()
	current := p.currentSource
	p.mu.RUnlock()

	if current == nil {
		if err := p.FindSource(ctx); err != nil {
			return err
		}
		p.mu.RLock()
		current = p.currentSource
		p.mu.RUnlock()
		if current == nil {
			return ErrSourcesExhausted
		}
	}

	url, err := p.resolver.Resolve(ctx, mediaID)
	if err != nil {
		return err
	}
	if err := p.client.PlayMedia(ctx, amplipi.PlayMedia{SourceID: current.ID, Media: url}); err != nil {
		return err
	}
	return p.Update(ctx)
}

// TurnOn connects the stream to the first free source.
func (p *StreamPlayer) TurnOn(ctx context.Context) error {
	p.mu.RLock()
	routed := p.currentSource != nil
	p.mu.RUnlock()
	if routed {
		return nil
	}
	return p.FindSource(ctx)
}

// TurnOff detaches the stream from its owning source.
func (p *StreamPlayer) TurnOff(ctx context.Context) error {
	p.mu.RLock()
	current := p.currentSource
	p.mu.RUnlock()
	if current == nil {
		return nil
	}
	if err := p.client.SetSource(ctx, current.ID, amplipi.SourceUpdate{Input: amplipi.Ptr("None")}); err != nil {
		return err
	}
	return p.Update(ctx)
}

// FindSource adopts the first source with a free input. With all inputs
// occupied it fails loudly rather than hijacking someone else's stream.
func (p *StreamPlayer) FindSource(ctx context.Context) error {
	sources, err := p.client.GetSources(ctx)
	if err != nil {
		return err
	}
	for _, source := range sources {
		if sourceInputFree(source) {
			return p.attachTo(ctx, source.ID)
		}
	}
	return ErrSourcesExhausted
}

func (p *StreamPlayer) attachTo(ctx context.Context, sourceID int) error {
	input := fmt.Sprintf("stream=%d", p.id)
	if err := p.client.SetSource(ctx, sourceID, amplipi.SourceUpdate{Input: amplipi.Ptr(input)}); err != nil {
		if updateErr := p.Update(ctx); updateErr != nil {
			p.logger.Printf("re-sync after failed attach: %v", updateErr)
		}
		return err
	}
	return p.Update(ctx)
}

func (p *StreamPlayer) streamCommand(ctx context.Context, name string, command func(context.Context, int) error) error {
	if err := command(ctx, p.id); err != nil {
		p.logger.Printf("%s on stream %d: %v", name, p.id, err)
		return err
	}
	return p.Update(ctx)
}

func (p *StreamPlayer) applyZoneUpdate(ctx context.Context, update amplipi.ZoneUpdate) error {
	p.mu.RLock()
	zoneIDs := make([]int, 0, len(p.zones))
	for _, zone := range p.zones {
		zoneIDs = append(zoneIDs, zone.ID)
	}
	groupIDs := make([]int, 0, len(p.groups))
	for _, group := range p.groups {
		groupIDs = append(groupIDs, group.ID)
	}
	p.mu.RUnlock()

	if len(zoneIDs) == 0 && len(groupIDs) == 0 {
		return nil
	}
	multi := amplipi.MultiZoneUpdate{Zones: zoneIDs, Groups: groupIDs, Update: update}
	if err := p.client.SetZones(ctx, multi); err != nil {
		return err
	}
	return p.Update(ctx)
}

// baseName strips the normalization prefix for use in the entity ID slug.
// Callers hold p.mu.
func (p *StreamPlayer) baseName() string {
	name := p.name
	prefix := fmt.Sprintf("%s %d: ", streamNameMarker, p.id)
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}
