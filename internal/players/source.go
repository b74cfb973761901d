package players

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

// SourcePlayer represents one of the controller's four source inputs.
type SourcePlayer struct {
	id        int
	client    Client
	resolver  MediaResolver
	imageBase string
	logger    *log.Logger

	mu            sync.RWMutex
	source        *amplipi.Source
	streams       []amplipi.Stream
	currentStream *amplipi.Stream
	zones         []amplipi.Zone
	groups        []amplipi.Group
	name          string
	media         MediaInfo
	lastUpdateOK  bool
}

// NewSourcePlayer builds a source player from an initial snapshot record.
func NewSourcePlayer(source amplipi.Source, streams []amplipi.Stream, client Client, resolver MediaResolver, imageBase string, logger *log.Logger) *SourcePlayer {
	if logger == nil {
		logger = log.Default()
	}
	src := source
	return &SourcePlayer{
		id:        source.ID,
		client:    client,
		resolver:  resolver,
		imageBase: imageBase,
		logger:    logger,
		source:    &src,
		streams:   NormalizeStreamNames(streams),
		name:      fmt.Sprintf("Source %d", source.ID+1),
	}
}

func (p *SourcePlayer) UniqueID() string { return fmt.Sprintf("amplipi_source_%d", p.id) }

func (p *SourcePlayer) EntityID() string {
	return fmt.Sprintf("media_player.amplipi_source_%d", p.id+1)
}

func (p *SourcePlayer) Kind() Kind { return KindSource }

func (p *SourcePlayer) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return "AmpliPi Source: " + p.name
}

func (p *SourcePlayer) DeviceClass() string { return "receiver" }

// Available reports true as long as the source record exists; a source that
// vanished from the snapshot renders as unknown state instead.
func (p *SourcePlayer) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source != nil
}

// Update retrieves the latest snapshot and replaces the cached view. A fetch
// failure or a snapshot without this source marks the update unsuccessful;
// the player renders as unknown until the next successful poll.
func (p *SourcePlayer) Update(ctx context.Context) error {
	status, err := p.client.GetStatus(ctx)
	if err != nil {
		p.mu.Lock()
		p.lastUpdateOK = false
		p.mu.Unlock()
		return fmt.Errorf("update source %d: %w", p.id, err)
	}

	source := findSourceByID(status.Sources, p.id)
	if source == nil {
		p.mu.Lock()
		p.lastUpdateOK = false
		p.mu.Unlock()
		p.logger.Printf("source %d missing from snapshot", p.id)
		return nil
	}

	var zones []amplipi.Zone
	for _, zone := range status.Zones {
		if zone.SourceID == p.id {
			zones = append(zones, zone)
		}
	}
	var groups []amplipi.Group
	for _, group := range status.Groups {
		if group.SourceID == p.id {
			groups = append(groups, group)
		}
	}

	p.syncState(*source, status.Streams, zones, groups)
	return nil
}

// syncState replaces the whole cached view with the relevant slice of the
// newest snapshot. No incremental patching.
func (p *SourcePlayer) syncState(source amplipi.Source, streams []amplipi.Stream, zones []amplipi.Zone, groups []amplipi.Group) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.source = &source
	p.streams = NormalizeStreamNames(streams)
	p.zones = zones
	p.groups = groups
	p.lastUpdateOK = true
	p.name = source.Name

	p.currentStream = nil
	if streamID, ok := streamInputID(source.Input); ok {
		p.currentStream = findStream(p.streams, streamID)
	}

	appName := ""
	if p.currentStream != nil {
		appName = p.currentStream.Type
	}
	p.media = buildMediaInfo(source.Info, p.imageBase, appName, true)
}

func (p *SourcePlayer) State() PlaybackState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.lastUpdateOK {
		return StateUnknown
	}
	if p.source == nil {
		return StateIdle
	}
	return playbackStateFor(p.source.Info)
}

// VolumeLevel reports the volume of whichever associated group or zone
// exposes one; groups take priority. Nil means unknown, not zero.
func (p *SourcePlayer) VolumeLevel() *float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, group := range p.groups {
		if group.VolF != nil {
			return group.VolF
		}
	}
	for _, zone := range p.zones {
		if zone.VolF != nil {
			return zone.VolF
		}
	}
	return nil
}

func (p *SourcePlayer) Muted() *bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, group := range p.groups {
		if group.Mute != nil {
			return group.Mute
		}
	}
	for _, zone := range p.zones {
		if zone.Mute != nil {
			return zone.Mute
		}
	}
	return nil
}

func (p *SourcePlayer) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.source != nil {
		if p.source.Input == "local" {
			return p.source.Name
		}
		if p.currentStream != nil {
			return p.currentStream.Name
		}
	}
	return "None"
}

// SourceList lists the inputs selectable on this source: "None" plus every
// stream that can attach here. User-created streams (id >= 1000) can attach
// to any source; the built-in RCA inputs (996-999) are each bound to their
// own source.
func (p *SourcePlayer) SourceList() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := []string{"None"}
	for _, stream := range p.streams {
		if stream.ID >= 1000 || stream.ID-996 == p.id {
			list = append(list, stream.Name)
		}
	}
	return list
}

func (p *SourcePlayer) SupportedFeatures() Feature {
	p.mu.RLock()
	defer p.mu.RUnlock()
	features := featureDAC
	if p.source != nil && p.source.Info != nil {
		features |= featuresForCommands(sourceCommandFeatures, p.source.Info.SupportedCmds)
	}
	return features
}

func (p *SourcePlayer) Media() MediaInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.media
}

func (p *SourcePlayer) ExtraAttributes() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	zoneIDs := make([]int, 0, len(p.zones))
	for _, zone := range p.zones {
		zoneIDs = append(zoneIDs, zone.ID)
	}
	return map[string]any{
		"amplipi_source_id":    p.id,
		"amplipi_source_zones": zoneIDs,
	}
}

// SelectSource routes an input to this source: the source's own name means
// the local RCA input, "None" disconnects, and anything else is matched
// against the cached stream list by embedded stream ID. An unmatched label
// logs a warning and is a no-op.
func (p *SourcePlayer) SelectSource(ctx context.Context, label string) error {
	p.mu.RLock()
	ownName := p.source != nil && p.source.Name == label
	streams := p.streams
	p.mu.RUnlock()

	if ownName {
		return p.updateSource(ctx, amplipi.SourceUpdate{Input: amplipi.Ptr("local")})
	}
	if label == "None" {
		return p.updateSource(ctx, amplipi.SourceUpdate{Input: amplipi.Ptr("None")})
	}

	wantID, ok := ExtractStreamID(label)
	if !ok {
		p.logger.Printf("select source %q: no stream id in label", label)
		return nil
	}
	for _, stream := range streams {
		if id, ok := ExtractStreamID(stream.Name); ok && id == wantID {
			return p.updateSource(ctx, amplipi.SourceUpdate{
				Input: amplipi.Ptr(fmt.Sprintf("stream=%d", stream.ID)),
			})
		}
	}

	p.logger.Printf("select source %q: no match in the stream cache", label)
	return nil
}

// SetVolume applies the level to all associated zones and groups. Nil is a
// no-op.
func (p *SourcePlayer) SetVolume(ctx context.Context, level *float64) error {
	if level == nil {
		return nil
	}
	return p.updateZones(ctx, amplipi.ZoneUpdate{VolF: level})
}

// SetMute applies the flag to all associated zones and groups. Nil is a
// no-op.
func (p *SourcePlayer) SetMute(ctx context.Context, mute *bool) error {
	if mute == nil {
		return nil
	}
	return p.updateZones(ctx, amplipi.ZoneUpdate{Mute: mute})
}

func (p *SourcePlayer) Play(ctx context.Context) error {
	return p.streamCommand(ctx, "play", p.client.PlayStream)
}

func (p *SourcePlayer) Pause(ctx context.Context) error {
	return p.streamCommand(ctx, "pause", p.client.PauseStream)
}

func (p *SourcePlayer) Stop(ctx context.Context) error {
	return p.streamCommand(ctx, "stop", p.client.StopStream)
}

func (p *SourcePlayer) NextTrack(ctx context.Context) error {
	return p.streamCommand(ctx, "next", p.client.NextStream)
}

func (p *SourcePlayer) PreviousTrack(ctx context.Context) error {
	return p.streamCommand(ctx, "prev", p.client.PreviousStream)
}

// PlayMedia resolves the media reference and plays it on this source.
func (p *SourcePlayer) PlayMedia(ctx context.Context, mediaID string) error {
	url, err := p.resolver.Resolve(ctx, mediaID)
	if err != nil {
		return err
	}
	if err := p.client.PlayMedia(ctx, amplipi.PlayMedia{SourceID: p.id, Media: url}); err != nil {
		return err
	}
	return p.Update(ctx)
}

func (p *SourcePlayer) TurnOn(ctx context.Context) error { return nil }

// TurnOff disconnects whatever is feeding the source.
func (p *SourcePlayer) TurnOff(ctx context.Context) error {
	p.logger.Printf("disconnecting input from source %d", p.id)
	return p.updateSource(ctx, amplipi.SourceUpdate{Input: amplipi.Ptr("None")})
}

func (p *SourcePlayer) streamCommand(ctx context.Context, name string, command func(context.Context, int) error) error {
	p.mu.RLock()
	stream := p.currentStream
	p.mu.RUnlock()
	if stream == nil {
		p.logger.Printf("%s on source %d: no stream attached", name, p.id)
		return nil
	}
	if err := command(ctx, stream.ID); err != nil {
		return err
	}
	return p.Update(ctx)
}

func (p *SourcePlayer) updateSource(ctx context.Context, update amplipi.SourceUpdate) error {
	if err := p.client.SetSource(ctx, p.id, update); err != nil {
		return err
	}
	return p.Update(ctx)
}

func (p *SourcePlayer) updateZones(ctx context.Context, update amplipi.ZoneUpdate) error {
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

	err := p.client.SetZones(ctx, amplipi.MultiZoneUpdate{
		Zones:  zoneIDs,
		Groups: groupIDs,
		Update: update,
	})
	if err != nil {
		return err
	}
	return p.Update(ctx)
}
