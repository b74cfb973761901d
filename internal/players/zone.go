package players

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

// ZonePlayer represents a single zone or a group of zones. Groups read their
// membership from the controller's group record, never from client-side
// aggregation.
type ZonePlayer struct {
	id        int
	isGroup   bool
	client    Client
	resolver  MediaResolver
	imageBase string
	logger    *log.Logger

	mu            sync.RWMutex
	zone          *amplipi.Zone
	group         *amplipi.Group
	sources       []amplipi.Source
	streams       []amplipi.Stream
	currentSource *amplipi.Source
	currentStream *amplipi.Stream
	name          string
	media         MediaInfo
	available     bool
	lastUpdateOK  bool
	memberZoneIDs []int
}

// NewZonePlayer builds a player for a single zone.
func NewZonePlayer(zone amplipi.Zone, streams []amplipi.Stream, sources []amplipi.Source, client Client, resolver MediaResolver, imageBase string, logger *log.Logger) *ZonePlayer {
	z := zone
	player := newZonePlayer(zone.ID, false, streams, sources, client, resolver, imageBase, logger)
	player.zone = &z
	player.name = zone.Name
	return player
}

// NewGroupPlayer builds a player for a group of zones.
func NewGroupPlayer(group amplipi.Group, streams []amplipi.Stream, sources []amplipi.Source, client Client, resolver MediaResolver, imageBase string, logger *log.Logger) *ZonePlayer {
	g := group
	player := newZonePlayer(group.ID, true, streams, sources, client, resolver, imageBase, logger)
	player.group = &g
	player.name = group.Name
	return player
}

func newZonePlayer(id int, isGroup bool, streams []amplipi.Stream, sources []amplipi.Source, client Client, resolver MediaResolver, imageBase string, logger *log.Logger) *ZonePlayer {
	if logger == nil {
		logger = log.Default()
	}
	return &ZonePlayer{
		id:        id,
		isGroup:   isGroup,
		client:    client,
		resolver:  resolver,
		imageBase: imageBase,
		logger:    logger,
		streams:   NormalizeStreamNames(streams),
		sources:   sources,
	}
}

func (p *ZonePlayer) UniqueID() string {
	if p.isGroup {
		return fmt.Sprintf("amplipi_group_%d", p.id)
	}
	return fmt.Sprintf("amplipi_zone_%d", p.id)
}

func (p *ZonePlayer) EntityID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isGroup {
		return "media_player.amplipi_group_" + entitySlug(p.name)
	}
	return "media_player.amplipi_zone_" + entitySlug(p.name)
}

func (p *ZonePlayer) Kind() Kind {
	if p.isGroup {
		return KindGroup
	}
	return KindZone
}

func (p *ZonePlayer) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isGroup {
		return "AmpliPi Group: " + p.name
	}
	return "AmpliPi Zone: " + p.name
}

func (p *ZonePlayer) DeviceClass() string { return "speaker" }

func (p *ZonePlayer) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available
}

// Update retrieves the latest snapshot and replaces the cached view.
func (p *ZonePlayer) Update(ctx context.Context) error {
	status, err := p.client.GetStatus(ctx)
	if err != nil {
		p.mu.Lock()
		p.lastUpdateOK = false
		p.mu.Unlock()
		return fmt.Errorf("update %s %d: %w", p.kindNoun(), p.id, err)
	}

	p.syncState(status)
	return nil
}

func (p *ZonePlayer) syncState(status *amplipi.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.streams = NormalizeStreamNames(status.Streams)
	p.sources = status.Sources

	var owner int
	if p.isGroup {
		group := findGroup(status.Groups, p.id)
		if group == nil {
			p.lastUpdateOK = false
			p.logger.Printf("group %d missing from snapshot", p.id)
			return
		}
		p.group = group
		p.name = group.Name
		owner = group.SourceID

		// Available iff at least one member zone is enabled.
		p.memberZoneIDs = p.memberZoneIDs[:0]
		p.available = false
		for _, zoneID := range group.Zones {
			for _, zone := range status.Zones {
				if zone.ID == zoneID && !zone.Disabled {
					p.memberZoneIDs = append(p.memberZoneIDs, zoneID)
					p.available = true
				}
			}
		}
	} else {
		zone := findZone(status.Zones, p.id)
		if zone == nil {
			p.lastUpdateOK = false
			p.logger.Printf("zone %d missing from snapshot", p.id)
			return
		}
		p.zone = zone
		p.name = zone.Name
		owner = zone.SourceID
		p.available = !zone.Disabled
	}

	p.currentSource = nil
	if owner != amplipi.SourceIDUnassigned {
		p.currentSource = findSourceByID(status.Sources, owner)
		if p.currentSource == nil {
			// Dangling source reference: render unavailable rather than
			// pretending the route exists.
			p.available = false
		}
	}

	p.currentStream = nil
	if p.currentSource != nil {
		if streamID, ok := streamInputID(p.currentSource.Input); ok {
			p.currentStream = findStream(p.streams, streamID)
		}
	}

	p.lastUpdateOK = true
	var info *amplipi.SourceInfo
	if p.currentSource != nil {
		info = p.currentSource.Info
	}
	p.media = buildMediaInfo(info, p.imageBase, "", false)
}

func (p *ZonePlayer) State() PlaybackState {
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

func (p *ZonePlayer) VolumeLevel() *float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isGroup {
		if p.group != nil {
			return p.group.VolF
		}
		return nil
	}
	if p.zone != nil {
		return p.zone.VolF
	}
	return nil
}

func (p *ZonePlayer) Muted() *bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isGroup {
		if p.group != nil {
			return p.group.Mute
		}
		return nil
	}
	if p.zone != nil {
		return p.zone.Mute
	}
	return nil
}

func (p *ZonePlayer) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.currentSource != nil {
		return fmt.Sprintf("Source %d", p.currentSource.ID+1)
	}
	return ""
}

func (p *ZonePlayer) SourceList() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := make([]string, 0, len(p.sources))
	for i := range p.sources {
		list = append(list, fmt.Sprintf("Source %d", i+1))
	}
	return list
}

func (p *ZonePlayer) SupportedFeatures() Feature {
	p.mu.RLock()
	defer p.mu.RUnlock()
	features := featureDAC | FeatureTurnOn
	if p.currentSource != nil && p.currentSource.Info != nil {
		features |= featuresForCommands(zoneCommandFeatures, p.currentSource.Info.SupportedCmds)
	}
	return features
}

func (p *ZonePlayer) Media() MediaInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.media
}

func (p *ZonePlayer) ExtraAttributes() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isGroup {
		zoneIDs := make([]int, len(p.memberZoneIDs))
		copy(zoneIDs, p.memberZoneIDs)
		return map[string]any{"amplipi_zones": zoneIDs}
	}
	return map[string]any{"amplipi_zone_id": p.id}
}

// SelectSource resolves the label purely via the numeric codec. A failed
// parse logs and skips the dispatch, but the snapshot is always re-fetched
// afterward regardless of success.
func (p *ZonePlayer) SelectSource(ctx context.Context, label string) error {
	sourceID, err := ExtractSourceID(label)
	if err != nil {
		p.logger.Printf("select source %q on %s %d: %v", label, p.kindNoun(), p.id, err)
		return p.Update(ctx)
	}

	if p.isGroup {
		err = p.client.SetZones(ctx, amplipi.MultiZoneUpdate{
			Groups: []int{p.id},
			Update: amplipi.ZoneUpdate{SourceID: amplipi.Ptr(sourceID)},
		})
	} else {
		err = p.client.SetZone(ctx, p.id, amplipi.ZoneUpdate{SourceID: amplipi.Ptr(sourceID)})
	}
	if err != nil {
		// Still re-sync: the device may have partially applied the change.
		if updateErr := p.Update(ctx); updateErr != nil {
			p.logger.Printf("re-sync after failed select: %v", updateErr)
		}
		return err
	}
	return p.Update(ctx)
}

func (p *ZonePlayer) SetVolume(ctx context.Context, level *float64) error {
	if level == nil {
		return nil
	}
	p.logger.Printf("setting %s %d volume to %.2f", p.kindNoun(), p.id, *level)
	return p.applyUpdate(ctx, amplipi.ZoneUpdate{VolF: level})
}

func (p *ZonePlayer) SetMute(ctx context.Context, mute *bool) error {
	if mute == nil {
		return nil
	}
	p.logger.Printf("setting %s %d mute to %t", p.kindNoun(), p.id, *mute)
	return p.applyUpdate(ctx, amplipi.ZoneUpdate{Mute: mute})
}

func (p *ZonePlayer) Play(ctx context.Context) error {
	return p.streamCommand(ctx, "play", p.client.PlayStream)
}

func (p *ZonePlayer) Pause(ctx context.Context) error {
	return p.streamCommand(ctx, "pause", p.client.PauseStream)
}

func (p *ZonePlayer) Stop(ctx context.Context) error {
	return p.streamCommand(ctx, "stop", p.client.StopStream)
}

func (p *ZonePlayer) NextTrack(ctx context.Context) error {
	return p.streamCommand(ctx, "next", p.client.NextStream)
}

func (p *ZonePlayer) PreviousTrack(ctx context.Context) error {
	return p.streamCommand(ctx, "prev", p.client.PreviousStream)
}

// PlayMedia plays a resolved URL through this zone's source, adopting a free
// source first when the zone is not routed anywhere. With all four inputs
// occupied this fails loudly; the user has to free one up.
func (p *ZonePlayer) PlayMedia(ctx context.Context, mediaID string) error {
	p.mu.RLock()
	current := p.currentSource
	p.mu.RUnlock()

	if current == nil {
		sources, err := p.client.GetSources(ctx)
		if err != nil {
			return err
		}
		for i := range sources {
			if sourceInputFree(sources[i]) {
				current = &sources[i]
				break
			}
		}
		if current == nil {
			return ErrSourcesExhausted
		}
		p.mu.Lock()
		p.currentSource = current
		p.mu.Unlock()
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

// TurnOn re-enables the zone (or the group's zones).
func (p *ZonePlayer) TurnOn(ctx context.Context) error {
	return p.applyUpdate(ctx, amplipi.ZoneUpdate{Disabled: amplipi.Ptr(false)})
}

// TurnOff disconnects from the current source.
func (p *ZonePlayer) TurnOff(ctx context.Context) error {
	p.mu.RLock()
	routed := p.currentSource != nil
	p.mu.RUnlock()
	if !routed {
		return nil
	}
	p.logger.Printf("disconnecting %s %d from its source", p.kindNoun(), p.id)
	return p.applyUpdate(ctx, amplipi.ZoneUpdate{SourceID: amplipi.Ptr(amplipi.SourceIDUnassigned)})
}

func (p *ZonePlayer) streamCommand(ctx context.Context, name string, command func(context.Context, int) error) error {
	p.mu.RLock()
	stream := p.currentStream
	p.mu.RUnlock()
	if stream == nil {
		p.logger.Printf("%s on %s %d: no stream attached", name, p.kindNoun(), p.id)
		return nil
	}
	if err := command(ctx, stream.ID); err != nil {
		return err
	}
	return p.Update(ctx)
}

func (p *ZonePlayer) applyUpdate(ctx context.Context, update amplipi.ZoneUpdate) error {
	var err error
	if p.isGroup {
		err = p.client.SetZones(ctx, amplipi.MultiZoneUpdate{
			Groups: []int{p.id},
			Update: update,
		})
	} else {
		err = p.client.SetZone(ctx, p.id, update)
	}
	if err != nil {
		return err
	}
	return p.Update(ctx)
}

func (p *ZonePlayer) kindNoun() string {
	if p.isGroup {
		return "group"
	}
	return "zone"
}

func findZone(zones []amplipi.Zone, id int) *amplipi.Zone {
	for i := range zones {
		if zones[i].ID == id {
			return &zones[i]
		}
	}
	return nil
}

func findGroup(groups []amplipi.Group, id int) *amplipi.Group {
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i]
		}
	}
	return nil
}
