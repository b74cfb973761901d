package registry

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sync"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
	"github.com/micro-nova/amplipi-hub/internal/audit"
	"github.com/micro-nova/amplipi-hub/internal/players"
)

// Recorder is the slice of the audit service the registry needs.
type Recorder interface {
	RecordEvent(input audit.WriteEventInput) *audit.Event
}

// Registry owns the live player set. It builds players from controller
// snapshots, persists their registrations, and serves lookups for the REST
// and state-stream layers.
type Registry struct {
	client    players.Client
	resolver  players.MediaResolver
	repo      *Repository
	recorder  Recorder
	imageBase string
	logger    *log.Logger

	mu    sync.RWMutex
	byID  map[string]players.MediaPlayer
	order []string
}

// New creates an empty registry. Call Bootstrap before serving lookups.
func New(client players.Client, resolver players.MediaResolver, repo *Repository, recorder Recorder, imageBase string, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		client:    client,
		resolver:  resolver,
		repo:      repo,
		recorder:  recorder,
		imageBase: imageBase,
		logger:    logger,
		byID:      map[string]players.MediaPlayer{},
	}
}

// Bootstrap fetches the initial snapshot, migrates any legacy registrations,
// and builds the full player set.
func (r *Registry) Bootstrap(ctx context.Context) error {
	if err := r.migrateLegacyEntities(); err != nil {
		return fmt.Errorf("migrate entities: %w", err)
	}

	status, err := r.client.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return r.rebuildFrom(status)
}

// Rebuild re-reads the controller and reconciles the player set: new zones,
// groups, and streams get players; players whose records disappeared are
// dropped. Existing players are kept so their cached state survives.
func (r *Registry) Rebuild(ctx context.Context) error {
	status, err := r.client.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	return r.rebuildFrom(status)
}

func (r *Registry) rebuildFrom(status *amplipi.Status) error {
	wanted := map[string]func() players.MediaPlayer{}
	order := []string{}

	add := func(uniqueID string, build func() players.MediaPlayer) {
		wanted[uniqueID] = build
		order = append(order, uniqueID)
	}

	for _, source := range status.Sources {
		src := source
		add(fmt.Sprintf("amplipi_source_%d", source.ID), func() players.MediaPlayer {
			return players.NewSourcePlayer(src, status.Streams, r.client, r.resolver, r.imageBase, r.logger)
		})
	}
	for _, zone := range status.Zones {
		z := zone
		add(fmt.Sprintf("amplipi_zone_%d", zone.ID), func() players.MediaPlayer {
			return players.NewZonePlayer(z, status.Streams, status.Sources, r.client, r.resolver, r.imageBase, r.logger)
		})
	}
	for _, group := range status.Groups {
		g := group
		add(fmt.Sprintf("amplipi_group_%d", group.ID), func() players.MediaPlayer {
			return players.NewGroupPlayer(g, status.Streams, status.Sources, r.client, r.resolver, r.imageBase, r.logger)
		})
	}
	for _, stream := range status.Streams {
		s := stream
		add(fmt.Sprintf("amplipi_stream_%d", stream.ID), func() players.MediaPlayer {
			return players.NewStreamPlayer(s, r.client, r.resolver, r.imageBase, r.logger)
		})
	}
	add("amplipi_announcement", func() players.MediaPlayer {
		return players.NewAnnouncerPlayer(r.client, r.resolver, r.logger)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	for uniqueID := range r.byID {
		if _, keep := wanted[uniqueID]; !keep {
			r.logger.Printf("dropping player %s: gone from the controller", uniqueID)
			delete(r.byID, uniqueID)
			if err := r.repo.Delete(uniqueID); err != nil {
				r.logger.Printf("delete registration %s: %v", uniqueID, err)
			}
		}
	}

	for _, uniqueID := range order {
		if _, exists := r.byID[uniqueID]; !exists {
			r.byID[uniqueID] = wanted[uniqueID]()
		}
		player := r.byID[uniqueID]
		if err := r.repo.Upsert(EntityRecord{
			UniqueID: player.UniqueID(),
			EntityID: player.EntityID(),
			Kind:     string(player.Kind()),
			Name:     player.Name(),
		}); err != nil {
			r.logger.Printf("register %s: %v", uniqueID, err)
		}
	}
	r.order = order

	return nil
}

// Players returns the live player set in a stable order.
func (r *Registry) Players() []players.MediaPlayer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]players.MediaPlayer, 0, len(r.order))
	for _, uniqueID := range r.order {
		if player, ok := r.byID[uniqueID]; ok {
			all = append(all, player)
		}
	}
	return all
}

// Player looks up a player by unique ID.
func (r *Registry) Player(uniqueID string) (players.MediaPlayer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	player, ok := r.byID[uniqueID]
	return player, ok
}

// legacyUniqueID matches the pre-1.0 unique ID scheme, which had no
// underscore between the kind and the numeric ID (e.g. "amplipi_zone3").
var legacyUniqueID = regexp.MustCompile(`^amplipi_(source|zone|group|stream)(\d+)$`)

// migrateLegacyEntities rewrites registrations stored under the old unique
// ID scheme. Entity IDs are untouched: stored addressing must survive the
// rename.
func (r *Registry) migrateLegacyEntities() error {
	records, err := r.repo.List()
	if err != nil {
		return err
	}

	for _, record := range records {
		match := legacyUniqueID.FindStringSubmatch(record.UniqueID)
		if match == nil {
			continue
		}
		newID := fmt.Sprintf("amplipi_%s_%s", match[1], match[2])
		if err := r.repo.RenameUniqueID(record.UniqueID, newID); err != nil {
			return fmt.Errorf("rename %s: %w", record.UniqueID, err)
		}
		r.logger.Printf("migrated entity %s -> %s", record.UniqueID, newID)
		if r.recorder != nil {
			r.recorder.RecordEvent(audit.WriteEventInput{
				Type:     audit.EventEntityMigrated,
				PlayerID: &newID,
				Message:  fmt.Sprintf("migrated unique id %s to %s", record.UniqueID, newID),
			})
		}
	}
	return nil
}
