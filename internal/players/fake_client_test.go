package players

import (
	"context"
	"fmt"
	"sync"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

// fakeClient records every call and serves a canned snapshot.
type fakeClient struct {
	mu            sync.Mutex
	status        *amplipi.Status
	statusErr     error
	calls         []string
	sourceUpdates map[int]amplipi.SourceUpdate
	zoneUpdates   map[int]amplipi.ZoneUpdate
	multiUpdates  []amplipi.MultiZoneUpdate
	played        []amplipi.PlayMedia
	announced     []amplipi.Announcement
}

func newFakeClient(status *amplipi.Status) *fakeClient {
	return &fakeClient{
		status:        status,
		sourceUpdates: map[int]amplipi.SourceUpdate{},
		zoneUpdates:   map[int]amplipi.ZoneUpdate{},
	}
}

func (c *fakeClient) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeClient) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeClient) GetStatus(ctx context.Context) (*amplipi.Status, error) {
	c.record("GetStatus")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	copied := *c.status
	return &copied, nil
}

func (c *fakeClient) GetSources(ctx context.Context) ([]amplipi.Source, error) {
	c.record("GetSources")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	return c.status.Sources, nil
}

func (c *fakeClient) SetSource(ctx context.Context, id int, update amplipi.SourceUpdate) error {
	c.record(fmt.Sprintf("SetSource(%d)", id))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceUpdates[id] = update
	return nil
}

func (c *fakeClient) SetZone(ctx context.Context, id int, update amplipi.ZoneUpdate) error {
	c.record(fmt.Sprintf("SetZone(%d)", id))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoneUpdates[id] = update
	return nil
}

func (c *fakeClient) SetZones(ctx context.Context, update amplipi.MultiZoneUpdate) error {
	c.record("SetZones")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiUpdates = append(c.multiUpdates, update)
	return nil
}

func (c *fakeClient) PlayStream(ctx context.Context, id int) error {
	c.record(fmt.Sprintf("PlayStream(%d)", id))
	return nil
}

func (c *fakeClient) PauseStream(ctx context.Context, id int) error {
	c.record(fmt.Sprintf("PauseStream(%d)", id))
	return nil
}

func (c *fakeClient) StopStream(ctx context.Context, id int) error {
	c.record(fmt.Sprintf("StopStream(%d)", id))
	return nil
}

func (c *fakeClient) PreviousStream(ctx context.Context, id int) error {
	c.record(fmt.Sprintf("PreviousStream(%d)", id))
	return nil
}

func (c *fakeClient) NextStream(ctx context.Context, id int) error {
	c.record(fmt.Sprintf("NextStream(%d)", id))
	return nil
}

func (c *fakeClient) PlayMedia(ctx context.Context, media amplipi.PlayMedia) error {
	c.record("PlayMedia")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.played = append(c.played, media)
	return nil
}

func (c *fakeClient) Announce(ctx context.Context, announcement amplipi.Announcement) error {
	c.record("Announce")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.announced = append(c.announced, announcement)
	return nil
}

// fakeResolver resolves every media ID to a fixed URL.
type fakeResolver struct {
	url string
	err error
}

func (r *fakeResolver) Resolve(ctx context.Context, mediaID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if r.url != "" {
		return r.url, nil
	}
	return mediaID, nil
}

// testStatus builds a snapshot with source 0 playing stream 1001, zone 0
// routed to it, zones 1 and 2 grouped on source 1, and zone 3 disabled.
func testStatus() *amplipi.Status {
	return &amplipi.Status{
		Sources: []amplipi.Source{
			{ID: 0, Name: "Source 1", Input: "stream=1001", Info: &amplipi.SourceInfo{
				Name:          "Groove Salad - SomaFM",
				State:         "playing",
				Artist:        "Boards of Canada",
				Track:         "Olson",
				Station:       "SomaFM",
				SupportedCmds: []string{"play", "pause", "stop", "next", "prev"},
			}},
			{ID: 1, Name: "Source 2", Input: "local", Info: &amplipi.SourceInfo{Name: "RCA", State: "stopped"}},
			{ID: 2, Name: "Source 3", Input: "None"},
			{ID: 3, Name: "Source 4", Input: ""},
		},
		Zones: []amplipi.Zone{
			{ID: 0, Name: "Living Room", SourceID: 0, VolF: amplipi.Ptr(0.4), Mute: amplipi.Ptr(false)},
			{ID: 1, Name: "Kitchen", SourceID: 1, VolF: amplipi.Ptr(0.3), Mute: amplipi.Ptr(false)},
			{ID: 2, Name: "Dining Room", SourceID: 1, VolF: amplipi.Ptr(0.5), Mute: amplipi.Ptr(true)},
			{ID: 3, Name: "Back Patio", SourceID: amplipi.SourceIDUnassigned, Disabled: true},
		},
		Groups: []amplipi.Group{
			{ID: 100, Name: "Downstairs", SourceID: 1, Zones: []int{1, 2}, VolF: amplipi.Ptr(0.35), Mute: amplipi.Ptr(false)},
		},
		Streams: []amplipi.Stream{
			{ID: 1001, Name: "Groove Salad", Type: "internetradio"},
			{ID: 1002, Name: "Matt's Pandora", Type: "pandora"},
			{ID: 996, Name: "Input 1", Type: "rca"},
		},
	}
}
