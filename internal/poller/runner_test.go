package poller

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-nova/amplipi-hub/internal/audit"
	"github.com/micro-nova/amplipi-hub/internal/players"
)

// fakePlayer counts updates and optionally fails them.
type fakePlayer struct {
	players.MediaPlayer

	id        string
	updateErr error
	updates   int
}

func (p *fakePlayer) UniqueID() string { return p.id }

func (p *fakePlayer) Update(ctx context.Context) error {
	p.updates++
	return p.updateErr
}

type fakeRegistry struct {
	players    []players.MediaPlayer
	rebuildErr error
	rebuilds   int
}

func (r *fakeRegistry) Players() []players.MediaPlayer { return r.players }

func (r *fakeRegistry) Rebuild(ctx context.Context) error {
	r.rebuilds++
	return r.rebuildErr
}

type fakePublisher struct {
	mu        sync.Mutex
	published [][]players.PlayerState
}

func (p *fakePublisher) Publish(states []players.PlayerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, states)
}

type fakeRecorder struct {
	events []audit.WriteEventInput
}

func (r *fakeRecorder) RecordEvent(input audit.WriteEventInput) *audit.Event {
	r.events = append(r.events, input)
	return nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestPollOnceUpdatesEveryPlayer(t *testing.T) {
	first := &fakePlayer{id: "amplipi_source_0"}
	second := &fakePlayer{id: "amplipi_zone_0"}
	registry := &fakeRegistry{players: []players.MediaPlayer{first, second}}

	runner := NewRunner(registry, nil, nil, "@every 5s", quietLogger())
	runner.PollOnce()

	assert.Equal(t, 1, registry.rebuilds)
	assert.Equal(t, 1, first.updates)
	assert.Equal(t, 1, second.updates)
}

func TestPollOnceIsolatesPlayerFailures(t *testing.T) {
	broken := &fakePlayer{id: "amplipi_source_0", updateErr: errors.New("boom")}
	healthy := &fakePlayer{id: "amplipi_zone_0"}
	registry := &fakeRegistry{players: []players.MediaPlayer{broken, healthy}}

	runner := NewRunner(registry, nil, nil, "@every 5s", quietLogger())
	runner.PollOnce()

	assert.Equal(t, 1, healthy.updates, "a failing player must not starve the rest")
}

func TestPollFailureAndRecoveryAudited(t *testing.T) {
	registry := &fakeRegistry{rebuildErr: errors.New("unreachable")}
	recorder := &fakeRecorder{}
	runner := NewRunner(registry, nil, recorder, "@every 5s", quietLogger())

	runner.PollOnce()
	runner.PollOnce()
	require.Len(t, recorder.events, 1, "repeat failures collapse into one event")
	assert.Equal(t, audit.EventPollFailed, recorder.events[0].Type)

	registry.rebuildErr = nil
	runner.PollOnce()
	require.Len(t, recorder.events, 2)
	assert.Equal(t, audit.EventPollRecovered, recorder.events[1].Type)
}

func TestPollPublishesStates(t *testing.T) {
	registry := &fakeRegistry{}
	publisher := &fakePublisher{}
	runner := NewRunner(registry, publisher, nil, "@every 5s", quietLogger())

	runner.PollOnce()
	assert.Len(t, publisher.published, 1)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	runner := NewRunner(&fakeRegistry{}, nil, nil, "not a schedule", quietLogger())
	assert.Error(t, runner.Start())
	assert.False(t, runner.Running())
}

func TestStartAndStop(t *testing.T) {
	registry := &fakeRegistry{}
	runner := NewRunner(registry, nil, nil, "@every 1h", quietLogger())

	require.NoError(t, runner.Start())
	assert.True(t, runner.Running())
	assert.Equal(t, 1, registry.rebuilds, "Start polls immediately")

	runner.Stop()
	assert.False(t, runner.Running())
}
