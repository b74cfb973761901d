package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/micro-nova/amplipi-hub/internal/audit"
	"github.com/micro-nova/amplipi-hub/internal/players"
)

// DefaultPollTimeout bounds one full poll pass.
const DefaultPollTimeout = 30 * time.Second

// Registry is the slice of the entity registry the poller drives.
type Registry interface {
	Players() []players.MediaPlayer
	Rebuild(ctx context.Context) error
}

// Publisher receives the rendered player states after each poll pass.
// Implemented by the state-stream hub.
type Publisher interface {
	Publish(states []players.PlayerState)
}

// Recorder is the slice of the audit service the poller needs.
type Recorder interface {
	RecordEvent(input audit.WriteEventInput) *audit.Event
}

// Runner polls the controller on a cron schedule. Players are updated one at
// a time: the controller is a small embedded box and does not appreciate
// concurrent request bursts.
type Runner struct {
	registry  Registry
	publisher Publisher
	recorder  Recorder
	schedule  string
	timeout   time.Duration
	logger    *log.Logger

	cron *cron.Cron

	mu      sync.Mutex
	polling bool
	running bool
	failing bool
}

// NewRunner creates a poller with the given cron schedule (for example
// "@every 5s").
func NewRunner(registry Registry, publisher Publisher, recorder Recorder, schedule string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		registry:  registry,
		publisher: publisher,
		recorder:  recorder,
		schedule:  schedule,
		timeout:   DefaultPollTimeout,
		logger:    logger,
	}
}

// Start validates the schedule, runs one poll immediately, and begins the
// periodic schedule.
func (r *Runner) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, r.PollOnce); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("invalid poll schedule %q: %w", r.schedule, err)
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Printf("starting poller (schedule: %s)", r.schedule)
	r.PollOnce()
	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight poll to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopped := r.cron.Stop()
	r.mu.Unlock()

	<-stopped.Done()
	r.logger.Printf("poller stopped")
}

// Running reports whether the schedule is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// PollOnce runs a single poll pass. Overlapping passes are skipped: if the
// controller is slow enough that a pass outlives the interval, piling on
// would only make it slower.
func (r *Runner) PollOnce() {
	r.mu.Lock()
	if r.polling {
		r.mu.Unlock()
		r.logger.Printf("poll still in flight, skipping this tick")
		return
	}
	r.polling = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.polling = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.registry.Rebuild(ctx); err != nil {
		r.logger.Printf("poll: %v", err)
		r.markFailed(err)
		return
	}

	failures := 0
	for _, player := range r.registry.Players() {
		if err := player.Update(ctx); err != nil {
			// One broken player must not starve the rest of the pass.
			r.logger.Printf("poll %s: %v", player.UniqueID(), err)
			failures++
		}
	}

	if failures == 0 {
		r.markRecovered()
	}

	if r.publisher != nil {
		r.publisher.Publish(players.RenderAll(r.registry.Players()))
	}
}

// markFailed records the transition into the failing state. Repeat failures
// are not re-recorded; one poll outage is one audit event.
func (r *Runner) markFailed(err error) {
	r.mu.Lock()
	alreadyFailing := r.failing
	r.failing = true
	r.mu.Unlock()

	if alreadyFailing || r.recorder == nil {
		return
	}
	level := audit.EventLevelError
	r.recorder.RecordEvent(audit.WriteEventInput{
		Type:    audit.EventPollFailed,
		Level:   &level,
		Message: "poll failed: " + err.Error(),
	})
}

func (r *Runner) markRecovered() {
	r.mu.Lock()
	wasFailing := r.failing
	r.failing = false
	r.mu.Unlock()

	if !wasFailing || r.recorder == nil {
		return
	}
	r.recorder.RecordEvent(audit.WriteEventInput{
		Type:    audit.EventPollRecovered,
		Message: "poll recovered",
	})
}
