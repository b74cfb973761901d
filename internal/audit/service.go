package audit

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Default configuration values.
const (
	DefaultRetentionDays = 90
	DefaultPruneInterval = 24 * time.Hour
	DefaultQueryLimit    = 100
	MaxQueryLimit        = 1000
)

// Service provides audit log management: recording, querying, and the
// background retention prune job.
type Service struct {
	logger        *log.Logger
	repo          *Repository
	retentionDays int
	pruneInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewService creates a new audit service. retentionDays <= 0 selects the
// default retention window.
func NewService(dbPair DBPair, retentionDays int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Service{
		logger:        logger,
		repo:          NewRepository(dbPair),
		retentionDays: retentionDays,
		pruneInterval: DefaultPruneInterval,
		stopCh:        make(chan struct{}),
	}
}

// RecordEvent writes a new audit event. Recording failures are logged, not
// propagated: the audit trail must never break the operation it describes.
func (s *Service) RecordEvent(input WriteEventInput) *Event {
	event, err := s.repo.InsertEvent(input)
	if err != nil {
		s.logger.Printf("failed to record audit event %s: %v", input.Type, err)
		return nil
	}
	return event
}

// QueryEvents retrieves events with filters and pagination. Returns events,
// total count, and a hasMore flag.
func (s *Service) QueryEvents(filters EventQueryFilters) ([]Event, int, bool, error) {
	if filters.Limit == 0 {
		filters.Limit = DefaultQueryLimit
	}
	if filters.Limit > MaxQueryLimit {
		filters.Limit = MaxQueryLimit
	}

	events, total, err := s.repo.QueryEvents(filters)
	if err != nil {
		return nil, 0, false, fmt.Errorf("query audit events: %w", err)
	}

	hasMore := filters.Offset+len(events) < total
	return events, total, hasMore, nil
}

// GetEvent retrieves a single event by ID.
func (s *Service) GetEvent(eventID string) (*Event, error) {
	event, err := s.repo.GetEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	if event == nil {
		return nil, &EventNotFoundError{EventID: eventID}
	}
	return event, nil
}

// StartPruneJob starts the background prune job. It prunes immediately, then
// at pruneInterval.
func (s *Service) StartPruneJob() {
	s.logger.Printf("starting audit prune job (interval: %v, retention: %d days)",
		s.pruneInterval, s.retentionDays)

	s.wg.Add(1)
	go s.runPruneLoop()
}

// StopPruneJob stops the background prune job and waits for it to exit.
func (s *Service) StopPruneJob() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Service) runPruneLoop() {
	defer s.wg.Done()

	s.pruneOnce()

	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.pruneOnce()
		}
	}
}

func (s *Service) pruneOnce() {
	count, err := s.repo.PruneOldEvents(s.retentionDays)
	if err != nil {
		s.logger.Printf("error pruning audit events: %v", err)
		return
	}
	if count > 0 {
		s.logger.Printf("pruned %d audit events", count)
	}
}

// EventNotFoundError is returned when an audit event does not exist.
type EventNotFoundError struct {
	EventID string
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("audit event not found: %s", e.EventID)
}
