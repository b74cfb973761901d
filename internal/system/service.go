package system

import (
	"context"
	"database/sql"
	"log"
	"runtime"
	"time"

	"github.com/micro-nova/amplipi-hub/internal/config"
)

// Version is the hub version, set at build time or defaulted.
var Version = "0.4.3"

// PollerStatusProvider reports whether the poller schedule is active.
type PollerStatusProvider interface {
	Running() bool
}

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Service reports hub health and runtime information. Read-only: it only
// touches the reader connection.
type Service struct {
	cfg          config.Config
	logger       *log.Logger
	reader       *sql.DB
	pollerStatus PollerStatusProvider
	clientCount  func() int
	startTime    time.Time
}

// NewService creates a new system service. clientCount reports connected
// state-stream clients and may be nil.
func NewService(cfg config.Config, dbPair DBPair, pollerStatus PollerStatusProvider, clientCount func() int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:          cfg,
		logger:       logger,
		reader:       dbPair.Reader(),
		pollerStatus: pollerStatus,
		clientCount:  clientCount,
		startTime:    time.Now(),
	}
}

// Status is the system status report.
type Status struct {
	Object         string `json:"object"`
	Version        string `json:"version"`
	Vendor         string `json:"vendor"`
	UptimeSec      int64  `json:"uptime_sec"`
	GoVersion      string `json:"go_version"`
	PollerRunning  bool   `json:"poller_running"`
	DatabaseOK     bool   `json:"database_ok"`
	StreamClients  int    `json:"stream_clients"`
	AmpliPiBaseURL string `json:"amplipi_base_url"`
}

// Status builds the current status report.
func (s *Service) Status(ctx context.Context) Status {
	status := Status{
		Object:         "system_status",
		Version:        Version,
		Vendor:         s.cfg.Vendor,
		UptimeSec:      int64(time.Since(s.startTime).Seconds()),
		GoVersion:      runtime.Version(),
		AmpliPiBaseURL: s.cfg.AmpliPiBaseURL(),
	}
	if s.pollerStatus != nil {
		status.PollerRunning = s.pollerStatus.Running()
	}
	if s.clientCount != nil {
		status.StreamClients = s.clientCount()
	}
	status.DatabaseOK = s.reader.PingContext(ctx) == nil
	return status
}
