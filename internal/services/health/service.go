package health

import (
	"context"
	"time"

	"invoice-backend/internal/shared/telemetry"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	Version string
	DB      Pinger
	Now     func() time.Time
}

// NewService constructs a new health service.
func NewService(version string, db Pinger) *Service {
	return &Service{Version: version, DB: db, Now: time.Now}
}

// Status reports the service as healthy. A failing database is noted in the
// payload but does not change the overall status.
func (s *Service) Status(ctx context.Context) Status {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	out := Status{
		Status:    "healthy",
		Service:   telemetry.Service,
		Version:   s.Version,
		Timestamp: now().UTC().Format(time.RFC3339),
	}
	if s.DB != nil {
		out.Database = "ok"
		if err := s.DB.Ping(ctx); err != nil {
			out.Database = "unavailable"
			telemetry.Warn("health.db_unavailable", map[string]any{"error": err.Error()})
		}
	}
	return out
}
