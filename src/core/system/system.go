package system

import (
	"context"

	"courserag/src/ollama"
)

type ComponentStatus string

const (
	StatusUp   ComponentStatus = "up"
	StatusDown ComponentStatus = "down"
)

// HealthStatus is the aggregate health report: overall status plus the state
// of every backing component.
type HealthStatus struct {
	Status     string `json:"status"`
	Components struct {
		Postgres ComponentStatus `json:"postgres"`
		Weaviate ComponentStatus `json:"weaviate"`
		Ollama   ComponentStatus `json:"ollama"`
	} `json:"components"`
}

// DatabasePinger is the reachability surface of the relational store.
// Satisfied by *sql.DB.
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

// VectorLiveness is the reachability surface of the vector store.
type VectorLiveness interface {
	Live(ctx context.Context) (bool, error)
}

// ModelLister is the reachability surface of the generation service.
type ModelLister interface {
	Models(ctx context.Context) ([]ollama.ModelInfo, error)
}

type Service struct {
	db      DatabasePinger
	vectors VectorLiveness
	models  ModelLister
}

func NewService(db DatabasePinger, vectors VectorLiveness, models ModelLister) *Service {
	return &Service{
		db:      db,
		vectors: vectors,
		models:  models,
	}
}

// CheckHealth probes every backing component. A failed probe marks the
// component down and the overall status unhealthy; the report itself never
// errors so the endpoint can always render it.
func (s *Service) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{Status: "healthy"}
	status.Components.Postgres = StatusDown
	status.Components.Weaviate = StatusDown
	status.Components.Ollama = StatusDown

	if err := s.db.PingContext(ctx); err == nil {
		status.Components.Postgres = StatusUp
	}

	if live, err := s.vectors.Live(ctx); err == nil && live {
		status.Components.Weaviate = StatusUp
	}

	if _, err := s.models.Models(ctx); err == nil {
		status.Components.Ollama = StatusUp
	}

	if status.Components.Postgres == StatusDown ||
		status.Components.Weaviate == StatusDown ||
		status.Components.Ollama == StatusDown {
		status.Status = "unhealthy"
	}

	return status, nil
}
