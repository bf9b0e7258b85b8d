package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of background work, currently always a transcript
// ingestion. The row is the durable record; the queue message only carries
// the id and payload.
type Job struct {
	ID        int             `json:"id" gorm:"primaryKey"`
	TaskType  string          `json:"task_type" gorm:"index"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status" gorm:"index"`
	Error     *string         `json:"error,omitempty"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Job) TableName() string {
	return "ingest_jobs"
}

// JobRepository persists job rows across enqueue and worker processing.
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int) (*Job, error)
	UpdateStatus(ctx context.Context, id int, status JobStatus, errMsg *string) error
}
