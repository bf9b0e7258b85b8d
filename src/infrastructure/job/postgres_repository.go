package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// PostgresJobRepository stores job rows in the ingest_jobs table.
type PostgresJobRepository struct {
	db *gorm.DB
}

func NewPostgresJobRepository(db *gorm.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	j := &Job{
		TaskType: taskType,
		Payload:  payload,
		Status:   JobStatusPending,
	}

	if err := r.db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, fmt.Errorf("failed to create job row: %w", err)
	}

	return j, nil
}

// Get returns nil, nil when the id is unknown so the worker can treat a
// missing row as a stale queue message.
func (r *PostgresJobRepository) Get(ctx context.Context, id int) (*Job, error) {
	var j Job
	err := r.db.WithContext(ctx).First(&j, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load job %d: %w", id, err)
	}

	return &j, nil
}

// UpdateStatus transitions a job. Moving to running also counts the attempt,
// so retried jobs are visible in the row.
func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id int, status JobStatus, errMsg *string) error {
	updates := map[string]interface{}{
		"status": status,
		"error":  errMsg,
	}
	if status == JobStatusRunning {
		updates["attempts"] = gorm.Expr("attempts + 1")
	}

	result := r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update job %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %d not found", id)
	}

	return nil
}
