package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"courserag/src/core/ingest"
)

const (
	// TopicJobs is the queue all background jobs flow through.
	TopicJobs = "jobs"

	TaskTypeIngest = "ingest_transcript"
)

// IngestPayload carries one transcript through the queue.
type IngestPayload struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
	Replace  bool   `json:"replace"`
}

type JobService struct {
	publisher message.Publisher
	repo      JobRepository
	logger    watermill.LoggerAdapter
	ingester  *ingest.Service
}

func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
	ingester *ingest.Service,
) *JobService {
	return &JobService{
		publisher: publisher,
		repo:      repo,
		logger:    logger,
		ingester:  ingester,
	}
}

type jobMessage struct {
	JobID    int             `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

// EnqueueIngest creates an ingestion job and publishes it to the queue.
func (s *JobService) EnqueueIngest(ctx context.Context, filename string, content []byte, replace bool) (*Job, error) {
	payload, err := json.Marshal(IngestPayload{
		Filename: filename,
		Content:  content,
		Replace:  replace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingest payload: %w", err)
	}

	job, err := s.repo.Create(ctx, TaskTypeIngest, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	jobMsg := jobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	}

	msgPayload, err := json.Marshal(jobMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish(TopicJobs, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// ProcessJobMessage processes a job message from the queue
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg jobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := context.Background()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %d", jobMsg.JobID)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	err = s.processJob(ctx, job)

	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	return nil
}

func (s *JobService) processJob(ctx context.Context, job *Job) error {
	switch job.TaskType {
	case TaskTypeIngest:
		var payload IngestPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal ingest payload: %w", err)
		}

		result, err := s.ingester.IngestFile(ctx, payload.Filename, payload.Content, payload.Replace)
		if err != nil {
			return err
		}

		s.logger.Info("Ingest job executed", watermill.LogFields{
			"job_id":  job.ID,
			"title":   result.Title,
			"chunks":  result.Chunks,
			"skipped": result.Skipped,
		})
		return nil
	default:
		return fmt.Errorf("unknown task type: %s", job.TaskType)
	}
}
