package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/PayButton/paybutton-server/internal/pkg/dispatch"
)

// JobType defines the type of job
type JobType string

const (
	JobTypePaymentBatch JobType = "payment_batch"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
}

// PaymentBatchJobPayload carries one broadcast batch for trigger dispatch.
// Batches are processed at most once; a failed batch is never re-enqueued
// because the deliveries behind it may already have fired.
type PaymentBatchJobPayload struct {
	NetworkID uint                       `json:"network_id"`
	Batch     []dispatch.BroadcastTxData `json:"batch"`
}

// ToMap converts the payload to a map for storage
func (p PaymentBatchJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"network_id": p.NetworkID,
		"batch":      p.Batch,
	}
}

// PaymentBatchJobPayloadFromMap creates a payload from a map
func PaymentBatchJobPayloadFromMap(data map[string]interface{}) (*PaymentBatchJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PaymentBatchJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
}
