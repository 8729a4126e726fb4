package job

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

var ErrNotFound = errors.New("job not found")

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job tracks an asynchronous batch of match requests.
type Job struct {
	ID                uuid.UUID  `json:"job_id"`
	Status            Status     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	TotalRequests     int        `json:"total_requests"`
	CompletedRequests int        `json:"completed_requests"`
	Results           []Result   `json:"results,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// Result is the outcome of one request in a batch. Exactly one of Report and
// Error is set.
type Result struct {
	RequestIndex int            `json:"request_index"`
	Report       *report.Report `json:"report,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
