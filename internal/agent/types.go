// internal/agent/types.go
package agent

import (
	"time"

	"github.com/google/uuid"
)

// TaskType identifies what kind of work a task carries. Rotation and
// selection strategies are configured per task type.
type TaskType string

const (
	TaskLinkFinder TaskType = "link_finder"
	TaskPageFetch  TaskType = "page_fetch"
)

// Task is an immutable unit of work handed to an agent. Because tasks are
// never mutated after creation, attempt bookkeeping lives on the Result
// (Attempts), not here.
type Task struct {
	ID               string            `json:"id"`
	Type             TaskType          `json:"type"`
	TargetURL        string            `json:"target_url"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	RegionPreference string            `json:"region_preference,omitempty"`

	// MaxRetries caps how many times the executor retries after the first
	// attempt. The running count is reported as Result.Attempts.
	MaxRetries int `json:"max_retries"`
}

// NewTask creates a task with a generated id.
func NewTask(taskType TaskType, targetURL string) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		TargetURL:  targetURL,
		MaxRetries: 2,
	}
}

// Result is produced once per task execution. Recoverable failures are
// reported here rather than as errors.
type Result struct {
	TaskID        string                 `json:"task_id"`
	Success       bool                   `json:"success"`
	Data          interface{}            `json:"data,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
	RegionUsed    string                 `json:"region_used,omitempty"`
	ExecutionMs   int64                  `json:"execution_ms"`

	// Attempts is how many executions the task took, including the
	// successful or final failing one.
	Attempts int `json:"attempts"`
	ChainPayload interface{} `json:"chain_payload,omitempty"`
	CompletedAt  time.Time   `json:"completed_at"`
}

// Link is one discovered hyperlink with its derived display name.
type Link struct {
	URL          string    `json:"url"`
	Name         string    `json:"name"`
	SourceURL    string    `json:"source_url"`
	Region       string    `json:"region,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}
