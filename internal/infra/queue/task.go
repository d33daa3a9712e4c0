package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskTypeDispatch is the only task type the reminder core enqueues: one
// notification attempt for one reminder on one date.
const TaskTypeDispatch = "reminder_dispatch"

// Task is the queued unit of work.
type Task struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTask wraps a payload value into a queueable task.
func NewTask(taskType string, payload interface{}, maxAttempts int) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	return &Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// FailedTask is the dead-letter record of a task that exhausted its
// retry budget.
type FailedTask struct {
	Task     *Task     `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
