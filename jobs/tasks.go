// Package jobs holds background task definitions and the Asynq worker
// plumbing.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOpenShiftScan is the task type for the overdue open-shift scan.
	TaskTypeOpenShiftScan = "shift:scan_open"
)

// OpenShiftScanPayload configures one scan run.
type OpenShiftScanPayload struct {
	MaxAgeMinutes int `json:"max_age_minutes"`
}

// NewOpenShiftScanTask constructs an Asynq task for the overdue scan.
func NewOpenShiftScanTask(payload OpenShiftScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOpenShiftScan, data), nil
}
