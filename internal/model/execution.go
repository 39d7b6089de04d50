package model

import "time"

// ExecutionResult is the immutable outcome of one fetch attempt.
// On failure only ErrorMessage is populated beside the identity fields.
type ExecutionResult struct {
	ID               string    `json:"id"`
	TaskID           string    `json:"task_id,omitempty"`
	URL              string    `json:"url"`
	Success          bool      `json:"success"`
	HashTarget       string    `json:"hash_target,omitempty"`
	ExtractedTarget  string    `json:"extracted_target,omitempty"`
	ExtractedContent string    `json:"extracted_content,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
