package watch

import (
	"github.com/achimid/web-page-notify-api/internal/model"
)

// ApplyResult folds one execution into the task's retained snapshot.
//
// HashChanged compares against the snapshot as it stood before this call,
// so the first successful execution always counts as changed. A failed
// execution keeps the previous fingerprint: change detection continues
// across outages instead of firing on the first fetch after one.
func ApplyResult(task *model.WatchTask, res model.ExecutionResult) {
	prev := task.LastExecution

	next := model.Snapshot{
		Success:   res.Success,
		CreatedAt: res.CreatedAt,
	}
	if res.Success {
		next.HashTarget = res.HashTarget
		next.ExtractedTarget = res.ExtractedTarget
		next.ExtractedContent = res.ExtractedContent
		next.HashChanged = prev.HashTarget != res.HashTarget
	} else {
		next.ErrorMessage = res.ErrorMessage
		next.HashTarget = prev.HashTarget
	}

	task.LastExecution = next
}
