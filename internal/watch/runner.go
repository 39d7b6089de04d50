package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/achimid/web-page-notify-api/internal/fetch"
	"github.com/achimid/web-page-notify-api/internal/model"
)

// Runner executes one fetch/extract attempt for a task.
type Runner struct {
	fetcher fetch.Fetcher
	log     *slog.Logger
}

func NewRunner(fetcher fetch.Fetcher, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{fetcher: fetcher, log: log}
}

// Run never returns an error: ordinary fetch failures come back as a
// failed ExecutionResult carrying the error message.
func (r *Runner) Run(ctx context.Context, task *model.WatchTask) model.ExecutionResult {
	res := model.ExecutionResult{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		URL:       task.URL,
		CreatedAt: time.Now(),
	}

	page, err := r.fetcher.Fetch(ctx, task.URL, task.Selector)
	if err != nil {
		res.ErrorMessage = err.Error()
		r.log.Warn("execution failed", slog.String("task", task.ID), slog.String("url", task.URL), slog.Any("err", err))
		return res
	}

	res.Success = true
	res.HashTarget = page.HashTarget
	res.ExtractedTarget = page.ExtractedTarget
	res.ExtractedContent = page.ExtractedContent
	return res
}
