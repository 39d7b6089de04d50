package storage

import (
	"context"
	"errors"
	"time"

	"github.com/achimid/web-page-notify-api/internal/model"
)

var ErrNotFound = errors.New("not found")

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API used by the scheduler, the policy engine
// and the one-off execution path.
type Store interface {
	// LoadEligibleTasks returns every task that should run on its own
	// recurring schedule (tasks flagged as dependencies are excluded).
	LoadEligibleTasks(ctx context.Context) ([]model.WatchTask, error)
	GetTask(ctx context.Context, id string) (model.WatchTask, error)
	SaveTask(ctx context.Context, t *model.WatchTask) error

	GetOwner(ctx context.Context, id string) (model.Owner, error)
	SaveOwner(ctx context.Context, o *model.Owner) error

	AppendExecution(ctx context.Context, e model.ExecutionResult) error
	// CountExecutionsByHash counts prior executions of url that produced
	// hash, excluding the record identified by excludeID.
	CountExecutionsByHash(ctx context.Context, url, hash, excludeID string) (int, error)

	Close() error
}
