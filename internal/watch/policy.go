package watch

import (
	"context"
	"log/slog"

	"github.com/achimid/web-page-notify-api/internal/model"
)

// Skip reasons, logged verbatim when a cycle decides not to notify.
const (
	SkipExecutionFailed = "execution failed"
	SkipHashNotChanged  = "hash not changed"
	SkipHashNotUnique   = "hash not unique"
	SkipNoSimilarity    = "no similarity with filters"
)

// HashCounter is the slice of the execution-history store the policy
// engine needs: how many other records share this url+hash.
type HashCounter interface {
	CountExecutionsByHash(ctx context.Context, url, hash, excludeID string) (int, error)
}

// Policy decides whether an execution warrants a notification.
type Policy struct {
	history HashCounter
	log     *slog.Logger
}

func NewPolicy(history HashCounter, log *slog.Logger) *Policy {
	if log == nil {
		log = slog.Default()
	}
	return &Policy{history: history, log: log}
}

// ShouldNotify evaluates the skip chain in fixed order against the task
// state of the current tick, short-circuiting on the first failing
// condition. The returned reason is empty when the task should notify.
//
// Call after ApplyResult: step two reads the freshly computed HashChanged.
func (p *Policy) ShouldNotify(ctx context.Context, task *model.WatchTask, owner model.Owner, res model.ExecutionResult) (bool, string) {
	if !res.Success {
		return false, SkipExecutionFailed
	}

	if task.Options.OnlyChanged && !task.LastExecution.HashChanged {
		return false, SkipHashNotChanged
	}

	if task.Options.OnlyUnique {
		n, err := p.history.CountExecutionsByHash(ctx, task.URL, res.HashTarget, res.ID)
		if err != nil {
			p.log.Warn("hash uniqueness check failed", slog.String("task", task.ID), slog.Any("err", err))
			return false, SkipHashNotUnique
		}
		if n > 0 {
			return false, SkipHashNotUnique
		}
	}

	if f := EffectiveFilter(*task, owner); !f.Empty() {
		if !Matches(res.ExtractedTarget, f.Words, f.Threshold) {
			return false, SkipNoSimilarity
		}
	}

	return true, ""
}
