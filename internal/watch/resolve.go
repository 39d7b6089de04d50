package watch

import (
	"github.com/achimid/web-page-notify-api/internal/model"
)

// firstNonEmpty returns local when it has elements, otherwise fallback.
// Both the channel list and the filter word list fall back to the owner
// the same way; the rule lives in one place so the two cannot drift.
func firstNonEmpty[T any](local, fallback []T) []T {
	if len(local) > 0 {
		return local
	}
	return fallback
}

// EffectiveChannels resolves the channels a notification goes to: the
// task's own list, else the owner's.
func EffectiveChannels(task model.WatchTask, owner model.Owner) []model.Channel {
	return firstNonEmpty(task.Notifications, owner.Notifications)
}

// EffectiveFilter resolves the similarity filter: the task's own when it
// has words, else the owner's, else no filter.
func EffectiveFilter(task model.WatchTask, owner model.Owner) model.Filter {
	words := firstNonEmpty(task.Filter.Words, owner.Filter.Words)
	switch {
	case len(words) == 0:
		return model.Filter{}
	case !task.Filter.Empty():
		return task.Filter
	default:
		return owner.Filter
	}
}
