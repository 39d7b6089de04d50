package model

import "time"

// ChannelKind tags a notification channel config. Each channel carries
// exactly one kind; dispatch routes it through a kind -> dispatcher lookup.
type ChannelKind string

const (
	ChannelTelegram  ChannelKind = "telegram"
	ChannelEmail     ChannelKind = "email"
	ChannelWebhook   ChannelKind = "webhook"
	ChannelWebsocket ChannelKind = "websocket"
)

// Channel is one notification target on a task or owner.
//
// Target depends on Kind: a chat ID for telegram, an address for email, a
// URL for webhook. Websocket pushes to all connected subscribers and
// ignores Target.
type Channel struct {
	Kind     ChannelKind `json:"kind"`
	Target   string      `json:"target,omitempty"`
	Template string      `json:"template,omitempty"`
}

// Filter gates notifications on similarity between a word list and the
// extracted page text. Threshold is normalized to [0,1].
type Filter struct {
	Words     []string `json:"words,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
}

func (f Filter) Empty() bool { return len(f.Words) == 0 }

// Options are the per-task policy switches.
type Options struct {
	// HitTime is the execution cadence in minutes, >= 1.
	HitTime      int  `json:"hit_time"`
	OnlyChanged  bool `json:"only_changed"`
	OnlyUnique   bool `json:"only_unique"`
	IsDependency bool `json:"is_dependency"`
}

// Snapshot is the only execution state retained on the task itself.
// HashChanged is always relative to the snapshot it replaced.
type Snapshot struct {
	Success          bool      `json:"success"`
	HashTarget       string    `json:"hash_target,omitempty"`
	ExtractedTarget  string    `json:"extracted_target,omitempty"`
	ExtractedContent string    `json:"extracted_content,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	HashChanged      bool      `json:"hash_changed"`
	CreatedAt        time.Time `json:"created_at"`
}

// WatchTask is one monitored target: a URL, a cadence and the notification
// policy applied to each execution.
type WatchTask struct {
	ID  string `json:"id"`
	URL string `json:"url"`

	// Selector narrows extraction to a CSS selection; empty means the
	// whole document body.
	Selector string `json:"selector,omitempty"`

	Options       Options   `json:"options"`
	Notifications []Channel `json:"notifications,omitempty"`
	Filter        Filter    `json:"filter,omitempty"`

	// OwnerID points at the Owner supplying fallback notifications and
	// filter; it is a lookup key, not ownership.
	OwnerID string `json:"owner_id,omitempty"`

	LastExecution Snapshot `json:"last_execution"`
}

// Owner supplies fallback notifications and filter for tasks that define
// none of their own.
type Owner struct {
	ID            string    `json:"id"`
	Notifications []Channel `json:"notifications,omitempty"`
	Filter        Filter    `json:"filter,omitempty"`
}
