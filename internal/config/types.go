package config

// Config is the whole daemon configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Fetch    FetchConfig    `json:"fetch,omitempty"`
	HTTP     HTTPConfig     `json:"http,omitempty"`
	Watcher  WatcherConfig  `json:"watcher"`
	Dispatch DispatchConfig `json:"dispatch,omitempty"`
	Telegram TelegramConfig `json:"telegram,omitempty"`
	Email    EmailConfig    `json:"email,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"` // DEBUG|INFO|WARN|ERROR
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the sqlite persistence layer.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// FetchConfig controls the default fetch/extract collaborator.
type FetchConfig struct {
	Timeout   string `json:"timeout,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// HTTPConfig controls the one-off execution API and the websocket endpoint.
type HTTPConfig struct {
	Enabled      bool   `json:"enabled"`
	Addr         string `json:"addr,omitempty"` // default: "127.0.0.1:8080"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
}

// WatcherConfig controls the recurring watch scheduler.
//
// Enabled gates whether watch schedules are registered at all; the
// WATCHD_ENABLE_JOB environment variable overrides it when set. Seed
// optionally points at a JSON file of tasks/owners loaded into storage at
// boot.
type WatcherConfig struct {
	Enabled bool   `json:"enabled"`
	Seed    string `json:"seed,omitempty"`
}

// DispatchConfig controls outbound notification delivery.
type DispatchConfig struct {
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
	WebhookTimeout string `json:"webhook_timeout,omitempty"`
}

type TelegramConfig struct {
	Token         string `json:"token,omitempty"`
	DefaultChatID int64  `json:"default_chat_id,omitempty"`
}

type EmailConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from,omitempty"`
}
