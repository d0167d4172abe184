package config

type Config struct {
	Content   ContentConfig   `json:"content"`
	Storage   StorageConfig   `json:"storage"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Publisher PublisherConfig `json:"publisher"`
	Telegram  TelegramConfig  `json:"telegram,omitempty"`
	Logging   LoggingConfig   `json:"logging"`
	Debug     DebugConfig     `json:"debug,omitempty"`

	// Credentials are never read from the config file; they come from the
	// environment (or the env file) only.
	Credentials Credentials `json:"-"`
}

// ContentConfig points at the message list.
//
// The file is a JSON array of strings, or a YAML sequence of strings when the
// extension is .yaml/.yml. TWEETS_FILE overrides Path.
type ContentConfig struct {
	Path string `json:"path"`
	// Watch reloads the list when the file changes and restarts from the first
	// message. When false the list is loaded once per process.
	Watch bool `json:"watch,omitempty"`
}

// StorageConfig controls where the cursor lives.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./current_index.txt" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ScheduleConfig controls the tick cadence.
type ScheduleConfig struct {
	// Interval is a Go duration string (e.g. "8h", "90m").
	Interval string `json:"interval"`
	// Timezone only affects how the next tick time is reported.
	Timezone string `json:"timezone,omitempty"`
}

// PublisherConfig selects the publish capability.
//
// Driver values:
//   - "twitter": X/Twitter API v2 (OAuth 1.0a user context)
//   - "log": dry run, the outgoing text is only logged
type PublisherConfig struct {
	Driver   string `json:"driver"`
	Endpoint string `json:"endpoint,omitempty"`
	// Timeout bounds one publish call (Go duration string).
	Timeout string `json:"timeout,omitempty"`
}

// TelegramConfig configures operator alerts. Both Token and ChatID are
// required for alerts to be sent.
type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// DebugConfig controls the optional metrics + pprof HTTP listener.
//
// Prefer binding to localhost (e.g. "127.0.0.1:6060").
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}

// Credentials for the X/Twitter API. Do not log.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// Missing lists the environment variables that are unset.
func (c Credentials) Missing() []string {
	var out []string
	if c.APIKey == "" {
		out = append(out, EnvAPIKey)
	}
	if c.APISecret == "" {
		out = append(out, EnvAPISecret)
	}
	if c.AccessToken == "" {
		out = append(out, EnvAccessToken)
	}
	if c.AccessTokenSecret == "" {
		out = append(out, EnvAccessTokenSecret)
	}
	return out
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Content:   ContentConfig{Path: "tweets.json"},
		Storage:   StorageConfig{Driver: "file", Path: "current_index.txt"},
		Schedule:  ScheduleConfig{Interval: "8h"},
		Publisher: PublisherConfig{Driver: "twitter"},
		Logging: LoggingConfig{
			Level:    "info",
			Console:  true,
			File:     LoggingFile{Path: "./tweetbot.log"},
			Telegram: LoggingTelegram{MinLevel: "warn", RatePerSec: 1},
		},
		Debug: DebugConfig{Addr: "127.0.0.1:6060"},
	}
}
