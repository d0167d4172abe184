package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tweetbot/internal/errs"
)

const (
	DefaultInterval       = 8 * time.Hour
	DefaultPublishTimeout = 30 * time.Second
	DefaultBusyTimeout    = 5 * time.Second
)

// Validate checks the config and returns a *errs.ConfigurationError for the
// first problem found.
func (c *Config) Validate() error { return c.validate(true) }

// ValidateLocal is Validate without the credential check, for commands that
// only touch the content file and the store.
func (c *Config) ValidateLocal() error { return c.validate(false) }

func (c *Config) validate(needCreds bool) error {
	if strings.TrimSpace(c.Content.Path) == "" {
		return errs.Config("content.path", errors.New("required"))
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "file", "sqlite", "sqlite3":
	default:
		return errs.Config("storage.driver", fmt.Errorf("unknown driver %q", c.Storage.Driver))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errs.Config("storage.path", errors.New("required"))
	}
	if _, err := durationField("storage.busy_timeout", c.Storage.BusyTimeout, DefaultBusyTimeout); err != nil {
		return err
	}

	if _, err := c.Interval(); err != nil {
		return err
	}
	if _, err := c.PublishTimeout(); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Schedule.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return errs.Config("schedule.timezone", fmt.Errorf("invalid %q: %w", tz, err))
		}
	}

	switch c.PublisherDriver() {
	case "twitter":
		if !needCreds {
			break
		}
		if missing := c.Credentials.Missing(); len(missing) > 0 {
			return errs.Config("credentials", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
		}
	case "log":
	default:
		return errs.Config("publisher.driver", fmt.Errorf("unknown driver %q", c.Publisher.Driver))
	}

	if strings.TrimSpace(c.Telegram.ChatID) != "" {
		if _, err := c.TelegramChatID(); err != nil {
			return err
		}
	}
	return nil
}

// Interval returns the tick period (default 8h).
func (c *Config) Interval() (time.Duration, error) {
	return durationField("schedule.interval", c.Schedule.Interval, DefaultInterval)
}

// PublishTimeout bounds a single publish call (default 30s).
func (c *Config) PublishTimeout() (time.Duration, error) {
	return durationField("publisher.timeout", c.Publisher.Timeout, DefaultPublishTimeout)
}

// BusyTimeout is the sqlite busy timeout (default 5s).
func (c *Config) BusyTimeout() time.Duration {
	d, err := durationField("storage.busy_timeout", c.Storage.BusyTimeout, DefaultBusyTimeout)
	if err != nil {
		return DefaultBusyTimeout
	}
	return d
}

func (c *Config) PublisherDriver() string {
	d := strings.ToLower(strings.TrimSpace(c.Publisher.Driver))
	if d == "" {
		return "twitter"
	}
	return d
}

// TelegramChatID parses telegram.chat_id; 0 means unset.
func (c *Config) TelegramChatID() (int64, error) {
	s := strings.TrimSpace(c.Telegram.ChatID)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.Config("telegram.chat_id", fmt.Errorf("invalid chat id %q", s))
	}
	return id, nil
}

// AlertsEnabled reports whether operator alerts can be delivered.
func (c *Config) AlertsEnabled() bool {
	return strings.TrimSpace(c.Telegram.Token) != "" && strings.TrimSpace(c.Telegram.ChatID) != ""
}

// durationField parses a Go duration string for key. Empty means def; zero
// and negative values are rejected.
func durationField(key, raw string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errs.Config(key, fmt.Errorf("invalid duration %q", raw))
	}
	if d <= 0 {
		return 0, errs.Config(key, fmt.Errorf("must be > 0, got %s", d))
	}
	return d, nil
}
