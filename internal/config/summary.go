package config

import (
	"strings"

	logx "tweetbot/pkg/logx"
)

// Summary returns safe structured fields describing cfg for the startup log.
// Secrets (API credentials, telegram token) are reported as set/unset only.
func Summary(cfg *Config) []logx.Field {
	if cfg == nil {
		return nil
	}
	interval, _ := cfg.Interval()
	return []logx.Field{
		logx.String("content.path", cfg.Content.Path),
		logx.Bool("content.watch", cfg.Content.Watch),
		logx.String("storage.driver", strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))),
		logx.String("storage.path", cfg.Storage.Path),
		logx.Duration("schedule.interval", interval),
		logx.String("publisher.driver", cfg.PublisherDriver()),
		logx.Int("credentials.missing", len(cfg.Credentials.Missing())),
		logx.Bool("telegram.alerts", cfg.AlertsEnabled()),
		logx.String("logging.level", cfg.Logging.Level),
		logx.Bool("logging.file", cfg.Logging.File.Enabled),
		logx.Bool("debug.enabled", cfg.Debug.Enabled),
	}
}
