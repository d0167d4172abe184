package app

import (
	"strings"
	"time"

	"tweetbot/internal/config"
	"tweetbot/internal/notify"
	"tweetbot/internal/publisher"
	"tweetbot/internal/storage"
	logx "tweetbot/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: cfg.BusyTimeout(),
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Operator: logx.OperatorConfig{
			Enabled:    cfg.Logging.Telegram.Enabled && cfg.AlertsEnabled(),
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// mapNotifier returns nil when alerts are not configured.
func mapNotifier(cfg *config.Config) (*notify.Telegram, error) {
	if !cfg.AlertsEnabled() {
		return nil, nil
	}
	chatID, err := cfg.TelegramChatID()
	if err != nil {
		return nil, err
	}
	return notify.NewTelegram(notify.Config{
		Token:    cfg.Telegram.Token,
		ChatID:   chatID,
		ThreadID: cfg.Telegram.ThreadID,
		Timeout:  10 * time.Second,
	})
}

func mapPublisher(cfg *config.Config, log logx.Logger) (publisher.Publisher, error) {
	if cfg.PublisherDriver() == "log" {
		return publisher.NewDryRun(log), nil
	}
	timeout, err := cfg.PublishTimeout()
	if err != nil {
		return nil, err
	}
	return publisher.NewTwitter(publisher.TwitterConfig{
		APIKey:            cfg.Credentials.APIKey,
		APISecret:         cfg.Credentials.APISecret,
		AccessToken:       cfg.Credentials.AccessToken,
		AccessTokenSecret: cfg.Credentials.AccessTokenSecret,
		Endpoint:          cfg.Publisher.Endpoint,
		Timeout:           timeout,
	})
}

func loadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
