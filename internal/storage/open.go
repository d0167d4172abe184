package storage

import (
	"fmt"
	"strings"

	"tweetbot/internal/errs"
	logx "tweetbot/pkg/logx"
)

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errs.Config("storage.path", fmt.Errorf("required"))
	}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errs.Config("storage.driver", fmt.Errorf("unknown storage driver: %s", driver))
	}
}
