package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Store is the persistence API used by the bot.
type Store interface {
	// LoadCursor returns the persisted cursor, or (0, nil) if none was ever
	// saved. A malformed or unreadable value yields 0 and a
	// *errs.PersistenceError; callers degrade to 0.
	LoadCursor(ctx context.Context) (int, error)
	// SaveCursor overwrites the cursor and returns only once the value is
	// durable.
	SaveCursor(ctx context.Context, index int) error
	// AppendPost records a successful publish.
	AppendPost(ctx context.Context, rec PostRecord) error
	// LastPost returns the most recent record, if any.
	LastPost(ctx context.Context) (PostRecord, bool, error)
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "file": plain files next to Path
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// PostRecord describes one successful publish. Keep it compact and schema-stable.
type PostRecord struct {
	At     time.Time `json:"at"`
	Index  int       `json:"index"`
	PostID string    `json:"post_id"`
	TickID string    `json:"tick_id,omitempty"`
}
