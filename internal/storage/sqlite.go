package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tweetbot/internal/errs"
	logx "tweetbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db   *sql.DB
	path string
	log  logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Persistence("open", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Persistence("open", path, err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	// FULL: a committed cursor update must survive power loss.
	_, _ = db.Exec("PRAGMA synchronous = FULL")

	st := &sqliteStore{db: db, path: path, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, errs.Persistence("migrate", path, err)
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadCursor(ctx context.Context) (int, error) {
	var idx int64
	err := s.db.QueryRowContext(ctx, `SELECT idx FROM cursor WHERE id = 1`).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Persistence("load", s.path, err)
	}
	if idx < 0 {
		return 0, errs.Persistence("load", s.path, fmt.Errorf("negative cursor %d", idx))
	}
	return int(idx), nil
}

func (s *sqliteStore) SaveCursor(ctx context.Context, index int) error {
	if index < 0 {
		return errs.Persistence("save", s.path, fmt.Errorf("negative cursor %d", index))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cursor(id, idx, updated_at) VALUES(1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET idx = excluded.idx, updated_at = excluded.updated_at`,
		index, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errs.Persistence("save", s.path, err)
	}
	s.log.Debug("cursor saved", logx.Int("cursor", index), logx.String("path", s.path))
	return nil
}

func (s *sqliteStore) AppendPost(ctx context.Context, rec PostRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts(at, idx, post_id, tick_id) VALUES(?,?,?,?)`,
		rec.At.UTC().Format(time.RFC3339Nano), rec.Index, rec.PostID, nullStr(rec.TickID),
	)
	if err != nil {
		return errs.Persistence("append", s.path, err)
	}
	return nil
}

func (s *sqliteStore) LastPost(ctx context.Context) (PostRecord, bool, error) {
	var (
		at     string
		rec    PostRecord
		tickID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT at, idx, post_id, tick_id FROM posts ORDER BY seq DESC LIMIT 1`,
	).Scan(&at, &rec.Index, &rec.PostID, &tickID)
	if errors.Is(err, sql.ErrNoRows) {
		return PostRecord{}, false, nil
	}
	if err != nil {
		return PostRecord{}, false, errs.Persistence("read", s.path, err)
	}
	if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
		rec.At = t
	}
	rec.TickID = tickID.String
	return rec, true, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
