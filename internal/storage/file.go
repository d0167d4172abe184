package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"tweetbot/internal/errs"
	logx "tweetbot/pkg/logx"
)

// fileStore is the dependency-free backend.
//
// Files:
//   - <path>                 (cursor, decimal integer + newline)
//   - <prefix>.posts.jsonl   (append-only JSON Lines)
//
// The cursor is written to <path>.tmp, fsynced and renamed over <path>,
// then the directory is fsynced, so a crash leaves either the old or the
// new value.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	cursorPath string
	postsPath  string
	postsFile  *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	prefix := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Persistence("open", dir, err)
	}

	postsPath := prefix + ".posts.jsonl"
	pf, err := os.OpenFile(postsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errs.Persistence("open", postsPath, err)
	}

	return &fileStore{
		log:        log,
		cursorPath: path,
		postsPath:  postsPath,
		postsFile:  pf,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postsFile == nil {
		return nil
	}
	err := s.postsFile.Close()
	s.postsFile = nil
	return err
}

func (s *fileStore) LoadCursor(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.cursorPath)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Persistence("load", s.cursorPath, err)
	}
	return parseCursor(s.cursorPath, string(b))
}

func parseCursor(path, raw string) (int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.Persistence("load", path, fmt.Errorf("malformed cursor %q", v))
	}
	if n < 0 {
		return 0, errs.Persistence("load", path, fmt.Errorf("negative cursor %d", n))
	}
	return n, nil
}

func (s *fileStore) SaveCursor(ctx context.Context, index int) error {
	_ = ctx
	if index < 0 {
		return errs.Persistence("save", s.cursorPath, fmt.Errorf("negative cursor %d", index))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.cursorPath, []byte(strconv.Itoa(index)+"\n")); err != nil {
		return errs.Persistence("save", s.cursorPath, err)
	}
	s.log.Debug("cursor saved", logx.Int("cursor", index), logx.String("path", s.cursorPath))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(path))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems refuse fsync on directories; the rename is already done.
	_ = d.Sync()
	return nil
}

func (s *fileStore) AppendPost(ctx context.Context, rec PostRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postsFile == nil {
		return errs.Persistence("append", s.postsPath, ErrClosed)
	}
	if err := json.NewEncoder(s.postsFile).Encode(rec); err != nil {
		return errs.Persistence("append", s.postsPath, err)
	}
	return nil
}

func (s *fileStore) LastPost(ctx context.Context) (PostRecord, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.postsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return PostRecord{}, false, nil
	}
	if err != nil {
		return PostRecord{}, false, errs.Persistence("read", s.postsPath, err)
	}
	defer f.Close()

	var (
		last  PostRecord
		found bool
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r PostRecord
		// Skip torn or foreign lines.
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		last, found = r, true
	}
	if err := sc.Err(); err != nil {
		return PostRecord{}, false, errs.Persistence("read", s.postsPath, err)
	}
	return last, found, nil
}
