package content

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "tweetbot/pkg/logx"
)

const (
	watchDebounce           = 250 * time.Millisecond
	watchRestartBackoffBase = 250 * time.Millisecond
	watchRestartBackoffMax  = 5 * time.Second
)

// Watcher reloads the content file on change and hands valid, different
// sequences to OnChange. Invalid or empty files are logged and ignored so the
// running sequence stays in place.
type Watcher struct {
	path     string
	log      logx.Logger
	onChange func(Sequence)

	mu   sync.Mutex
	last Sequence
}

// NewWatcher creates a watcher for path. current is the sequence already in
// use; reloads equal to it are not reported.
func NewWatcher(path string, current Sequence, log logx.Logger, onChange func(Sequence)) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{path: path, log: log, onChange: onChange, last: current}
}

// Reload re-reads the file once and reports whether a new sequence was published.
func (w *Watcher) Reload() bool {
	seq, err := Load(w.path)
	if err != nil {
		w.log.Warn("content reload rejected; keeping current list", logx.String("path", w.path), logx.Err(err))
		return false
	}

	w.mu.Lock()
	unchanged := seq.Equal(w.last)
	if !unchanged {
		w.last = seq
	}
	w.mu.Unlock()

	if unchanged {
		w.log.Debug("content unchanged; skipping reload", logx.String("path", w.path))
		return false
	}
	w.log.Info("content list changed", logx.String("path", w.path), logx.Int("messages", seq.Len()))
	if w.onChange != nil {
		w.onChange(seq)
	}
	return true
}

// Run watches the file's directory until ctx is done. The underlying
// fsnotify watcher is recreated with jittered backoff when it breaks.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	backoff := watchRestartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < watchRestartBackoffMax {
			backoff = min(backoff*2, watchRestartBackoffMax)
		}
		return wait
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() {
			if ctx.Err() == nil {
				w.Reload()
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fw.Add(dir); err != nil {
				_ = fw.Close()
			}
		}
		if err != nil {
			wait := nextWait()
			w.log.Warn("content watch init failed", logx.String("dir", dir), logx.Err(err), logx.Duration("backoff", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
				continue
			}
		}

		backoff = watchRestartBackoffBase
		w.log.Debug("content watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				// Editors often replace the file via rename, so match on basename.
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("content watch overflow; forcing reload", logx.Err(err))
					debounce()
					continue
				}
				w.log.Warn("content watch error", logx.String("dir", dir), logx.Err(err))
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return nil
		}
		wait := nextWait()
		w.log.Warn("content watcher stopped; restarting", logx.String("dir", dir), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
