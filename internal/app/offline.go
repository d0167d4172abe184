package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"tweetbot/internal/config"
	"tweetbot/internal/content"
	"tweetbot/internal/errs"
	"tweetbot/internal/storage"
	logx "tweetbot/pkg/logx"
)

// Report is what `status` prints.
type Report struct {
	ContentPath string
	Messages    int
	Cursor      int
	// CursorNote explains a cursor that a restart would reset to 0.
	CursorNote string
	Next       string
	LastPost   *storage.PostRecord
}

func openLocal(opts Options) (*config.Config, content.Sequence, storage.Store, error) {
	cfgm := config.NewManager(opts.ConfigPath, opts.EnvFile)
	cfg, err := cfgm.LoadLocal()
	if err != nil {
		return nil, nil, nil, err
	}
	seq, err := content.Load(cfg.Content.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := storage.Open(mapStorageConfig(cfg), logx.Nop())
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, seq, st, nil
}

// Inspect reads the content list and the persisted state without publishing.
func Inspect(ctx context.Context, opts Options) (Report, error) {
	cfg, seq, st, err := openLocal(opts)
	if err != nil {
		return Report{}, err
	}
	defer st.Close()

	r := Report{ContentPath: cfg.Content.Path, Messages: seq.Len()}
	idx, err := st.LoadCursor(ctx)
	switch {
	case err != nil:
		r.CursorNote = err.Error()
		idx = 0
	case idx < 0 || idx >= seq.Len():
		r.CursorNote = fmt.Sprintf("stored cursor %d is out of range", idx)
		idx = 0
	}
	r.Cursor = idx
	r.Next = seq.At(idx)

	if rec, ok, err := st.LastPost(ctx); err == nil && ok {
		r.LastPost = &rec
	}
	return r, nil
}

// WriteReport renders r for a terminal.
func WriteReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "content:   %s (%d messages)\n", r.ContentPath, r.Messages)
	fmt.Fprintf(w, "cursor:    %d\n", r.Cursor)
	if r.CursorNote != "" {
		fmt.Fprintf(w, "           (%s; the daemon will start from 0)\n", r.CursorNote)
	}
	fmt.Fprintf(w, "next:      %s\n", content.Preview(r.Next, 80))
	if r.LastPost != nil {
		fmt.Fprintf(w, "last post: %s #%d at %s\n", r.LastPost.PostID, r.LastPost.Index, r.LastPost.At.Format(time.RFC3339))
	}
}

// Reset persists index as the cursor. It must address a message in the
// current content list.
func Reset(ctx context.Context, opts Options, index int) error {
	_, seq, st, err := openLocal(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if index < 0 || index >= seq.Len() {
		return errs.Config("index", fmt.Errorf("%d is outside [0, %d)", index, seq.Len()))
	}
	return st.SaveCursor(ctx, index)
}
