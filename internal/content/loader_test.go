package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tweetbot/internal/errs"
	logx "tweetbot/pkg/logx"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadValid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		body string
		want Sequence
	}{
		{name: "json", file: "tweets.json", body: `["a","b","c"]`, want: Sequence{"a", "b", "c"}},
		{name: "json unicode", file: "ko.json", body: `["안녕하세요", "두번째"]`, want: Sequence{"안녕하세요", "두번째"}},
		{name: "yaml", file: "tweets.yaml", body: "- first\n- \"second: quoted\"\n- 2024\n", want: Sequence{"first", "second: quoted", "2024"}},
		{name: "yml multiline", file: "tweets.yml", body: "- |\n  line one\n  line two\n", want: Sequence{"line one\nline two\n"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Load(writeFile(t, dir, tt.file, tt.body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Load = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadRejects(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name  string
		file  string
		body  string
		empty bool
	}{
		{name: "empty array", file: "a.json", body: `[]`, empty: true},
		{name: "empty file", file: "b.json", body: ``, empty: true},
		{name: "null", file: "c.json", body: `null`, empty: true},
		{name: "object", file: "d.json", body: `{"a":"b"}`},
		{name: "numbers", file: "e.json", body: `[1,2]`},
		{name: "nested", file: "f.json", body: `[["a"]]`},
		{name: "trailing", file: "g.json", body: `["a"] ["b"]`},
		{name: "yaml map", file: "h.yaml", body: "a: b\n"},
		{name: "yaml nested", file: "i.yaml", body: "- [a, b]\n"},
		{name: "yaml null item", file: "j.yaml", body: "- a\n- ~\n"},
		{name: "yaml empty", file: "k.yaml", body: "", empty: true},
		{name: "json null item", file: "l.json", body: `["a", null]`},
		{name: "json blank item", file: "m.json", body: `[""]`},
		{name: "json whitespace item", file: "n.json", body: `["a", "  \n"]`},
		{name: "yaml blank item", file: "o.yaml", body: "- a\n- \"\"\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeFile(t, dir, tt.file, tt.body))
			if !errs.IsConfiguration(err) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if tt.empty && !errors.Is(err, errs.ErrEmptyContent) {
				t.Fatalf("expected ErrEmptyContent, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errs.IsConfiguration(err) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ConfigurationError wrapping ErrNotExist, got %v", err)
	}
}

func TestSequenceAtWraps(t *testing.T) {
	t.Parallel()
	s := Sequence{"a", "b", "c"}
	for i, want := range []string{"a", "b", "c", "a", "b"} {
		if got := s.At(i); got != want {
			t.Fatalf("At(%d) = %q, want %q", i, got, want)
		}
	}
	if got := s.At(-1); got != "c" {
		t.Fatalf("At(-1) = %q, want c", got)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()
	if got := Preview("hello", 10); got != "hello" {
		t.Fatalf("Preview short = %q", got)
	}
	if got := Preview("가나다라마", 2); got != "가나..." {
		t.Fatalf("Preview cut = %q", got)
	}
}

func TestWatcherReload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "tweets.json", `["a","b"]`)

	var got []Sequence
	w := NewWatcher(path, Sequence{"a", "b"}, logx.Nop(), func(s Sequence) { got = append(got, s) })

	if w.Reload() {
		t.Fatalf("unchanged content must not be published")
	}

	writeFile(t, dir, "tweets.json", `[]`)
	if w.Reload() {
		t.Fatalf("empty content must be rejected")
	}

	writeFile(t, dir, "tweets.json", `["x","y","z"]`)
	if !w.Reload() {
		t.Fatalf("changed content must be published")
	}
	if len(got) != 1 || !got[0].Equal(Sequence{"x", "y", "z"}) {
		t.Fatalf("onChange calls = %q", got)
	}
}

func TestWatcherRunPicksUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tweets.json", `["a"]`)

	var (
		mu  sync.Mutex
		got Sequence
	)
	changed := make(chan struct{}, 1)
	w := NewWatcher(path, Sequence{"a"}, logx.Nop(), func(s Sequence) {
		mu.Lock()
		got = s
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Keep rewriting until the watcher has registered and seen an event.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-changed:
			mu.Lock()
			defer mu.Unlock()
			if !got.Equal(Sequence{"b", "c"}) {
				t.Fatalf("reloaded = %q", got)
			}
			return
		case <-tick.C:
			writeFile(t, dir, "tweets.json", `["b","c"]`)
		case <-deadline:
			t.Fatal("watcher did not report the change")
		}
	}
}
