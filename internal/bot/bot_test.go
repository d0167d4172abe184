package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tweetbot/internal/content"
	"tweetbot/internal/errs"
	"tweetbot/internal/marker"
	"tweetbot/internal/publisher"
	"tweetbot/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	cursor  int
	loadErr error
	saveErr error
	saves   []int
	posts   []storage.PostRecord
}

func (s *memStore) LoadCursor(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return 0, s.loadErr
	}
	return s.cursor, nil
}

func (s *memStore) SaveCursor(_ context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, i)
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cursor = i
	return nil
}

func (s *memStore) AppendPost(_ context.Context, r storage.PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, r)
	return nil
}

func (s *memStore) LastPost(context.Context) (storage.PostRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.posts) == 0 {
		return storage.PostRecord{}, false, nil
	}
	return s.posts[len(s.posts)-1], true, nil
}

func (s *memStore) Close() error { return nil }

// fakePub records texts and fails while fail is set.
type fakePub struct {
	mu    sync.Mutex
	texts []string
	fail  error
}

func (p *fakePub) Publish(_ context.Context, text string) (publisher.PostID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return "", p.fail
	}
	p.texts = append(p.texts, text)
	return publisher.PostID(fmt.Sprintf("id-%d", len(p.texts))), nil
}

type countRecorder struct {
	published, failed, saveFailed, ticks, loads int
	lastKind                                    string
}

func (r *countRecorder) Published(int, time.Time) { r.published++ }
func (r *countRecorder) PublishFailed(k string) { r.failed++; r.lastKind = k }
func (r *countRecorder) CursorSaveFailed() { r.saveFailed++ }
func (r *countRecorder) TickDone(time.Duration) { r.ticks++ }
func (r *countRecorder) ContentLoaded(int, int, bool) { r.loads++ }

func newTestBot(t *testing.T, seq content.Sequence, st *memStore, pub *fakePub, rec Recorder) *Bot {
	t.Helper()
	b, err := New(Deps{
		Content:   seq,
		Store:     st,
		Publisher: pub,
		Mutator:   marker.NewSeeded(0),
		Recorder:  rec,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Init(context.Background())
	return b
}

func TestNewRejectsEmptyContent(t *testing.T) {
	t.Parallel()
	_, err := New(Deps{Store: &memStore{}, Publisher: &fakePub{}, Mutator: marker.New()})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestTickSequenceWrapsAndPersists(t *testing.T) {
	t.Parallel()
	st := &memStore{}
	pub := &fakePub{}
	b := newTestBot(t, content.Sequence{"a", "b"}, st, pub, nil)

	wantCursor := []int{1, 0, 1}
	wantRaw := []string{"a", "b", "a"}
	for i := range wantCursor {
		res, err := b.Tick(context.Background())
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if res.Next != wantCursor[i] || st.cursor != wantCursor[i] {
			t.Fatalf("tick %d: next=%d stored=%d, want %d", i, res.Next, st.cursor, wantCursor[i])
		}
		if got := marker.Strip(pub.texts[i]); got != wantRaw[i] {
			t.Fatalf("tick %d: published %q, want %q", i, got, wantRaw[i])
		}
		if pub.texts[i] == wantRaw[i] {
			t.Fatalf("tick %d: text was sent without a marker", i)
		}
	}
	if pub.texts[0] == pub.texts[2] {
		t.Fatalf("repeated message was not made distinct: %q", pub.texts[0])
	}
	if len(st.posts) != 3 || st.posts[2].PostID != "id-3" || st.posts[2].Index != 0 {
		t.Fatalf("post log = %+v", st.posts)
	}
}

func TestKSuccessesAdvanceModN(t *testing.T) {
	t.Parallel()
	seq := content.Sequence{"m0", "m1", "m2", "m3", "m4"}
	for _, k := range []int{0, 1, 4, 5, 7, 12} {
		st := &memStore{}
		b := newTestBot(t, seq, st, &fakePub{}, nil)
		for i := 0; i < k; i++ {
			if _, err := b.Tick(context.Background()); err != nil {
				t.Fatal(err)
			}
		}
		if b.Cursor() != k%len(seq) || st.cursor != k%len(seq) {
			t.Fatalf("k=%d: cursor=%d stored=%d", k, b.Cursor(), st.cursor)
		}
	}
}

func TestFailedTickKeepsCursor(t *testing.T) {
	t.Parallel()
	st := &memStore{cursor: 1}
	pub := &fakePub{fail: &publisher.Error{Kind: publisher.KindRateLimited, Status: 429}}
	rec := &countRecorder{}
	b := newTestBot(t, content.Sequence{"a", "b", "c"}, st, pub, rec)

	res, err := b.Tick(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if publisher.KindOf(err) != publisher.KindRateLimited {
		t.Fatalf("kind = %s", publisher.KindOf(err))
	}
	if res.Next != 1 || b.Cursor() != 1 || len(st.saves) != 0 {
		t.Fatalf("cursor moved: res=%+v cursor=%d saves=%v", res, b.Cursor(), st.saves)
	}
	if rec.failed != 1 || rec.lastKind != "rate_limited" || rec.ticks != 1 {
		t.Fatalf("recorder = %+v", rec)
	}
	s := b.Status()
	if s.Failures != 1 || s.LastError == "" || s.State != StateIdle {
		t.Fatalf("status = %+v", s)
	}

	// The same message goes out once the API recovers.
	pub.fail = nil
	if _, err := b.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if marker.Strip(pub.texts[0]) != "b" || b.Cursor() != 2 {
		t.Fatalf("after recovery: texts=%q cursor=%d", pub.texts, b.Cursor())
	}
	if b.Status().LastError != "" {
		t.Fatal("LastError not cleared after success")
	}
}

func TestDuplicateRejectionKeepsCursor(t *testing.T) {
	t.Parallel()
	pub := &fakePub{fail: &publisher.Error{Kind: publisher.KindDuplicate, Status: 403}}
	b := newTestBot(t, content.Sequence{"a", "b"}, &memStore{}, pub, nil)
	_, err := b.Tick(context.Background())
	if !publisher.IsDuplicate(err) || b.Cursor() != 0 {
		t.Fatalf("err=%v cursor=%d", err, b.Cursor())
	}
}

func TestInitDegradesToZero(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		store *memStore
		want  int
	}{
		{name: "fresh", store: &memStore{}, want: 0},
		{name: "valid", store: &memStore{cursor: 2}, want: 2},
		{name: "out of range", store: &memStore{cursor: 7}, want: 0},
		{name: "equal to length", store: &memStore{cursor: 3}, want: 0},
		{name: "negative", store: &memStore{cursor: -1}, want: 0},
		{name: "malformed", store: &memStore{loadErr: errs.Persistence("load", "x", errors.New("not an integer"))}, want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := New(Deps{Content: content.Sequence{"a", "b", "c"}, Store: tt.store, Publisher: &fakePub{}, Mutator: marker.New()})
			if err != nil {
				t.Fatal(err)
			}
			if got := b.Init(context.Background()); got != tt.want {
				t.Fatalf("Init = %d, want %d", got, tt.want)
			}
			if b.Peek() != []string{"a", "b", "c"}[tt.want] {
				t.Fatalf("Peek = %q", b.Peek())
			}
		})
	}
}

func TestFirstRunPublishesFirstMessage(t *testing.T) {
	t.Parallel()
	pub := &fakePub{}
	b := newTestBot(t, content.Sequence{"a", "b"}, &memStore{}, pub, nil)
	res, err := b.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	suffix := strings.TrimPrefix(pub.texts[0], "a")
	if res.Index != 0 || !strings.HasPrefix(pub.texts[0], "a") || suffix == "" || strings.IndexFunc(suffix, func(r rune) bool { return !marker.IsMarker(r) }) >= 0 {
		t.Fatalf("first publish = %q (index %d)", pub.texts[0], res.Index)
	}
}

func TestSaveFailureDoesNotStopLoop(t *testing.T) {
	t.Parallel()
	st := &memStore{saveErr: errors.New("disk full")}
	rec := &countRecorder{}
	pub := &fakePub{}
	b := newTestBot(t, content.Sequence{"a", "b", "c"}, st, pub, rec)

	for i := 0; i < 2; i++ {
		if _, err := b.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d returned %v; save failures must not fail the tick", i, err)
		}
	}
	if b.Cursor() != 2 || rec.saveFailed != 2 || rec.published != 2 {
		t.Fatalf("cursor=%d recorder=%+v", b.Cursor(), rec)
	}
	if marker.Strip(pub.texts[1]) != "b" {
		t.Fatalf("second publish = %q; in-memory cursor must advance", pub.texts[1])
	}
}

func TestPublishTimeoutApplied(t *testing.T) {
	t.Parallel()
	var deadline time.Time
	pub := publishFunc(func(ctx context.Context, _ string) (publisher.PostID, error) {
		deadline, _ = ctx.Deadline()
		return "1", nil
	})
	b, err := New(Deps{Content: content.Sequence{"a"}, Store: &memStore{}, Publisher: pub, Mutator: marker.New(), PublishTimeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if deadline.IsZero() {
		t.Fatal("publish context has no deadline")
	}
}

type publishFunc func(ctx context.Context, text string) (publisher.PostID, error)

func (f publishFunc) Publish(ctx context.Context, text string) (publisher.PostID, error) {
	return f(ctx, text)
}

func TestReplaceContentResetsCursor(t *testing.T) {
	t.Parallel()
	st := &memStore{cursor: 1}
	pub := &fakePub{}
	b := newTestBot(t, content.Sequence{"a", "b"}, st, pub, nil)

	if err := b.ReplaceContent(context.Background(), content.Sequence{"x", "y", "z"}); err != nil {
		t.Fatal(err)
	}
	if b.Cursor() != 0 || st.cursor != 0 || b.Status().Messages != 3 {
		t.Fatalf("cursor=%d stored=%d status=%+v", b.Cursor(), st.cursor, b.Status())
	}
	if _, err := b.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if marker.Strip(pub.texts[0]) != "x" {
		t.Fatalf("published %q after reload", pub.texts[0])
	}
	if err := b.ReplaceContent(context.Background(), nil); !errors.Is(err, ErrNoContent) {
		t.Fatalf("empty replace = %v", err)
	}
}

func TestStatusDuringTick(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	entered := make(chan struct{})
	pub := publishFunc(func(ctx context.Context, _ string) (publisher.PostID, error) {
		close(entered)
		<-release
		return "1", nil
	})
	b, err := New(Deps{Content: content.Sequence{"a"}, Store: &memStore{}, Publisher: pub, Mutator: marker.New()})
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = b.Tick(context.Background())
	}()
	<-entered
	if s := b.Status(); s.State != StatePublishing {
		t.Fatalf("state = %s during publish", s.State)
	}
	close(release)
	<-done
	if s := b.Status(); s.State != StateIdle || s.Ticks != 1 {
		t.Fatalf("status after tick = %+v", s)
	}
}
