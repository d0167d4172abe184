package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tweetbot/internal/content"
	"tweetbot/internal/publisher"
	"tweetbot/internal/storage"
	logx "tweetbot/pkg/logx"
)

// State of the tick handler.
type State string

const (
	StateIdle       State = "idle"
	StatePublishing State = "publishing"
)

// Mutator makes an outgoing text byte-distinct from earlier ones.
type Mutator interface {
	Mark(text string) string
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Content   content.Sequence
	Store     storage.Store
	Publisher publisher.Publisher
	Mutator   Mutator
	Recorder  Recorder
	Log       logx.Logger

	// PublishTimeout bounds one publish call; 0 leaves it to the client.
	PublishTimeout time.Duration
	// Now is swapped in tests.
	Now func() time.Time
}

// Result describes one completed tick.
type Result struct {
	TickID  string
	Index   int // cursor before the tick
	Next    int // cursor after the tick
	PostID  publisher.PostID
	Text    string // the marked text that was sent
	Elapsed time.Duration
}

// Status is a point-in-time snapshot for health endpoints and logs.
type Status struct {
	State       State     `json:"state"`
	Cursor      int       `json:"cursor"`
	Messages    int       `json:"messages"`
	Ticks       uint64    `json:"ticks"`
	Failures    uint64    `json:"failures"`
	LastPostID  string    `json:"last_post_id,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Bot owns the content sequence and the cursor. All mutation happens under
// mu, which a tick holds for its whole duration.
type Bot struct {
	mu sync.Mutex

	seq    content.Sequence
	cursor int

	store   storage.Store
	pub     publisher.Publisher
	mutator Mutator
	rec     Recorder
	log     logx.Logger
	timeout time.Duration
	now     func() time.Time

	// guarded by smu so Status never waits on an in-flight publish
	smu    sync.Mutex
	status Status
}

var ErrNoContent = errors.New("bot: content list is empty")

// New validates deps and returns a Bot at cursor 0. Call Init to restore the
// persisted cursor.
func New(d Deps) (*Bot, error) {
	if d.Content.Len() == 0 {
		return nil, ErrNoContent
	}
	if d.Store == nil || d.Publisher == nil || d.Mutator == nil {
		return nil, errors.New("bot: store, publisher and mutator are required")
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	b := &Bot{
		seq:     d.Content,
		store:   d.Store,
		pub:     d.Publisher,
		mutator: d.Mutator,
		rec:     d.Recorder,
		log:     d.Log,
		timeout: d.PublishTimeout,
		now:     d.Now,
	}
	b.status = Status{State: StateIdle, Messages: d.Content.Len()}
	return b, nil
}

// Init loads the persisted cursor. Unreadable, malformed or out-of-range
// values reset the cursor to 0; they are never fatal.
func (b *Bot) Init(ctx context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, err := b.store.LoadCursor(ctx)
	if err != nil {
		b.log.Warn("cursor load failed; starting from the first message", logx.Err(err))
		idx = 0
	}
	if idx < 0 || idx >= b.seq.Len() {
		b.log.Warn("persisted cursor out of range; starting from the first message",
			logx.Int("cursor", idx), logx.Int("messages", b.seq.Len()))
		idx = 0
	}
	b.cursor = idx
	b.rec.ContentLoaded(b.seq.Len(), idx, false)
	b.setStatus(func(s *Status) { s.Cursor = idx; s.Messages = b.seq.Len() })
	return idx
}

// Cursor returns the index of the next message.
func (b *Bot) Cursor() int {
	b.smu.Lock()
	defer b.smu.Unlock()
	return b.status.Cursor
}

// Status returns a snapshot without waiting for an in-flight tick.
func (b *Bot) Status() Status {
	b.smu.Lock()
	defer b.smu.Unlock()
	return b.status
}

func (b *Bot) setStatus(fn func(s *Status)) {
	b.smu.Lock()
	fn(&b.status)
	b.smu.Unlock()
}

// Tick runs one publish attempt. On failure the cursor is unchanged and the
// error is returned for the caller to log; Tick itself never panics on
// runtime failures.
func (b *Bot) Tick(ctx context.Context) (res Result, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.now()
	res = Result{TickID: uuid.NewString(), Index: b.cursor, Next: b.cursor}
	log := b.log.With(logx.String("tick", res.TickID), logx.Int("cursor", res.Index))

	b.setStatus(func(s *Status) { s.State = StatePublishing; s.Ticks++ })
	defer func() {
		res.Elapsed = b.now().Sub(start)
		b.rec.TickDone(res.Elapsed)
		b.setStatus(func(s *Status) { s.State = StateIdle })
	}()

	raw := b.seq.At(b.cursor)
	res.Text = b.mutator.Mark(raw)
	log.Info("publishing", logx.String("preview", content.Preview(raw, 50)))

	pctx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	id, err := b.pub.Publish(pctx, res.Text)
	if err != nil {
		b.recordFailure(log, err)
		return res, fmt.Errorf("tick %s: %w", res.TickID, err)
	}

	res.PostID = id
	res.Next = (b.cursor + 1) % b.seq.Len()
	b.cursor = res.Next
	at := b.now()
	b.rec.Published(res.Next, at)
	b.setStatus(func(s *Status) {
		s.Cursor = res.Next
		s.LastPostID = string(id)
		s.LastSuccess = at
		s.LastError = ""
	})
	log.Info("published", logx.String("post_id", string(id)), logx.Int("next", res.Next))

	// The post is out; persistence problems from here on are loud but not fatal.
	// A shutdown signal must not cancel the write that records it.
	sctx := context.WithoutCancel(ctx)
	if err := b.store.SaveCursor(sctx, res.Next); err != nil {
		b.rec.CursorSaveFailed()
		log.Error("cursor save failed; the same message may be posted again after a restart",
			logx.Int("next", res.Next), logx.Err(err))
	}
	if err := b.store.AppendPost(sctx, storage.PostRecord{At: at, Index: res.Index, PostID: string(id), TickID: res.TickID}); err != nil {
		log.Warn("post log append failed", logx.Err(err))
	}
	return res, nil
}

func (b *Bot) recordFailure(log logx.Logger, err error) {
	kind := publisher.KindOf(err)
	b.rec.PublishFailed(string(kind))
	b.setStatus(func(s *Status) { s.Failures++; s.LastError = err.Error() })

	fields := []logx.Field{logx.String("kind", string(kind)), logx.Err(err)}
	var pe *publisher.Error
	if errors.As(err, &pe) {
		if pe.Status != 0 {
			fields = append(fields, logx.Int("http_status", pe.Status))
		}
		if !pe.ResetAt.IsZero() {
			fields = append(fields, logx.Time("rate_limit_reset", pe.ResetAt))
		}
	}
	switch kind {
	case publisher.KindDuplicate:
		log.Error("publish rejected as duplicate despite marker; cursor kept", fields...)
	case publisher.KindRateLimited:
		log.Warn("publish rate limited; retrying next tick", fields...)
	default:
		log.Error("publish failed; retrying next tick", fields...)
	}
}

// ReplaceContent swaps in a new sequence and restarts from its first message.
// It waits for an in-flight tick to finish.
func (b *Bot) ReplaceContent(ctx context.Context, seq content.Sequence) error {
	if seq.Len() == 0 {
		return ErrNoContent
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq = seq
	b.cursor = 0
	b.rec.ContentLoaded(seq.Len(), 0, true)
	b.setStatus(func(s *Status) { s.Cursor = 0; s.Messages = seq.Len() })
	b.log.Info("new content list; starting from the first message", logx.Int("messages", seq.Len()))

	if err := b.store.SaveCursor(context.WithoutCancel(ctx), 0); err != nil {
		b.rec.CursorSaveFailed()
		b.log.Error("cursor save failed after content reload", logx.Err(err))
		return err
	}
	return nil
}

// Peek returns the raw message the next tick will publish.
func (b *Bot) Peek() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq.At(b.cursor)
}
