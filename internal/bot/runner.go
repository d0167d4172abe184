package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "tweetbot/pkg/logx"
)

// Ticker is what the Runner drives; *Bot implements it.
type Ticker interface {
	Tick(ctx context.Context) (Result, error)
}

// RunnerConfig controls the cadence.
type RunnerConfig struct {
	Interval time.Duration
	Location *time.Location // only affects reported times; default Local
	// OnTick is called after every tick (tests, systemd status).
	OnTick func(Result, error)
}

// Runner fires one tick immediately and then one every Interval.
//
// The cron job is wrapped with SkipIfStillRunning and the immediate tick
// goes through the same wrapped job, so at most one tick is in flight.
type Runner struct {
	cfg RunnerConfig
	t   Ticker
	log logx.Logger

	mu sync.Mutex
	c  *cron.Cron
	id cron.EntryID
}

func NewRunner(cfg RunnerConfig, t Ticker, log logx.Logger) (*Runner, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("runner: interval must be > 0")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cfg: cfg, t: t, log: log}, nil
}

// Run blocks until ctx is done. An in-flight tick is allowed to finish
// before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	cl := cronLogger{log: r.log}
	c := cron.New(cron.WithLocation(r.cfg.Location), cron.WithLogger(cl))
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		r.tick(ctx)
	}))
	r.mu.Lock()
	r.c = c
	r.id = c.Schedule(cron.Every(r.cfg.Interval), job)
	r.mu.Unlock()
	c.Start()
	r.log.Info("scheduler started", logx.Duration("interval", r.cfg.Interval), logx.String("tz", r.cfg.Location.String()))

	// First tick fires right away and is awaited.
	job.Run()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	r.log.Info("scheduler stopped")
	return nil
}

// Next reports when the next scheduled tick fires (zero before Run).
func (r *Runner) Next() time.Time {
	r.mu.Lock()
	c, id := r.c, r.id
	r.mu.Unlock()
	if c == nil {
		return time.Time{}
	}
	return c.Entry(id).Next
}

func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := r.t.Tick(ctx)
	fields := []logx.Field{logx.Duration("took", res.Elapsed)}
	if next := r.Next(); !next.IsZero() {
		fields = append(fields, logx.Time("next_tick", next.In(r.cfg.Location)))
	}
	if err != nil {
		// Details were logged by the ticker; this is the boundary.
		r.log.Debug("tick failed", append(fields, logx.Err(err))...)
	} else {
		r.log.Info("tick done", fields...)
	}
	if r.cfg.OnTick != nil {
		r.cfg.OnTick(res, err)
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
