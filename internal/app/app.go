package app

import (
	"context"
	"fmt"
	"time"

	"tweetbot/internal/bot"
	"tweetbot/internal/config"
	"tweetbot/internal/content"
	"tweetbot/internal/marker"
	"tweetbot/internal/observability/debug"
	"tweetbot/internal/observability/metrics"
	"tweetbot/internal/runtime/supervisor"
	"tweetbot/internal/storage"
	logx "tweetbot/pkg/logx"
	"tweetbot/pkg/systemd"
)

// Options locate the configuration.
type Options struct {
	ConfigPath string // optional; defaults only when empty
	EnvFile    string // optional; config.DefaultEnvFile when empty
}

type App struct {
	cfg *config.Config

	log  logx.Logger
	logs *logx.Service

	seq     content.Sequence
	store   storage.Store
	bot     *bot.Bot
	runner  *bot.Runner
	metrics *metrics.Metrics
	debug   *debug.Server

	sup *supervisor.Supervisor
}

// New loads and validates the configuration and builds every component.
// Configuration problems come back as *errs.ConfigurationError.
func New(opts Options) (*App, error) {
	cfgm := config.NewManager(opts.ConfigPath, opts.EnvFile)
	cfgm.SetLogger(logx.NewConsole("info").With(logx.String("comp", "config")))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// Alerts ride on the logx operator sink; a nil sender leaves it inert.
	var sender logx.Sender
	tg, err := mapNotifier(cfg)
	if err != nil {
		return nil, err
	}
	if tg != nil {
		sender = tg
	}
	logSvc, log := logx.New(mapLogConfig(cfg), sender)

	a, err := build(cfg, logSvc, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Config, logSvc *logx.Service, log logx.Logger) (*App, error) {
	seq, err := content.Load(cfg.Content.Path)
	if err != nil {
		return nil, err
	}

	pub, err := mapPublisher(cfg, log.With(logx.String("comp", "publisher")))
	if err != nil {
		return nil, err
	}
	publishTimeout, err := cfg.PublishTimeout()
	if err != nil {
		return nil, err
	}
	interval, err := cfg.Interval()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(mapStorageConfig(cfg), log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	b, err := bot.New(bot.Deps{
		Content:        seq,
		Store:          store,
		Publisher:      pub,
		Mutator:        marker.New(),
		Recorder:       m,
		Log:            log.With(logx.String("comp", "bot")),
		PublishTimeout: publishTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		seq:     seq,
		store:   store,
		bot:     b,
		metrics: m,
	}

	a.runner, err = bot.NewRunner(bot.RunnerConfig{
		Interval: interval,
		Location: loadLocation(cfg.Schedule.Timezone),
		OnTick:   a.onTick,
	}, b, log.With(logx.String("comp", "scheduler")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if cfg.Debug.Enabled {
		a.debug = debug.New(debug.Config{Addr: cfg.Debug.Addr}, m.Registry(), a.health,
			log.With(logx.String("comp", "debug")))
	}
	return a, nil
}

// Run starts the daemon and blocks until ctx is cancelled or a supervised
// goroutine fails. The first tick fires immediately.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	runCtx := a.sup.Context()

	cursor := a.bot.Init(runCtx)
	a.logStartup(cursor)

	if a.debug != nil {
		if err := a.debug.Start(runCtx); err != nil {
			a.log.Warn("debug server failed to start; continuing without it", logx.Err(err))
			a.debug = nil
		}
	}

	if a.cfg.Content.Watch {
		w := content.NewWatcher(a.cfg.Content.Path, a.seq, a.log.With(logx.String("comp", "content")), func(seq content.Sequence) {
			if err := a.bot.ReplaceContent(runCtx, seq); err != nil {
				a.log.Error("content reload not applied", logx.Err(err))
			}
		})
		a.sup.Go("content.watch", w.Run)
	}

	a.sup.Go0("systemd.watchdog", systemd.Watchdog)
	a.sup.Go("scheduler", a.runner.Run)

	if ok, err := systemd.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("systemd notified ready")
	}
	a.log.Info("app started")

	<-runCtx.Done()
	reason := StopSignal
	if ctx.Err() == nil {
		reason = StopFatalError
	}
	return a.stop(reason)
}

func (a *App) stop(reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = systemd.Stopping()
	a.sup.Cancel()

	// The scheduler lets an in-flight tick finish, so give it the publish
	// timeout plus some slack before giving up on it.
	publishTimeout, _ := a.cfg.PublishTimeout()
	drained := a.step("supervisor", publishTimeout+5*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	a.step("debug", time.Second, func(c context.Context) error {
		if a.debug != nil {
			a.debug.Stop(c)
		}
		return nil
	})
	a.closeStore(drained)

	err := a.sup.Err()
	if err != nil {
		a.log.Error("stopped with error", logx.Err(err))
	} else {
		a.log.Info("stopped")
	}
	_ = a.logs.Close()
	return err
}

// closeStore closes the store once nothing can write to it. A tick still in
// flight may be about to save the cursor, so the store is left open for it
// and the process exit ends it.
func (a *App) closeStore(drained bool) {
	if !drained {
		a.log.Error("a tick did not finish before shutdown; its cursor advance may not be persisted",
			logx.Int("cursor", a.bot.Cursor()))
		return
	}
	a.step("storage", time.Second, func(context.Context) error { return a.store.Close() })
}

// step runs one shutdown step with an upper bound so a stuck component
// cannot stall the whole stop. It reports whether fn returned in time.
func (a *App) step(name string, max time.Duration, fn func(context.Context) error) bool {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		return true
	case <-ctx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		return false
	}
}

func (a *App) logStartup(cursor int) {
	a.log.Info("configuration", config.Summary(a.cfg)...)

	fields := []logx.Field{logx.Int("messages", a.seq.Len()), logx.Int("cursor", cursor)}
	for i := 0; i < a.seq.Len() && i < 3; i++ {
		fields = append(fields, logx.String(fmt.Sprintf("item_%d", i), content.Preview(a.seq.At(i), 50)))
	}
	a.log.Info("content loaded", fields...)
	a.log.Info("next message", logx.Int("index", cursor), logx.String("preview", content.Preview(a.bot.Peek(), 50)))
}

func (a *App) onTick(res bot.Result, err error) {
	s := a.bot.Status()
	line := fmt.Sprintf("cursor %d/%d", s.Cursor, s.Messages)
	if err != nil {
		line += "; last tick failed"
	} else if res.PostID != "" {
		line += "; last post " + string(res.PostID)
	}
	if next := a.runner.Next(); !next.IsZero() {
		line += "; next " + next.Format(time.RFC3339)
	}
	_, _ = systemd.Status(line)
}

// health is served on /healthz.
func (a *App) health() any {
	return struct {
		bot.Status
		Goroutines supervisor.Counters `json:"goroutines"`
		NextTick   time.Time           `json:"next_tick,omitempty"`
	}{
		Status:     a.bot.Status(),
		Goroutines: a.sup.Counters(),
		NextTick:   a.runner.Next(),
	}
}
