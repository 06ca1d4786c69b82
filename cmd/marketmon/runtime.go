package main

import (
	"io"
	"os"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/abelbrown/marketmon/internal/config"
	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/fetch"
	"github.com/abelbrown/marketmon/internal/logging"
	"github.com/abelbrown/marketmon/internal/metrics"
	"github.com/abelbrown/marketmon/internal/otel"
	"github.com/abelbrown/marketmon/internal/store"
)

// runtime holds everything a controller needs, plus what must be closed
// when the command exits.
type runtime struct {
	cfg     *config.Config
	dataDir string

	client  *fetch.Client
	history *store.Store
	metrics *metrics.Metrics
	events  *otel.Logger
	ring    *otel.RingBuffer

	closers []func() error
}

// newRuntime opens the data directory, diagnostic log, event log and history.
// Headless commands log to stderr instead of the log file.
func newRuntime(cfg *config.Config, headless bool) (*runtime, error) {
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}

	rt := &runtime{cfg: cfg, dataDir: dir}

	if headless {
		logging.SetLogger(stderrLogger(os.Stderr, cfg.Verbose))
	} else if err := logging.Init(logging.Options{Dir: dir, Verbose: cfg.Verbose, Version: version}); err != nil {
		return nil, errors.Wrap(err, "init logging")
	}
	rt.closers = append(rt.closers, func() error { logging.Close(); return nil })

	events, closeEvents, err := otel.OpenFile(dir)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.events = events
	rt.ring = otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(rt.ring)
	rt.closers = append(rt.closers, closeEvents)

	historyPath, err := cfg.HistoryPath()
	if err != nil {
		rt.Close()
		return nil, err
	}
	st, err := store.Open(historyPath)
	if err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "open history")
	}
	rt.history = st
	rt.closers = append(rt.closers, st.Close)

	rt.metrics = metrics.New()
	rt.client = fetch.NewClient(fetch.Options{
		Endpoint:      cfg.Fetch.Endpoint,
		FallbackQuery: cfg.FallbackQuery,
		Timeout:       cfg.Fetch.Timeout,
		DelayMin:      cfg.Fetch.DelayMin,
		DelayMax:      cfg.Fetch.DelayMax,
		RateLimit:     rate.Limit(cfg.Fetch.RateLimit),
		RateBurst:     cfg.Fetch.RateBurst,
		UserAgent:     "marketmon/" + version,
	})

	logging.Info("runtime ready",
		"data_dir", dir,
		"history", historyPath,
		"endpoint", cfg.Fetch.Endpoint,
		"timeout", rt.client.Timeout(),
		"session", events.SessionID(),
	)
	return rt, nil
}

// stderrLogger logs warnings and errors to w, everything with verbose.
func stderrLogger(w io.Writer, verbose bool) *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return logging.New(zapcore.Lock(zapcore.AddSync(w)), level)
}

// newController builds a controller recording to metrics, events and history.
func (rt *runtime) newController(onChange func(controller.State)) *controller.Controller {
	return controller.New(rt.client, controller.Options{
		InitialQuery:  rt.cfg.InitialQuery,
		FallbackQuery: rt.cfg.FallbackQuery,
		TickInterval:  rt.cfg.TickInterval,
		MaxProducts:   rt.cfg.MaxProducts,
		Currency:      rt.cfg.Currency,
		Chaos:         rt.cfg.Chaos,
		Recorders: []controller.Recorder{
			rt.metrics,
			otel.NewCycleRecorder(rt.events),
			store.Recorder{Store: rt.history, Events: rt.events},
		},
		OnChange: onChange,
	})
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var err error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, rt.closers[i]())
	}
	rt.closers = nil
	return err
}
