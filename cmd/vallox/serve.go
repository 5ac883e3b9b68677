// cmd/vallox/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/vallox-bridge/internal/config"
	"github.com/tamzrod/vallox-bridge/internal/metrics"
	"github.com/tamzrod/vallox-bridge/internal/poller"
	"github.com/tamzrod/vallox-bridge/internal/publish"
	"github.com/tamzrod/vallox-bridge/internal/status"
	"github.com/tamzrod/vallox-bridge/internal/trace"
	"github.com/tamzrod/vallox-bridge/internal/writer"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the device and export snapshots until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			return serve(ctx, cfg, logger())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log = log.With().Str("unit", cfg.Device.ID).Logger()

	// --------------------
	// Telegram trace (optional)
	// --------------------

	var rec trace.Recorder
	if cfg.Trace != nil {
		fr, err := trace.NewFileRecorder(cfg.Trace.Path)
		if err != nil {
			return err
		}
		defer fr.Close()
		rec = fr
	}

	// --------------------
	// Device pipeline
	// --------------------

	p, _, tr, err := poller.Build(cfg, log, rec)
	if err != nil {
		return err
	}

	// One probe so an unreachable device shows up at start. Polling runs
	// regardless and every poll dials afresh.
	if err := tr.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("device unreachable at startup, will keep polling")
	} else {
		_ = tr.Disconnect()
	}

	grp, ctx := errgroup.WithContext(ctx)

	// --------------------
	// Metrics (optional)
	// --------------------

	var m *metrics.Metrics
	if cfg.Metrics != nil {
		reg := prometheus.NewRegistry()
		m, err = metrics.New(reg)
		if err != nil {
			return err
		}
		p.Subscribe(m.Observe)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		grp.Go(func() error {
			log.Info().Str("listen", srv.Addr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		grp.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	// --------------------
	// Export + health orchestration
	// --------------------

	out := make(chan poller.PollResult)
	forwardWrites(ctx, p, out)

	var (
		dataWriter   writer.Writer
		statusWriter writer.StatusWriter
	)
	if cfg.Export != nil {
		plan, err := writer.BuildPlan(cfg, p.Table())
		if err != nil {
			return err
		}
		clients, closeWriters, err := writer.BuildEndpointClients(plan, time.Duration(cfg.Export.TimeoutMs)*time.Millisecond)
		if err != nil {
			return err
		}
		defer closeWriters()

		dataWriter = writer.New(plan, clients)
		statusWriter, _ = writer.NewDeviceStatusWriter(plan, clients)
	}

	// --------------------
	// NATS (optional)
	// --------------------

	if cfg.NATS != nil {
		nc, err := publish.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Close()

		snaps, err := publish.New(nc, cfg.NATS.Subject, log)
		if err != nil {
			return err
		}
		p.Subscribe(snaps.Observe)

		if cfg.NATS.CommandSubject != "" {
			var w publish.Writer = p
			if m != nil {
				w = countingWriter{p: p, m: m, unit: cfg.Device.ID}
			}
			sub, err := publish.ServeCommands(ctx, nc, cfg.NATS.CommandSubject, w, log)
			if err != nil {
				return err
			}
			defer func() { _ = sub.Unsubscribe() }()
		}
	}

	grp.Go(func() error {
		orchestrate(ctx, log, cfg.Device.Name, out, dataWriter, statusWriter)
		return nil
	})
	grp.Go(func() error {
		p.Run(ctx, out)
		return nil
	})

	log.Info().Dur("interval", time.Duration(cfg.Device.PollIntervalMs)*time.Millisecond).Msg("polling")
	return grp.Wait()
}

// orchestrate owns the health state and delivers every poll result.
// Write notifications go to the export only. dataWriter and statusWriter
// may be nil.
func orchestrate(
	ctx context.Context,
	log zerolog.Logger,
	name string,
	out <-chan poller.PollResult,
	dataWriter writer.Writer,
	statusWriter writer.StatusWriter,
) {
	tracker := status.NewTracker(name)

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	writeStatus := func(s status.Snapshot) {
		if statusWriter == nil {
			return
		}
		if err := statusWriter.WriteStatus(s); err != nil {
			log.Warn().Err(err).Msg("status write failed")
		}
	}

	// Full block write on start (identity re-assert).
	writeStatus(tracker.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-out:
			if dataWriter != nil {
				if err := dataWriter.Write(res); err != nil {
					log.Warn().Err(err).Msg("export failed")
				}
			}
			if res.Written != "" {
				continue
			}

			prev := tracker.Snapshot().Health
			snap, changed := tracker.Observe(res.Err, res.Stale, res.Took, res.Pending)
			if snap.Health != prev {
				log.Info().Uint16("health", snap.Health).Uint16("code", snap.LastErrorCode).Msg("health changed")
			}
			if changed {
				writeStatus(snap)
			}

		case <-secTicker.C:
			if snap, changed := tracker.Tick(); changed {
				writeStatus(snap)
			}
		}
	}
}

// forwardWrites routes write notifications into out so the export shows a
// written value before the next poll. It blocks the writer until delivered.
func forwardWrites(ctx context.Context, p *poller.Poller, out chan<- poller.PollResult) {
	p.Subscribe(func(res poller.PollResult) {
		if res.Written == "" {
			return
		}
		select {
		case out <- res:
		case <-ctx.Done():
		}
	})
}

// countingWriter records write outcomes on the way to the poller.
type countingWriter struct {
	p    *poller.Poller
	m    *metrics.Metrics
	unit string
}

func (w countingWriter) Write(ctx context.Context, name string, value any) bool {
	ok := w.p.Write(ctx, name, value)
	w.m.ObserveWrite(w.unit, ok)
	return ok
}

func (w countingWriter) TurnOn(ctx context.Context, name string) bool {
	ok := w.p.TurnOn(ctx, name)
	w.m.ObserveWrite(w.unit, ok)
	return ok
}

func (w countingWriter) TurnOff(ctx context.Context, name string) bool {
	ok := w.p.TurnOff(ctx, name)
	w.m.ObserveWrite(w.unit, ok)
	return ok
}
