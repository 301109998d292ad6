// Command orbitview runs the trajectory viewer engine: it polls the
// orbit-propagation backend for the selected satellite, keeps an
// interpolatable position timeline live, drives the playback clock, and
// broadcasts scene operations to SSE subscribers.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/config"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/observability"
	"github.com/signalsfoundry/orbitview/internal/orbit"
	"github.com/signalsfoundry/orbitview/internal/scenefeed"
)

// Config carries the resolved engine settings.
type Config struct {
	BackendURL     string
	Satellite      string
	FeedAddress    string
	MetricsAddress string
	TrackWindow    time.Duration
	TrackStep      time.Duration
	PollInterval   time.Duration
	FrameInterval  time.Duration
}

// selectRetryInterval is how long the engine waits before retrying a failed
// initial selection; the backend may simply not be up yet.
const selectRetryInterval = 10 * time.Second

func main() {
	backendURL := flag.String("backend-url", "", "Base URL of the orbit-propagation backend")
	satellite := flag.String("satellite", "", "Satellite id to track at startup")
	feedAddr := flag.String("feed-addr", "", "HTTP address the scene feed listens on")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics")
	configDir := flag.String("config-dir", "", "Directory searched for orbitview.json")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	settings, err := config.Load(*configDir)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}
	// Flags that were actually set override file and environment values.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend-url":
			settings.Set(config.KeyBackendURL, *backendURL)
		case "satellite":
			settings.Set(config.KeySatellite, *satellite)
		case "feed-addr":
			settings.Set(config.KeyFeedAddr, *feedAddr)
		case "metrics-addr":
			settings.Set(config.KeyMetricsAddr, *metricsAddr)
		}
	})

	cfg := Config{
		BackendURL:     settings.GetString(config.KeyBackendURL),
		Satellite:      settings.GetString(config.KeySatellite),
		FeedAddress:    settings.GetString(config.KeyFeedAddr),
		MetricsAddress: settings.GetString(config.KeyMetricsAddr),
		TrackWindow:    time.Duration(settings.GetInt(config.KeyTrackMinutes)) * time.Minute,
		TrackStep:      time.Duration(settings.GetInt(config.KeyTrackStepS)) * time.Second,
		PollInterval:   settings.GetDuration(config.KeyPollInterval),
		FrameInterval:  time.Duration(settings.GetInt(config.KeyFrameMs)) * time.Millisecond,
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.FeedAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for scene feed", logging.String("addr", cfg.FeedAddress), logging.String("error", err.Error()))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(stopCtx, cfg, log, lis); err != nil {
		log.Error(ctx, "engine exited with error", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

// run wires the engine over an already-bound feed listener and blocks until
// ctx is cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	collector, err := observability.NewViewerCollector(nil)
	if err != nil {
		return err
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)

	client := orbit.NewClient(cfg.BackendURL, orbit.WithLogger(log))
	feed := scenefeed.New(log)

	viewer := core.NewViewer(client, feed, log,
		core.WithMetricsRecorder(collector),
		core.WithPollInterval(cfg.PollInterval),
		core.WithTrackWindow(cfg.TrackWindow, cfg.TrackStep),
	)
	defer viewer.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /scene/events", feed)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	feedSrv := &http.Server{Handler: mux}
	go func() {
		if err := feedSrv.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error(context.Background(), "scene feed server exited", logging.String("error", err.Error()))
		}
	}()
	log.Info(ctx, "serving scene feed",
		logging.String("addr", lis.Addr().String()),
		logging.String("backend", cfg.BackendURL))

	go viewer.Clock().Run(ctx, cfg.FrameInterval)

	selectAndPlay(ctx, viewer, cfg.Satellite, log)

	<-ctx.Done()
	log.Info(context.Background(), "shutting down engine")
	viewer.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = feedSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// selectAndPlay selects the startup satellite, retrying while the backend is
// unreachable. A selection failure is recoverable: the scene stays cleared
// and the engine keeps serving until a retry succeeds or ctx ends.
func selectAndPlay(ctx context.Context, viewer *core.Viewer, satellite string, log logging.Logger) {
	for {
		err := viewer.Select(ctx, satellite)
		if err == nil {
			viewer.Clock().Play()
			return
		}
		log.Warn(ctx, "satellite selection failed; retrying",
			logging.String("satellite", satellite),
			logging.Duration("retry_in", selectRetryInterval),
			logging.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(selectRetryInterval):
		}
	}
}

func serveMetrics(addr string, collector *observability.ViewerCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
