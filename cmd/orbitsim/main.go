// Command orbitsim runs the development orbit-propagation backend: the
// JSON/HTTP API the viewer engine polls (ping, catalog, now, track, elements,
// passes, orbit path), propagated with SGP4 from catalog or upstream TLEs.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/orbitview/catalog"
	"github.com/signalsfoundry/orbitview/internal/config"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/observability"
	"github.com/signalsfoundry/orbitview/internal/propagator"
)

// Config carries the resolved backend settings.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	CatalogPath    string
	TLETTL         time.Duration
}

func main() {
	listenAddr := flag.String("listen-addr", "", "HTTP address the backend API listens on")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics")
	catalogPath := flag.String("catalog", "", "Path to a JSON satellite catalog (empty: built-in registry)")
	configDir := flag.String("config-dir", "", "Directory searched for orbitview.json")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	settings, err := config.Load(*configDir)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen-addr":
			settings.Set(config.KeyListenAddr, *listenAddr)
		case "metrics-addr":
			settings.Set(config.KeyMetricsAddr, *metricsAddr)
		case "catalog":
			settings.Set(config.KeyCatalogPath, *catalogPath)
		}
	})

	cfg := Config{
		ListenAddress:  settings.GetString(config.KeyListenAddr),
		MetricsAddress: settings.GetString(config.KeyMetricsAddr),
		CatalogPath:    settings.GetString(config.KeyCatalogPath),
		TLETTL:         settings.GetDuration(config.KeyTLETTL),
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen", logging.String("addr", cfg.ListenAddress), logging.String("error", err.Error()))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(stopCtx, cfg, log, lis); err != nil {
		log.Error(ctx, "backend exited with error", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

// run serves the backend API on an already-bound listener until ctx ends.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	collector, err := observability.NewBackendCollector(nil)
	if err != nil {
		return err
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)

	store := loadCatalogStore(log, cfg.CatalogPath)
	tles := propagator.NewTLESource(
		propagator.WithTTL(cfg.TLETTL),
		propagator.WithTLELogger(log),
		propagator.WithTLEMetrics(collector),
	)
	server := propagator.NewServer(store, tles, log,
		propagator.WithBackendMetrics(collector),
	)

	apiSrv := &http.Server{Handler: server.Handler()}
	go func() {
		if err := apiSrv.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error(context.Background(), "API server exited", logging.String("error", err.Error()))
		}
	}()
	log.Info(ctx, "serving propagation backend",
		logging.String("addr", lis.Addr().String()),
		logging.Int("satellites", store.Len()))

	<-ctx.Done()
	log.Info(context.Background(), "shutting down backend")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// loadCatalogStore reads the catalog file when configured, falling back to
// the built-in registry on any failure so the backend always comes up.
func loadCatalogStore(log logging.Logger, path string) *catalog.Store {
	if path == "" {
		return catalog.Default()
	}
	store, err := catalog.LoadCatalogFile(path)
	if err != nil {
		log.Warn(context.Background(), "falling back to built-in catalog",
			logging.String("path", path),
			logging.String("error", err.Error()))
		return catalog.Default()
	}
	log.Info(context.Background(), "loaded satellite catalog",
		logging.String("path", path),
		logging.Int("count", store.Len()))
	return store
}

func serveMetrics(addr string, collector *observability.BackendCollector, log logging.Logger) *http.Server {
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
