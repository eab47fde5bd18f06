package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adsbglobe/internal/api"
	"adsbglobe/pkg/config"
	"adsbglobe/pkg/core"
	"adsbglobe/pkg/db"
	"adsbglobe/pkg/db/maintenance"
	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/logging"
	"adsbglobe/pkg/metrics"
	"adsbglobe/pkg/probe"
	"adsbglobe/pkg/render"
	"adsbglobe/pkg/request"
	"adsbglobe/pkg/sim"
	"adsbglobe/pkg/store"
	"adsbglobe/pkg/telemetry"
	"adsbglobe/pkg/telemetry/clickhouse"
	"adsbglobe/pkg/telemetry/mock"
	"adsbglobe/pkg/telemetry/replay"
	"adsbglobe/pkg/tracker"
	"adsbglobe/pkg/traffic"
	"adsbglobe/pkg/version"
)

const defaultConfigPath = "configs/adsbglobe.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the YAML config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("adsbglobe started", "version", version.Version, "provider", appCfg.Source.Provider)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, maintenance.Options{
		ImportPath: appCfg.DB.Import,
		Retain:     appCfg.DB.Retain.Std(),
	}); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	tr := tracker.New()
	collector, err := metrics.New(nil)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := metrics.RegisterTracker(nil, tr); err != nil {
		return fmt.Errorf("failed to register source metrics: %w", err)
	}

	src, err := initSource(appCfg, st, tr)
	if err != nil {
		return err
	}
	if err := runProbes(ctx, src, dbConn); err != nil {
		return err
	}
	fetcher := wrapFetcher(appCfg, src, st, collector, tr)

	hub := render.NewHub()
	defer hub.Close()

	engine := traffic.NewEngine(trafficConfig(appCfg), hub)
	clock := sim.NewClock(appCfg.Clock.Start, appCfg.Clock.Step.Std())
	ingest := core.NewIngestScheduler(fetcher, clock)
	loop := core.NewLoop(appCfg.Ticker.FrameLoop.Std(), ingest, engine, collector, hub)

	regions, err := geo.NewRegionIndex(appCfg.Regions.Paths...)
	if err != nil {
		slog.Warn("Region lookup disabled", "error", err)
		regions = nil
	} else if regions.Len() > 0 {
		slog.Info("Regions loaded", "count", regions.Len())
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Start(ctx)
	}()

	srvErr := runServer(ctx, appCfg, api.NewServer(appCfg.Server.Address,
		api.NewTrafficHandler(engine, regions),
		api.NewStatsHandler(tr, engine, loop, st, hub),
		api.NewClockHandler(clock),
		hub,
		collector.Handler(),
		cancel,
	))

	cancel()
	<-loopDone
	slog.Info("Waiting for in-flight fetch")
	ingest.Wait()
	return srvErr
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// source is a configured telemetry provider.
type source struct {
	name    string
	fetcher telemetry.Fetcher
	pinger  probe.Pinger // nil when the provider cannot be probed
}

func initSource(appCfg *config.Config, st *store.SQLiteStore, tr *tracker.Tracker) (source, error) {
	sc := appCfg.Source
	switch sc.Provider {
	case clickhouse.SourceName:
		client := request.New(clickhouse.SourceName, tr, request.ClientConfig{
			Retries:   appCfg.Request.Retries,
			Timeout:   appCfg.Request.Timeout.Std(),
			BaseDelay: appCfg.Request.Backoff.BaseDelay.Std(),
			MaxDelay:  appCfg.Request.Backoff.MaxDelay.Std(),
		})
		ch := clickhouse.New(client, tr, clickhouse.Config{
			URL:      sc.ClickHouse.URL,
			User:     sc.ClickHouse.User,
			Password: sc.ClickHouse.Password,
			Database: sc.ClickHouse.Database,
			Table:    sc.ClickHouse.Table,
			RowLimit: sc.RowLimit,
		})
		return source{name: clickhouse.SourceName, fetcher: ch, pinger: ch}, nil

	case replay.SourceName:
		rp := replay.New(st, sc.RowLimit)
		return source{name: replay.SourceName, fetcher: rp, pinger: rp}, nil

	case mock.SourceName:
		m := mock.New(mock.Config{
			Aircraft: sc.Mock.Aircraft,
			Seed:     sc.Mock.Seed,
			Center:   geo.Coordinate{Latitude: sc.Mock.CenterLat, Longitude: sc.Mock.CenterLon},
			Radius:   float64(sc.Mock.Radius),
			SpeedKts: sc.Mock.Speed,
			Epoch:    appCfg.Clock.Start,
		}, sc.RowLimit)
		return source{name: mock.SourceName, fetcher: m}, nil
	}
	return source{}, fmt.Errorf("unknown source provider %q", sc.Provider)
}

// wrapFetcher layers recording and instrumentation over the source.
// Replayed windows are never recorded again.
func wrapFetcher(appCfg *config.Config, src source, st *store.SQLiteStore, c *metrics.Collector, tr *tracker.Tracker) telemetry.Fetcher {
	var records store.RecordStore
	if appCfg.Source.Record && src.name != replay.SourceName {
		records = st
		slog.Info("Recording fetched windows", "db", appCfg.DB.Path)
	}
	f := store.NewRecorder(src.fetcher, src.name, records, st)
	return metrics.InstrumentFetcher(f, src.name, c, tr)
}

func runProbes(ctx context.Context, src source, dbConn *db.DB) error {
	probes := []probe.Probe{
		{Name: "Archive database", Check: dbConn.PingContext, Critical: true},
	}
	if src.pinger != nil {
		// The loop treats an unreachable source as empty windows, so it
		// does not block startup.
		probes = append(probes, probe.ForPinger("Source "+src.name, src.pinger, false))
	}
	return probe.AnalyzeResults(probe.Run(ctx, probes))
}

func trafficConfig(appCfg *config.Config) traffic.Config {
	tc := appCfg.Traffic
	return traffic.Config{
		MaxAircraft:        tc.MaxAircraft,
		Staleness:          tc.Staleness.Std(),
		HistorySize:        tc.HistorySize,
		EarthRadius:        tc.EarthRadius,
		SpawnAltitude:      tc.SpawnAltitude,
		InitialGroundSpeed: tc.InitialGroundSpeed,
	}
}

// runServer serves until a signal or ctx cancellation. POST /api/shutdown
// cancels ctx.
func runServer(ctx context.Context, appCfg *config.Config, srv *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	ln, err := api.Listen(srv, appCfg.Server.MaxConnections)
	if err != nil {
		return err
	}
	return runServerLifecycle(ctx, srv, ln, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, ln net.Listener, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", ln.Addr().String())
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
