package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Retcom59/heritage-app/internal/api"
	"github.com/Retcom59/heritage-app/pkg/cache"
	"github.com/Retcom59/heritage-app/pkg/catalog"
	"github.com/Retcom59/heritage-app/pkg/config"
	"github.com/Retcom59/heritage-app/pkg/db"
	"github.com/Retcom59/heritage-app/pkg/explore"
	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/location"
	"github.com/Retcom59/heritage-app/pkg/logging"
	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/osrm"
	"github.com/Retcom59/heritage-app/pkg/probe"
	"github.com/Retcom59/heritage-app/pkg/request"
	"github.com/Retcom59/heritage-app/pkg/route"
	"github.com/Retcom59/heritage-app/pkg/tracker"
	"github.com/Retcom59/heritage-app/pkg/version"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// Env file is optional; real env vars win
	_ = godotenv.Load()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault("configs/heritage.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/heritage.yaml")
		return
	}

	if err := run(context.Background(), "configs/heritage.yaml"); err != nil {
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

	slog.Info("Heritage Explorer started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.PruneCache(time.Duration(appCfg.DB.CacheTTL)); err != nil {
		slog.Error("Cache pruning failed", "error", err)
	}

	tr := tracker.New()
	reqClient := request.New(cache.NewSQLiteCache(dbConn), tr, request.ClientConfig{
		Retries:   appCfg.Request.Retries,
		Timeout:   time.Duration(appCfg.Request.Timeout),
		BaseDelay: time.Duration(appCfg.Request.Backoff.BaseDelay),
		MaxDelay:  time.Duration(appCfg.Request.Backoff.MaxDelay),
	})

	catClient := catalog.New(reqClient, appCfg.Catalog)
	planner := osrm.New(reqClient, appCfg.Routing, tr)
	routes := route.NewManager(planner)

	src := &clientSource{}
	loc := location.NewTracker(src)

	session := explore.New(catClient, routes, loc, appCfg.Map)
	src.SetNotify(session.EmitLocate)

	// Collaborators may come up after us, so neither check is critical
	if err := probe.Run(ctx, []probe.Probe{
		{
			Name: "Catalog Service",
			Check: func(c context.Context) error {
				_, err := catClient.Sites(c, catalog.Query{Limit: 1})
				return err
			},
		},
		{
			Name: "Routing Service",
			Check: func(c context.Context) error {
				_, err := planner.Plan(c,
					geo.Point{Lat: appCfg.Map.CenterLat, Lon: appCfg.Map.CenterLon},
					geo.Point{Lat: appCfg.Map.CenterLat + 0.01, Lon: appCfg.Map.CenterLon + 0.01},
					model.ModeCar)
				return err
			},
		},
	}); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, appCfg, session, loc, tr)
}

// clientSource implements location.Source for browser-fed geolocation:
// watching means telling connected clients to start streaming signals,
// which arrive back through the device endpoints.
type clientSource struct {
	mu     sync.Mutex
	notify func()
}

func (s *clientSource) SetNotify(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

func (s *clientSource) Watch(ctx context.Context) error {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()

	// The actual geolocation watch runs in the browser; fixes arrive
	// back through the device endpoints.
	slog.Info("Location acquisition requested from clients")
	if fn != nil {
		fn()
	}
	return nil
}

func runServer(ctx context.Context, cfg *config.Config, session *explore.Session, loc *location.Tracker, tr *tracker.Tracker) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Address,
		api.NewSessionHandler(session),
		api.NewRouteHandler(session),
		api.NewRoamingHandler(session),
		api.NewDeviceHandler(loc),
		api.NewStatsHandler(tr),
		api.NewEventsHandler(session),
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
