package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/kimhons/lumina-ai-sub002"
	"github.com/kimhons/lumina-ai-sub002/internal/archive"
	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/internal/config"
	"github.com/kimhons/lumina-ai-sub002/internal/engine"
	"github.com/kimhons/lumina-ai-sub002/internal/events"
	"github.com/kimhons/lumina-ai-sub002/internal/monitor"
	"github.com/kimhons/lumina-ai-sub002/internal/server"
	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

type service struct {
	cfg        *config.Config
	store      *store.Store
	bus        *events.Bus
	engine     *engine.Engine
	archiver   *archive.BlobArchiver
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrConnectStore  = errors.New("failed to connect to store")
	ErrCreateArchive = errors.New("failed to open archive bucket")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &service{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *service) run() error {
	if err := s.initializeStore(); err != nil {
		return err
	}

	if err := s.initializeEngine(); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *service) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Workflow service starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Redis.Addr),
		slog.Int("redis_db", s.cfg.Redis.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.String("collab_base_url", s.cfg.CollabBaseURL))
}

func (s *service) initializeStore() error {
	s.store = store.New(s.cfg.Redis)
	if err := s.store.Ping(context.Background()); err != nil {
		_ = s.store.Close()
		return fmt.Errorf("%w: %w", ErrConnectStore, err)
	}
	return nil
}

func (s *service) initializeEngine() error {
	s.bus = events.NewBus()

	var collaborator collab.Collaborator
	if s.cfg.CollabBaseURL != "" {
		collaborator = collab.NewHTTPCollaborator(
			s.cfg.CollabBaseURL, s.cfg.CollabTimeout,
		)
	} else {
		slog.Info("No collaboration service configured; using local mode")
		collaborator = collab.NewLocal()
	}

	integ := collab.NewIntegration(collaborator, s.bus, slog.Default())
	s.engine = engine.New(s.store, integ, s.bus, s.cfg, slog.Default())

	if s.cfg.ArchiveBucketURL != "" {
		archiver, err := archive.NewBlobArchiver(
			context.Background(), s.cfg.ArchiveBucketURL, s.cfg.ArchivePrefix,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCreateArchive, err)
		}
		s.archiver = archiver
		s.engine.SetArchiver(archiver)
	}

	s.engine.Start()
	return nil
}

func (s *service) startServer() {
	mon := monitor.New(s.store)
	s.apiServer = server.NewServer(
		s.engine, s.store, mon, s.bus, slog.Default(),
	)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *service) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.engine.Stop()
	s.bus.Close()

	if s.archiver != nil {
		if err := s.archiver.Close(); err != nil {
			slog.Error("Archive close failed", log.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		slog.Error("Store close failed", log.Error(err))
	}

	slog.Info("Server exited")
}
