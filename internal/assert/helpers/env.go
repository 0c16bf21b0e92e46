// Package helpers builds fully wired test environments around an in-memory
// Redis backend and a mock collaborator.
package helpers

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/internal/config"
	"github.com/kimhons/lumina-ai-sub002/internal/engine"
	"github.com/kimhons/lumina-ai-sub002/internal/events"
	"github.com/kimhons/lumina-ai-sub002/internal/monitor"
	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// TestEnv holds all the components needed for engine testing
type TestEnv struct {
	Engine  *engine.Engine
	Monitor *monitor.Monitor
	Store   *store.Store
	Redis   *miniredis.Miniredis
	Collab  *MockCollab
	Bus     *events.Bus
	Config  *config.Config
	Cleanup func()
}

// NewTestConfig creates a default configuration suitable for tests
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestEnv creates a fully configured engine environment with an
// in-memory Redis backend and a mock collaborator
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	s := store.NewWithClient(client, "test")

	cfg := NewTestConfig()
	cfg.Redis.Addr = server.Addr()

	bus := events.NewBus()
	mock := NewMockCollab()
	logger := log.NewDiscard()
	integ := collab.NewIntegration(mock, bus, logger)
	eng := engine.New(s, integ, bus, cfg, logger)

	cleanup := func() {
		eng.Stop()
		bus.Close()
		_ = s.Close()
		server.Close()
	}

	return &TestEnv{
		Engine:  eng,
		Monitor: monitor.New(s),
		Store:   s,
		Redis:   server,
		Collab:  mock,
		Bus:     bus,
		Config:  cfg,
		Cleanup: cleanup,
	}
}

// WithTestEnv creates a test environment, executes the provided function
// with it, and ensures cleanup happens automatically
func WithTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	env := NewTestEnv(t)
	defer env.Cleanup()
	fn(env)
}

// WithEngine creates a test environment and hands just the engine to the
// provided function
func WithEngine(t *testing.T, fn func(*engine.Engine)) {
	t.Helper()
	WithTestEnv(t, func(env *TestEnv) {
		fn(env.Engine)
	})
}
