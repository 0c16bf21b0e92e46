package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/internal/config"
	"github.com/kimhons/lumina-ai-sub002/internal/events"
	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

type (
	// Archiver receives the full record of a workflow instance once it
	// reaches a terminal status
	Archiver interface {
		ArchiveInstance(
			ctx context.Context,
			inst *api.WorkflowInstance,
			execs []*api.StepExecution,
			ec *api.ExecutionContext,
		) error
	}

	// Engine drives workflow instances through their definitions
	Engine struct {
		store    *store.Store
		collab   *collab.Integration
		bus      *events.Bus
		archiver Archiver
		cfg      *config.Config
		logger   *slog.Logger
		clock    Clock
		locks    *instanceLocks
		lua      *LuaEnv

		sweepCancel context.CancelFunc
		sweepWG     sync.WaitGroup
		startOnce   sync.Once
		stopOnce    sync.Once
	}
)

// New creates a workflow engine over the given store, collaboration
// integration, and event bus
func New(
	s *store.Store, integ *collab.Integration, bus *events.Bus,
	cfg *config.Config, logger *slog.Logger,
) *Engine {
	return &Engine{
		store:  s,
		collab: integ,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
		locks:  newInstanceLocks(),
		lua:    NewLuaEnv(),
	}
}

// SetArchiver attaches an archiver that captures instances as they reach a
// terminal status
func (e *Engine) SetArchiver(a Archiver) {
	e.archiver = a
}

// Start launches the engine's background timeout sweeper
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		e.sweepCancel = cancel
		e.sweepWG.Add(1)
		go e.runSweeper(ctx)
		e.logger.Info("Workflow engine started",
			slog.Duration("sweep_interval", e.cfg.SweepInterval))
	})
}

// Stop halts the background sweeper and waits for it to drain
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.sweepCancel != nil {
			e.sweepCancel()
		}
		e.sweepWG.Wait()
		e.logger.Info("Workflow engine stopped")
	})
}

// withInstance serializes work on one instance and applies fn under a
// bounded optimistic retry. fn receives the freshly loaded instance and
// returns its replacement, or nil to leave the instance unchanged
func (e *Engine) withInstance(
	ctx context.Context, id api.InstanceID,
	fn func(*api.WorkflowInstance) (*api.WorkflowInstance, error),
) (*api.WorkflowInstance, error) {
	unlock := e.locks.lock(id)
	defer unlock()
	return e.updateInstance(ctx, id, fn)
}

func (e *Engine) updateInstance(
	ctx context.Context, id api.InstanceID,
	fn func(*api.WorkflowInstance) (*api.WorkflowInstance, error),
) (*api.WorkflowInstance, error) {
	for attempt := 0; attempt <= e.cfg.ConflictRetries; attempt++ {
		inst, err := e.store.GetInstance(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInstanceNotFound
		}
		if err != nil {
			return nil, err
		}
		next, err := fn(inst)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return inst, nil
		}
		saved, err := e.store.SaveInstance(ctx, next)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		return saved, err
	}
	return nil, ErrConflictRetryBudget
}

func (e *Engine) publish(ev *api.Event) {
	if ev.Time.IsZero() {
		ev.Time = e.Now()
	}
	e.bus.Publish(ev)
}

// finalize runs after an instance reaches a terminal status: the full
// record is handed to the archiver when one is attached
func (e *Engine) finalize(ctx context.Context, inst *api.WorkflowInstance) {
	if e.archiver == nil {
		return
	}
	execs, err := e.store.ListExecutionsByInstance(ctx, inst.ID)
	if err != nil {
		e.logger.Error("Failed to load executions for archive",
			log.InstanceID(inst.ID),
			log.Error(err))
		return
	}
	ec, err := e.store.GetContext(ctx, inst.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		e.logger.Error("Failed to load context for archive",
			log.InstanceID(inst.ID),
			log.Error(err))
		return
	}
	if err := e.archiver.ArchiveInstance(ctx, inst, execs, ec); err != nil {
		e.logger.Error("Failed to archive instance",
			log.InstanceID(inst.ID),
			log.Error(err))
	}
}
