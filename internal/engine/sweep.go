package engine

import (
	"context"
	"errors"
	"time"

	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// runSweeper periodically scans RUNNING step executions for blown deadlines
func (e *Engine) runSweeper(ctx context.Context) {
	defer e.sweepWG.Done()

	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.SweepTimeouts(ctx)
		}
	}
}

// SweepTimeouts finds every RUNNING step execution past its deadline and
// times it out. TIMEOUT-typed transitions out of the step are then
// evaluated; a step with none fails its workflow
func (e *Engine) SweepTimeouts(ctx context.Context) {
	execs, err := e.store.ListExecutionsByStatus(ctx, api.StepRunning)
	if err != nil {
		e.logger.Error("Timeout sweep failed",
			log.Error(err))
		return
	}
	now := e.Now()
	for _, exec := range execs {
		deadline := exec.Deadline()
		if deadline.IsZero() || deadline.After(now) {
			continue
		}
		if err := e.timeoutExecution(ctx, exec.ID); err != nil {
			e.logger.Error("Failed to time out step execution",
				log.InstanceID(exec.InstanceID),
				log.ExecutionID(exec.ID),
				log.Error(err))
		}
	}
}

// timeoutExecution finalizes one overdue execution under its instance lock.
// The execution is re-read after acquiring the lock; a completion that
// raced the sweep wins
func (e *Engine) timeoutExecution(
	ctx context.Context, id api.ExecutionID,
) error {
	exec, err := e.GetExecution(ctx, id)
	if errors.Is(err, ErrExecutionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	unlock := e.locks.lock(exec.InstanceID)
	defer unlock()

	exec, err = e.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	now := e.Now()
	if exec.Status != api.StepRunning || exec.Deadline().After(now) {
		return nil
	}

	timedOut, err := exec.Timeout(now)
	if err != nil {
		return err
	}
	if err := e.store.SaveExecution(ctx, timedOut); err != nil {
		return err
	}
	e.logger.Warn("Step execution timed out",
		log.InstanceID(timedOut.InstanceID),
		log.StepID(timedOut.StepID),
		log.ExecutionID(timedOut.ID))
	e.publish(&api.Event{
		Type:       api.EventStepTimedOut,
		InstanceID: timedOut.InstanceID,
		StepID:     timedOut.StepID,
		AgentID:    timedOut.AgentID,
	})

	err = e.advanceLocked(
		ctx, timedOut.InstanceID, timedOut.StepID, api.StepTimedOut,
	)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
