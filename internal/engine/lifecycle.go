package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// TeamMetadataKey is the instance metadata key holding the collaboration
// team formed for the workflow
const TeamMetadataKey = "team_id"

// CreateInstance creates a workflow instance in status CREATED, seeds its
// execution context, and forms the collaboration team covering the
// definition's agent roles. The instance waits for an explicit StartWorkflow
func (e *Engine) CreateInstance(
	ctx context.Context, defID api.DefinitionID,
	name, createdBy string, seed api.Data, priority int,
) (*api.WorkflowInstance, error) {
	inst, _, err := e.buildInstance(ctx, defID, name, createdBy, seed, priority)
	if err != nil {
		return nil, err
	}
	saved, err := e.store.SaveInstance(ctx, inst)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Workflow instance created",
		log.InstanceID(saved.ID),
		log.DefinitionID(defID),
		slog.String("name", saved.Name))
	return saved, nil
}

// LaunchWorkflow creates a workflow instance and starts it in one shot: the
// first persisted record is already RUNNING with a pending execution of the
// START step, so the instance is never observable in CREATED. A declined
// resource negotiation persists the instance directly in FAILED instead
func (e *Engine) LaunchWorkflow(
	ctx context.Context, defID api.DefinitionID,
	name, createdBy string, seed api.Data, priority int,
) (*api.WorkflowInstance, error) {
	inst, def, err := e.buildInstance(ctx, defID, name, createdBy, seed, priority)
	if err != nil {
		return nil, err
	}

	now := e.Now()
	start := def.StartStep()
	running, err := inst.Start(start.ID, now)
	if err != nil {
		return nil, err
	}
	exec, err := e.openExecution(ctx, inst, start, now)
	if errors.Is(err, collab.ErrNegotiationFailed) {
		reason := err.Error()
		failed, ferr := inst.Fail(reason, now)
		if ferr != nil {
			return nil, ferr
		}
		saved, serr := e.store.SaveInstance(ctx, failed)
		if serr != nil {
			return nil, serr
		}
		e.logger.Warn("Workflow failed",
			log.InstanceID(saved.ID),
			log.ErrorString(reason))
		e.publish(&api.Event{
			Type:       api.EventWorkflowFailed,
			InstanceID: saved.ID,
			Data:       api.Data{"error": reason},
		})
		e.finalize(ctx, saved)
		return saved, nil
	}
	if err != nil {
		return nil, err
	}

	saved, err := e.store.SaveInstance(ctx, running.AddExecution(exec.ID, now))
	if err != nil {
		return nil, err
	}
	e.logger.Info("Workflow instance launched",
		log.InstanceID(saved.ID),
		log.DefinitionID(defID),
		slog.String("name", saved.Name))
	e.publish(&api.Event{
		Type:       api.EventWorkflowStarted,
		InstanceID: saved.ID,
	})
	e.publish(&api.Event{
		Type:       api.EventStepCreated,
		InstanceID: saved.ID,
		StepID:     exec.StepID,
		Data:       api.Data{"execution_id": string(exec.ID)},
	})
	return saved, nil
}

// buildInstance assembles an unsaved instance over an active definition:
// team formation, seeded execution context, priority. Callers persist it in
// whatever status they reached
func (e *Engine) buildInstance(
	ctx context.Context, defID api.DefinitionID,
	name, createdBy string, seed api.Data, priority int,
) (*api.WorkflowInstance, *api.WorkflowDefinition, error) {
	def, err := e.GetDefinition(ctx, defID)
	if err != nil {
		return nil, nil, err
	}
	if !def.Active {
		return nil, nil, ErrDefinitionInactive
	}

	now := e.Now()
	if name == "" {
		name = def.Name
	}
	inst := api.NewWorkflowInstance(defID, name, createdBy, now)
	inst.Priority = priority

	team, err := e.collab.CreateTeamForWorkflow(ctx, inst, def)
	if err != nil {
		return nil, nil, err
	}
	if team != "" {
		inst.Metadata = api.Metadata{TeamMetadataKey: string(team)}
	}

	ec := api.NewExecutionContext(inst.ID, seed, now)
	inst.ContextID = ec.ID
	if err := e.store.SaveContext(ctx, ec); err != nil {
		return nil, nil, err
	}
	return inst, def, nil
}

// teamOf reads the collaboration team an instance carries in its metadata
func teamOf(inst *api.WorkflowInstance) api.TeamID {
	team, _ := inst.Metadata[TeamMetadataKey].(string)
	return api.TeamID(team)
}

// StartWorkflow moves a CREATED instance to RUNNING and opens a pending
// execution of the definition's START step
func (e *Engine) StartWorkflow(
	ctx context.Context, id api.InstanceID,
) (*api.WorkflowInstance, error) {
	var execID api.ExecutionID
	var stepID api.StepID
	res, err := e.withInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			def, err := e.GetDefinition(ctx, inst.DefinitionID)
			if err != nil {
				return nil, err
			}
			now := e.Now()
			start := def.StartStep()
			started, err := inst.Start(start.ID, now)
			if err != nil {
				return nil, err
			}
			exec, err := e.openExecution(ctx, inst, start, now)
			if err != nil {
				return nil, err
			}
			execID = exec.ID
			stepID = exec.StepID
			return started.AddExecution(exec.ID, now), nil
		})
	if errors.Is(err, collab.ErrNegotiationFailed) {
		return e.FailWorkflow(ctx, id, err.Error())
	}
	if err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventWorkflowStarted,
		InstanceID: res.ID,
	})
	e.publish(&api.Event{
		Type:       api.EventStepCreated,
		InstanceID: res.ID,
		StepID:     stepID,
		Data:       api.Data{"execution_id": string(execID)},
	})
	return res, nil
}

// PauseWorkflow suspends a RUNNING instance. In-flight step executions are
// untouched; their results are held until the instance resumes
func (e *Engine) PauseWorkflow(
	ctx context.Context, id api.InstanceID,
) (*api.WorkflowInstance, error) {
	res, err := e.withInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			return inst.Pause(e.Now())
		})
	if err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventWorkflowPaused,
		InstanceID: res.ID,
	})
	return res, nil
}

// ResumeWorkflow returns a PAUSED instance to RUNNING. Step results that
// arrived during the pause are acted on immediately: if the current step
// already finished, transition evaluation picks up where it left off
func (e *Engine) ResumeWorkflow(
	ctx context.Context, id api.InstanceID,
) (*api.WorkflowInstance, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	res, err := e.updateInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			return inst.Resume(e.Now())
		})
	if err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventWorkflowResumed,
		InstanceID: res.ID,
	})
	if res.CurrentStepID != "" {
		if err := e.advanceIfFinished(ctx, res, res.CurrentStepID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// CancelWorkflow terminates a non-terminal instance. Open step executions
// are skipped before the instance moves to CANCELLED so that agents and
// resources are released
func (e *Engine) CancelWorkflow(
	ctx context.Context, id api.InstanceID,
) (*api.WorkflowInstance, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	res, err := e.updateInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			if err := e.closeOpenExecutions(ctx, inst.ID); err != nil {
				return nil, err
			}
			return inst.Cancel(e.Now())
		})
	if err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventWorkflowCancelled,
		InstanceID: res.ID,
	})
	e.finalize(ctx, res)
	return res, nil
}

// FailWorkflow marks a non-terminal instance FAILED with the given reason
func (e *Engine) FailWorkflow(
	ctx context.Context, id api.InstanceID, reason string,
) (*api.WorkflowInstance, error) {
	unlock := e.locks.lock(id)
	defer unlock()
	return e.failLocked(ctx, id, reason)
}

// GetInstance retrieves a workflow instance
func (e *Engine) GetInstance(
	ctx context.Context, id api.InstanceID,
) (*api.WorkflowInstance, error) {
	inst, err := e.store.GetInstance(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInstanceNotFound
	}
	return inst, err
}

// GetExecution retrieves a step execution
func (e *Engine) GetExecution(
	ctx context.Context, id api.ExecutionID,
) (*api.StepExecution, error) {
	exec, err := e.store.GetExecution(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExecutionNotFound
	}
	return exec, err
}

// failLocked moves an instance to FAILED while its lock is already held.
// Open executions are skipped first so nothing stays claimed by a dead
// workflow
func (e *Engine) failLocked(
	ctx context.Context, id api.InstanceID, reason string,
) (*api.WorkflowInstance, error) {
	res, err := e.updateInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			if err := e.closeOpenExecutions(ctx, inst.ID); err != nil {
				return nil, err
			}
			return inst.Fail(reason, e.Now())
		})
	if err != nil {
		return nil, err
	}
	e.logger.Warn("Workflow failed",
		log.InstanceID(id),
		log.ErrorString(reason))
	e.publish(&api.Event{
		Type:       api.EventWorkflowFailed,
		InstanceID: res.ID,
		Data:       api.Data{"error": reason},
	})
	e.finalize(ctx, res)
	return res, nil
}

// completeLocked moves an instance to COMPLETED positioned at the END step
// that closed it, while its lock is already held
func (e *Engine) completeLocked(
	ctx context.Context, id api.InstanceID, end api.StepID,
) (*api.WorkflowInstance, error) {
	res, err := e.updateInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			now := e.Now()
			moved, err := inst.MoveTo(end, now)
			if err != nil {
				return nil, err
			}
			return moved.Complete(now)
		})
	if err != nil {
		return nil, err
	}
	e.logger.Info("Workflow completed",
		log.InstanceID(id),
		log.StepID(end))
	e.publish(&api.Event{
		Type:       api.EventWorkflowCompleted,
		InstanceID: res.ID,
		StepID:     end,
	})
	e.finalize(ctx, res)
	return res, nil
}

// closeOpenExecutions skips every non-terminal execution of an instance,
// releasing their agents
func (e *Engine) closeOpenExecutions(
	ctx context.Context, id api.InstanceID,
) error {
	execs, err := e.store.ListExecutionsByInstance(ctx, id)
	if err != nil {
		return err
	}
	now := e.Now()
	for _, exec := range execs {
		if exec.IsTerminal() {
			continue
		}
		skipped, err := exec.Skip(now)
		if err != nil {
			return err
		}
		if err := e.store.SaveExecution(ctx, skipped); err != nil {
			return err
		}
		e.publish(&api.Event{
			Type:       api.EventStepSkipped,
			InstanceID: id,
			StepID:     exec.StepID,
			AgentID:    exec.AgentID,
		})
	}
	return nil
}
