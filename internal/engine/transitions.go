package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// eligibleTypes maps a finished step's outcome to the transition types that
// may fire from it
func eligibleTypes(outcome api.StepStatus) map[api.TransitionType]struct{} {
	switch outcome {
	case api.StepCompleted, api.StepSkipped:
		return map[api.TransitionType]struct{}{
			api.TransitionAutomatic:     {},
			api.TransitionConditional:   {},
			api.TransitionUserDecision:  {},
			api.TransitionAgentDecision: {},
		}
	case api.StepFailed:
		return map[api.TransitionType]struct{}{
			api.TransitionError: {},
		}
	case api.StepTimedOut:
		return map[api.TransitionType]struct{}{
			api.TransitionTimeout: {},
		}
	default:
		return nil
	}
}

// RecordDecision stores an external decision selecting an outgoing
// transition of a decision step. If the step has already finished, the
// workflow advances immediately; otherwise the decision waits for the step
// to finish
func (e *Engine) RecordDecision(
	ctx context.Context, id api.InstanceID,
	step api.StepID, tr api.TransitionID,
) (*api.WorkflowInstance, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	inst, err := e.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	def, err := e.GetDefinition(ctx, inst.DefinitionID)
	if err != nil {
		return nil, err
	}
	chosen := findTransition(def.TransitionsFrom(step), tr)
	if chosen == nil {
		return nil, fmt.Errorf("%w: %s from %s", ErrUnknownTransition, tr, step)
	}
	if !chosen.IsDecision() {
		return nil, fmt.Errorf("%w: %s", ErrNotDecision, tr)
	}

	res, err := e.updateInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			return inst.SetDecision(step, tr, e.Now()), nil
		})
	if err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventDecisionRecorded,
		InstanceID: id,
		StepID:     step,
		Data:       api.Data{"transition_id": string(tr)},
	})

	if err := e.advanceIfFinished(ctx, res, step); err != nil {
		return nil, err
	}
	return res, nil
}

// advanceIfFinished re-evaluates transitions out of a step whose latest
// execution has already reached a terminal status. Used after decisions are
// recorded and after paused instances resume
func (e *Engine) advanceIfFinished(
	ctx context.Context, inst *api.WorkflowInstance, step api.StepID,
) error {
	latest, err := e.store.LatestExecutionForStep(ctx, inst.ID, step)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !latest.IsTerminal() {
		return nil
	}
	return e.advanceLocked(ctx, inst.ID, step, latest.Status)
}

// advanceLocked selects and follows the next transition out of a finished
// step. The instance lock must already be held.
//
// Among the transitions whose type matches the step outcome, conditional
// transitions must evaluate true against the execution context and decision
// transitions must match a recorded decision. The winner is the eligible
// transition with the highest priority, ties broken by lexical transition
// ID. A step with decision transitions but no recorded decision suspends
// until one arrives; any other step with no eligible transition fails the
// workflow
func (e *Engine) advanceLocked(
	ctx context.Context, id api.InstanceID,
	from api.StepID, outcome api.StepStatus,
) error {
	inst, err := e.GetInstance(ctx, id)
	if err != nil {
		return err
	}
	if inst.Status != api.WorkflowRunning {
		return nil
	}
	def, err := e.GetDefinition(ctx, inst.DefinitionID)
	if err != nil {
		return err
	}

	candidates := def.TransitionsFrom(from)
	chosen, awaiting, err := e.selectTransition(ctx, inst, from,
		outcome, candidates)
	if err != nil {
		return err
	}
	if chosen == nil {
		if awaiting {
			e.logger.Debug("Awaiting decision",
				log.InstanceID(id),
				log.StepID(from))
			return nil
		}
		_, err := e.failLocked(ctx, id, fmt.Sprintf(
			"%s: step %s finished %s", ErrNoEligibleTransition, from, outcome,
		))
		return err
	}

	dest := def.GetStep(chosen.ToStepID)
	e.logger.Info("Transition selected",
		log.InstanceID(id),
		log.StepID(from),
		slog.String("transition_id", string(chosen.ID)),
		slog.String("to_step_id", string(dest.ID)))

	if dest.Type == api.StepTypeEnd {
		_, err := e.completeLocked(ctx, id, dest.ID)
		return err
	}

	now := e.Now()
	exec, err := e.openExecution(ctx, inst, dest, now)
	if errors.Is(err, collab.ErrNegotiationFailed) {
		_, ferr := e.failLocked(ctx, id, err.Error())
		return ferr
	}
	if err != nil {
		return err
	}

	_, err = e.updateInstance(ctx, id,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			moved, err := inst.MoveTo(dest.ID, now)
			if err != nil {
				return nil, err
			}
			return moved.ClearDecision(from, now).
				AddExecution(exec.ID, now), nil
		})
	if err != nil {
		return err
	}
	e.publish(&api.Event{
		Type:       api.EventStepCreated,
		InstanceID: id,
		StepID:     dest.ID,
		Data:       api.Data{"execution_id": string(exec.ID)},
	})
	return nil
}

// selectTransition filters candidates by outcome, condition, and recorded
// decisions, returning the winner. The awaiting flag reports that decision
// transitions exist but no decision has been recorded yet
func (e *Engine) selectTransition(
	ctx context.Context, inst *api.WorkflowInstance, from api.StepID,
	outcome api.StepStatus, candidates []*api.WorkflowTransition,
) (*api.WorkflowTransition, bool, error) {
	types := eligibleTypes(outcome)
	decision, decided := inst.Decisions[from]
	awaiting := false

	for _, tr := range candidates {
		if _, ok := types[tr.Type]; !ok {
			continue
		}
		if tr.IsDecision() {
			if !decided {
				awaiting = true
				continue
			}
			if tr.ID != decision {
				continue
			}
		}
		ok, err := e.conditionHolds(ctx, inst, tr)
		if err != nil {
			e.logger.Warn("Condition evaluation failed",
				log.InstanceID(inst.ID),
				slog.String("transition_id", string(tr.ID)),
				log.Error(err))
			continue
		}
		if !ok {
			continue
		}
		// candidates arrive pre-sorted, first match wins
		return tr, false, nil
	}
	return nil, awaiting, nil
}

func (e *Engine) conditionHolds(
	ctx context.Context, inst *api.WorkflowInstance, tr *api.WorkflowTransition,
) (bool, error) {
	if tr.Condition == "" {
		return true, nil
	}
	ec, err := e.store.GetContext(ctx, inst.ID)
	if errors.Is(err, store.ErrNotFound) {
		ec = api.NewExecutionContext(inst.ID, nil, e.Now())
	} else if err != nil {
		return false, err
	}
	return e.evaluateCondition(tr.Condition, ec)
}

func findTransition(
	trs []*api.WorkflowTransition, id api.TransitionID,
) *api.WorkflowTransition {
	for _, tr := range trs {
		if tr.ID == id {
			return tr
		}
	}
	return nil
}
