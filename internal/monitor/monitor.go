// Package monitor answers operational queries over the workflow store:
// filtered instance listings, detection of long-running and stalled work,
// and aggregate statistics. It also exports the store's headline numbers as
// Prometheus metrics.
package monitor

import (
	"context"
	"time"

	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// Monitor provides read-only visibility into workflow execution
type Monitor struct {
	store *store.Store
	clock func() time.Time
}

// New creates a monitor over the given store
func New(s *store.Store) *Monitor {
	return &Monitor{
		store: s,
		clock: time.Now,
	}
}

// SetClock replaces the monitor's time source. Used by tests
func (m *Monitor) SetClock(clock func() time.Time) {
	m.clock = clock
}

// ActiveInstances returns a page of instances currently RUNNING
func (m *Monitor) ActiveInstances(
	ctx context.Context, offset, limit int,
) ([]*api.WorkflowInstance, error) {
	return m.store.ListInstancesByStatus(
		ctx, api.WorkflowRunning, offset, limit,
	)
}

// LongRunning returns RUNNING instances that started more than the given
// duration ago, oldest start first
func (m *Monitor) LongRunning(
	ctx context.Context, olderThan time.Duration,
) ([]*api.WorkflowInstance, error) {
	cutoff := m.clock().Add(-olderThan)
	return m.filterRunning(ctx, func(inst *api.WorkflowInstance) bool {
		return !inst.StartedAt.IsZero() && inst.StartedAt.Before(cutoff)
	})
}

// Stalled returns RUNNING instances with no state change for the given
// duration. A stalled instance usually means a step execution is stuck
// waiting on an agent or a decision
func (m *Monitor) Stalled(
	ctx context.Context, idle time.Duration,
) ([]*api.WorkflowInstance, error) {
	cutoff := m.clock().Add(-idle)
	return m.filterRunning(ctx, func(inst *api.WorkflowInstance) bool {
		return inst.UpdatedAt.Before(cutoff)
	})
}

// CompletedBetween returns COMPLETED instances whose completion time falls
// within [from, to)
func (m *Monitor) CompletedBetween(
	ctx context.Context, from, to time.Time,
) ([]*api.WorkflowInstance, error) {
	all, err := m.allByStatus(ctx, api.WorkflowCompleted)
	if err != nil {
		return nil, err
	}
	res := make([]*api.WorkflowInstance, 0, len(all))
	for _, inst := range all {
		if !inst.CompletedAt.Before(from) && inst.CompletedAt.Before(to) {
			res = append(res, inst)
		}
	}
	return res, nil
}

// FailedExecutions returns every step execution that ended FAILED or
// TIMEOUT
func (m *Monitor) FailedExecutions(
	ctx context.Context,
) ([]*api.StepExecution, error) {
	failed, err := m.store.ListExecutionsByStatus(ctx, api.StepFailed)
	if err != nil {
		return nil, err
	}
	timedOut, err := m.store.ListExecutionsByStatus(ctx, api.StepTimedOut)
	if err != nil {
		return nil, err
	}
	return append(failed, timedOut...), nil
}

// StalledExecutions returns PENDING and ASSIGNED executions untouched for
// the given duration, the usual sign of a missing agent or unclaimed work
func (m *Monitor) StalledExecutions(
	ctx context.Context, idle time.Duration,
) ([]*api.StepExecution, error) {
	cutoff := m.clock().Add(-idle)
	var res []*api.StepExecution
	for _, status := range []api.StepStatus{
		api.StepPending, api.StepAssigned,
	} {
		execs, err := m.store.ListExecutionsByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		for _, exec := range execs {
			if exec.UpdatedAt.Before(cutoff) {
				res = append(res, exec)
			}
		}
	}
	return res, nil
}

// Statistics aggregates counts and completion timing across the whole store
func (m *Monitor) Statistics(
	ctx context.Context,
) (*api.WorkflowStatistics, error) {
	res := &api.WorkflowStatistics{
		InstanceCounts: map[api.WorkflowStatus]int64{},
		StepCounts:     map[api.StepStatus]int64{},
	}
	for _, status := range api.WorkflowStatuses {
		count, err := m.store.CountInstancesByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		res.InstanceCounts[status] = count
		res.TotalInstances += count
	}
	for _, status := range api.StepStatuses {
		count, err := m.store.CountExecutionsByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		res.StepCounts[status] = count
	}

	completed, err := m.allByStatus(ctx, api.WorkflowCompleted)
	if err != nil {
		return nil, err
	}
	res.AvgCompletionMinutes = avgCompletionMinutes(completed)
	return res, nil
}

// DefinitionStatistics aggregates instance counts and completion timing for
// a single workflow definition
func (m *Monitor) DefinitionStatistics(
	ctx context.Context, id api.DefinitionID,
) (*api.WorkflowStatistics, error) {
	insts, err := m.store.ListInstancesByDefinition(ctx, id, 0, allLimit)
	if err != nil {
		return nil, err
	}
	res := &api.WorkflowStatistics{
		InstanceCounts: map[api.WorkflowStatus]int64{},
	}
	var completed []*api.WorkflowInstance
	for _, inst := range insts {
		res.InstanceCounts[inst.Status]++
		res.TotalInstances++
		if inst.Status == api.WorkflowCompleted {
			completed = append(completed, inst)
		}
	}
	res.AvgCompletionMinutes = avgCompletionMinutes(completed)
	return res, nil
}

// InstanceStepStatistics aggregates an instance's step execution counts and
// average execution time
func (m *Monitor) InstanceStepStatistics(
	ctx context.Context, id api.InstanceID,
) (*api.StepStatistics, error) {
	execs, err := m.store.ListExecutionsByInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &api.StepStatistics{
		Counts: map[api.StepStatus]int64{},
	}
	var total float64
	var timed int64
	for _, exec := range execs {
		res.Counts[exec.Status]++
		res.TotalSteps++
		if exec.Status == api.StepCompleted &&
			!exec.StartedAt.IsZero() && !exec.CompletedAt.IsZero() {
			total += exec.CompletedAt.Sub(exec.StartedAt).Seconds()
			timed++
		}
	}
	if timed > 0 {
		res.AvgExecutionSeconds = total / float64(timed)
	}
	return res, nil
}

// allLimit is the page size used when a query needs the full result set
const allLimit = 1 << 20

func (m *Monitor) allByStatus(
	ctx context.Context, status api.WorkflowStatus,
) ([]*api.WorkflowInstance, error) {
	return m.store.ListInstancesByStatus(ctx, status, 0, allLimit)
}

func (m *Monitor) filterRunning(
	ctx context.Context, keep func(*api.WorkflowInstance) bool,
) ([]*api.WorkflowInstance, error) {
	all, err := m.allByStatus(ctx, api.WorkflowRunning)
	if err != nil {
		return nil, err
	}
	res := make([]*api.WorkflowInstance, 0, len(all))
	for _, inst := range all {
		if keep(inst) {
			res = append(res, inst)
		}
	}
	return res, nil
}

func avgCompletionMinutes(insts []*api.WorkflowInstance) float64 {
	var total float64
	var timed int64
	for _, inst := range insts {
		if inst.StartedAt.IsZero() || inst.CompletedAt.IsZero() {
			continue
		}
		total += inst.CompletedAt.Sub(inst.StartedAt).Minutes()
		timed++
	}
	if timed == 0 {
		return 0
	}
	return total / float64(timed)
}
