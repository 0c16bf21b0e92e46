package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/internal/monitor"
	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func newTestMonitor(t *testing.T) (*monitor.Monitor, *store.Store) {
	t.Helper()
	server, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	s := store.NewWithClient(client, "test")
	t.Cleanup(func() { _ = s.Close() })
	return monitor.New(s), s
}

func saveRunning(
	t *testing.T, s *store.Store, name string,
	started, updated time.Time,
) *api.WorkflowInstance {
	t.Helper()
	inst := api.NewWorkflowInstance("def-1", name, "alice", started)
	running, err := inst.Start("start", started)
	assert.NoError(t, err)
	running.UpdatedAt = updated
	saved, err := s.SaveInstance(context.Background(), running)
	assert.NoError(t, err)
	return saved
}

func saveCompleted(
	t *testing.T, s *store.Store, name string,
	started time.Time, runtime time.Duration,
) *api.WorkflowInstance {
	t.Helper()
	inst := api.NewWorkflowInstance("def-1", name, "alice", started)
	running, err := inst.Start("start", started)
	assert.NoError(t, err)
	done, err := running.Complete(started.Add(runtime))
	assert.NoError(t, err)
	saved, err := s.SaveInstance(context.Background(), done)
	assert.NoError(t, err)
	return saved
}

func TestLongRunning(t *testing.T) {
	m, s := newTestMonitor(t)
	now := time.Now()
	m.SetClock(func() time.Time { return now })

	saveRunning(t, s, "old", now.Add(-2*time.Hour), now)
	saveRunning(t, s, "fresh", now.Add(-time.Minute), now)

	long, err := m.LongRunning(context.Background(), time.Hour)
	assert.NoError(t, err)
	assert.Len(t, long, 1)
	assert.Equal(t, "old", long[0].Name)
}

func TestStalled(t *testing.T) {
	m, s := newTestMonitor(t)
	now := time.Now()
	m.SetClock(func() time.Time { return now })

	saveRunning(t, s, "stuck", now.Add(-time.Hour), now.Add(-30*time.Minute))
	saveRunning(t, s, "busy", now.Add(-time.Hour), now.Add(-time.Minute))

	stalled, err := m.Stalled(context.Background(), 10*time.Minute)
	assert.NoError(t, err)
	assert.Len(t, stalled, 1)
	assert.Equal(t, "stuck", stalled[0].Name)
}

func TestCompletedBetween(t *testing.T) {
	m, s := newTestMonitor(t)
	base := time.Now().Add(-24 * time.Hour)

	saveCompleted(t, s, "inside", base, 30*time.Minute)
	saveCompleted(t, s, "outside", base.Add(6*time.Hour), 30*time.Minute)

	done, err := m.CompletedBetween(
		context.Background(), base, base.Add(2*time.Hour),
	)
	assert.NoError(t, err)
	assert.Len(t, done, 1)
	assert.Equal(t, "inside", done[0].Name)
}

func TestFailedExecutions(t *testing.T) {
	m, s := newTestMonitor(t)
	ctx := context.Background()
	now := time.Now()

	step := &api.WorkflowStep{ID: "review", Name: "Review",
		Type: api.StepTypeTask}

	failed := api.NewStepExecution("inst-1", step, now)
	running, err := failed.Start(now)
	assert.NoError(t, err)
	finished, err := running.Fail("agent error", now)
	assert.NoError(t, err)
	assert.NoError(t, s.SaveExecution(ctx, finished))

	healthy := api.NewStepExecution("inst-2", step, now)
	assert.NoError(t, s.SaveExecution(ctx, healthy))

	bad, err := m.FailedExecutions(ctx)
	assert.NoError(t, err)
	assert.Len(t, bad, 1)
	assert.Equal(t, finished.ID, bad[0].ID)
}

func TestStalledExecutions(t *testing.T) {
	m, s := newTestMonitor(t)
	ctx := context.Background()
	now := time.Now()
	m.SetClock(func() time.Time { return now })

	step := &api.WorkflowStep{ID: "review", Name: "Review",
		Type: api.StepTypeTask}

	stale := api.NewStepExecution("inst-1", step, now.Add(-time.Hour))
	assert.NoError(t, s.SaveExecution(ctx, stale))

	fresh := api.NewStepExecution("inst-2", step, now)
	assert.NoError(t, s.SaveExecution(ctx, fresh))

	stalled, err := m.StalledExecutions(ctx, 10*time.Minute)
	assert.NoError(t, err)
	assert.Len(t, stalled, 1)
	assert.Equal(t, stale.ID, stalled[0].ID)
}

func TestStatistics(t *testing.T) {
	m, s := newTestMonitor(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	saveRunning(t, s, "active", base, base)
	saveCompleted(t, s, "fast", base, 10*time.Minute)
	saveCompleted(t, s, "slow", base, 30*time.Minute)

	stats, err := m.Statistics(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalInstances)
	assert.Equal(t, int64(1), stats.InstanceCounts[api.WorkflowRunning])
	assert.Equal(t, int64(2), stats.InstanceCounts[api.WorkflowCompleted])
	assert.InDelta(t, 20.0, stats.AvgCompletionMinutes, 0.01)
}

func TestInstanceStepStatistics(t *testing.T) {
	m, s := newTestMonitor(t)
	ctx := context.Background()
	now := time.Now()

	step := &api.WorkflowStep{ID: "review", Name: "Review",
		Type: api.StepTypeTask}

	exec := api.NewStepExecution("inst-1", step, now)
	running, err := exec.Start(now)
	assert.NoError(t, err)
	done, err := running.Complete(nil, now.Add(40*time.Second))
	assert.NoError(t, err)
	assert.NoError(t, s.SaveExecution(ctx, done))

	pending := api.NewStepExecution("inst-1", step, now)
	assert.NoError(t, s.SaveExecution(ctx, pending))

	stats, err := m.InstanceStepStatistics(ctx, "inst-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSteps)
	assert.Equal(t, int64(1), stats.Counts[api.StepCompleted])
	assert.Equal(t, int64(1), stats.Counts[api.StepPending])
	assert.InDelta(t, 40.0, stats.AvgExecutionSeconds, 0.01)
}

func TestCollectorGathers(t *testing.T) {
	m, s := newTestMonitor(t)
	base := time.Now().Add(-time.Hour)
	saveCompleted(t, s, "done", base, 10*time.Minute)

	reg := prometheus.NewRegistry()
	logger := testLogger()
	assert.NoError(t, reg.Register(monitor.NewCollector(m, logger)))

	families, err := reg.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	assert.True(t, names["workflow_instances"])
	assert.True(t, names["workflow_step_executions"])
	assert.True(t, names["workflow_avg_completion_minutes"])
}
