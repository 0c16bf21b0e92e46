package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	server, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	s := store.NewWithClient(client, "test")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDefinition(name string) *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    name,
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{{
			ID:         "t1",
			FromStepID: "start",
			ToStepID:   "end",
			Type:       api.TransitionAutomatic,
		}},
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	def := testDefinition("approval")
	assert.NoError(t, s.SaveDefinition(ctx, def))

	got, err := s.GetDefinition(ctx, def.ID)
	assert.NoError(t, err)
	assert.Equal(t, def.Name, got.Name)
	assert.Len(t, got.Steps, 2)

	_, err = s.GetDefinition(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListActiveDefinitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := testDefinition("alpha")
	retired := testDefinition("beta")
	retired.Active = false
	assert.NoError(t, s.SaveDefinition(ctx, active))
	assert.NoError(t, s.SaveDefinition(ctx, retired))

	all, err := s.ListDefinitions(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)

	live, err := s.ListActiveDefinitions(ctx)
	assert.NoError(t, err)
	assert.Len(t, live, 1)
	assert.Equal(t, active.ID, live[0].ID)
}

func TestDeleteDefinition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	def := testDefinition("doomed")
	assert.NoError(t, s.SaveDefinition(ctx, def))
	assert.NoError(t, s.DeleteDefinition(ctx, def.ID))

	_, err := s.GetDefinition(ctx, def.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := s.ListDefinitions(ctx)
	assert.NoError(t, err)
	assert.Empty(t, all)
}

func TestInstanceRevisionCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	inst := api.NewWorkflowInstance("def-1", "run", "alice", now)
	saved, err := s.SaveInstance(ctx, inst)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), saved.Revision)

	// two writers load the same revision; the second write must lose
	first, err := saved.Start("start", now)
	assert.NoError(t, err)
	_, err = s.SaveInstance(ctx, first)
	assert.NoError(t, err)

	stale, err := saved.Cancel(now)
	assert.NoError(t, err)
	_, err = s.SaveInstance(ctx, stale)
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetInstance(ctx, inst.ID)
	assert.NoError(t, err)
	assert.Equal(t, api.WorkflowRunning, got.Status)
	assert.Equal(t, int64(2), got.Revision)
}

func TestInstanceStatusIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	inst := api.NewWorkflowInstance("def-1", "run", "alice", now)
	saved, err := s.SaveInstance(ctx, inst)
	assert.NoError(t, err)

	created, err := s.ListInstancesByStatus(ctx, api.WorkflowCreated, 0, 10)
	assert.NoError(t, err)
	assert.Len(t, created, 1)

	started, err := saved.Start("start", now)
	assert.NoError(t, err)
	_, err = s.SaveInstance(ctx, started)
	assert.NoError(t, err)

	created, err = s.ListInstancesByStatus(ctx, api.WorkflowCreated, 0, 10)
	assert.NoError(t, err)
	assert.Empty(t, created)

	running, err := s.ListInstancesByStatus(ctx, api.WorkflowRunning, 0, 10)
	assert.NoError(t, err)
	assert.Len(t, running, 1)

	count, err := s.CountInstancesByStatus(ctx, api.WorkflowRunning)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestInstancePagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i := range 5 {
		inst := api.NewWorkflowInstance(
			"def-1", "run", "alice", base.Add(time.Duration(i)*time.Minute),
		)
		_, err := s.SaveInstance(ctx, inst)
		assert.NoError(t, err)
	}

	first, err := s.ListInstances(ctx, 0, 2)
	assert.NoError(t, err)
	assert.Len(t, first, 2)

	rest, err := s.ListInstances(ctx, 2, 10)
	assert.NoError(t, err)
	assert.Len(t, rest, 3)

	// newest first
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	none, err := s.ListInstances(ctx, 99, 10)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestInstancesByCreatorAndDefinition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := s.SaveInstance(
		ctx, api.NewWorkflowInstance("def-a", "one", "alice", now),
	)
	assert.NoError(t, err)
	_, err = s.SaveInstance(
		ctx, api.NewWorkflowInstance("def-b", "two", "bob", now),
	)
	assert.NoError(t, err)

	byAlice, err := s.ListInstancesByCreator(ctx, "alice", 0, 10)
	assert.NoError(t, err)
	assert.Len(t, byAlice, 1)
	assert.Equal(t, "one", byAlice[0].Name)

	byDef, err := s.ListInstancesByDefinition(ctx, "def-b", 0, 10)
	assert.NoError(t, err)
	assert.Len(t, byDef, 1)
	assert.Equal(t, "two", byDef[0].Name)
}

func TestExecutionHistoryOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	inst := api.InstanceID("inst-1")
	step := &api.WorkflowStep{ID: "review", Name: "Review",
		Type: api.StepTypeTask}

	first := api.NewStepExecution(inst, step, base)
	second := api.NewStepExecution(inst, step, base.Add(time.Minute))
	assert.NoError(t, s.SaveExecution(ctx, second))
	assert.NoError(t, s.SaveExecution(ctx, first))

	history, err := s.ListExecutionsByInstance(ctx, inst)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)

	latest, err := s.LatestExecutionForStep(ctx, inst, "review")
	assert.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = s.LatestExecutionForStep(ctx, inst, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExecutionStatusIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	step := &api.WorkflowStep{ID: "review", Name: "Review",
		Type: api.StepTypeTask}
	exec := api.NewStepExecution("inst-1", step, now)
	assert.NoError(t, s.SaveExecution(ctx, exec))

	pending, err := s.ListExecutionsByStatus(ctx, api.StepPending)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)

	running, err := exec.Start(now)
	assert.NoError(t, err)
	assert.NoError(t, s.SaveExecution(ctx, running))

	pending, err = s.ListExecutionsByStatus(ctx, api.StepPending)
	assert.NoError(t, err)
	assert.Empty(t, pending)

	count, err := s.CountExecutionsByStatus(ctx, api.StepRunning)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestContextVersionCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	ec := api.NewExecutionContext("inst-1", api.Data{"k": "v"}, now)
	assert.NoError(t, s.SaveContext(ctx, ec))

	// two writers fork the same version; the second write must lose
	left := ec.Put("a", 1, now)
	right := ec.Put("b", 2, now)
	assert.NoError(t, s.SaveContext(ctx, left))
	assert.ErrorIs(t, s.SaveContext(ctx, right), store.ErrConflict)

	got, err := s.GetContext(ctx, "inst-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.ContainsKey("a"))
	assert.False(t, got.ContainsKey("b"))
}

func TestDeleteInstanceCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	inst := api.NewWorkflowInstance("def-1", "run", "alice", now)
	saved, err := s.SaveInstance(ctx, inst)
	assert.NoError(t, err)

	step := &api.WorkflowStep{ID: "review", Name: "Review",
		Type: api.StepTypeTask}
	exec := api.NewStepExecution(saved.ID, step, now)
	assert.NoError(t, s.SaveExecution(ctx, exec))
	assert.NoError(t, s.SaveContext(
		ctx, api.NewExecutionContext(saved.ID, nil, now),
	))

	assert.NoError(t, s.DeleteInstance(ctx, saved.ID))

	_, err = s.GetInstance(ctx, saved.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetExecution(ctx, exec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetContext(ctx, saved.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	count, err := s.CountInstances(ctx)
	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestTemplateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tpl := &api.WorkflowTemplate{
		ID:         api.NewID[api.TemplateID](),
		Name:       "Standard Approval",
		Category:   "approvals",
		Public:     true,
		Definition: testDefinition("approval"),
	}
	assert.NoError(t, s.SaveTemplate(ctx, tpl))

	got, err := s.GetTemplate(ctx, tpl.ID)
	assert.NoError(t, err)
	assert.Equal(t, tpl.Name, got.Name)

	public, err := s.ListPublicTemplates(ctx)
	assert.NoError(t, err)
	assert.Len(t, public, 1)

	byCat, err := s.ListTemplatesByCategory(ctx, "approvals")
	assert.NoError(t, err)
	assert.Len(t, byCat, 1)

	assert.NoError(t, s.DeleteTemplate(ctx, tpl.ID))
	_, err = s.GetTemplate(ctx, tpl.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
