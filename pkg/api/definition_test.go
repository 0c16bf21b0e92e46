package api_test

import (
	"testing"

	"github.com/kimhons/lumina-ai-sub002/internal/assert"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func makeDefinition() *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "order-approval",
		Version: 1,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "review", Name: "Review", Type: api.StepTypeTask,
				AgentRole: "reviewer"},
			{ID: "done", Name: "Done", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t1", FromStepID: "start", ToStepID: "review",
				Type: api.TransitionAutomatic},
			{ID: "t2", FromStepID: "review", ToStepID: "done",
				Type: api.TransitionAutomatic},
		},
		Active: true,
	}
}

func TestValidateOK(t *testing.T) {
	assert.New(t).DefinitionValid(makeDefinition())
}

func TestValidateNoSteps(t *testing.T) {
	def := &api.WorkflowDefinition{Name: "empty"}
	assert.New(t).DefinitionInvalid(def, api.ErrNoSteps)
}

func TestValidateNoStart(t *testing.T) {
	def := makeDefinition()
	def.Steps[0].Type = api.StepTypeTask
	assert.New(t).DefinitionInvalid(def, api.ErrNoStartStep)
}

func TestValidateMultipleStarts(t *testing.T) {
	def := makeDefinition()
	def.Steps[1].Type = api.StepTypeStart
	assert.New(t).DefinitionInvalid(def, api.ErrMultipleStartSteps)
}

func TestValidateDanglingTransition(t *testing.T) {
	def := makeDefinition()
	def.Transitions = append(def.Transitions, &api.WorkflowTransition{
		ID: "t3", FromStepID: "review", ToStepID: "missing",
		Type: api.TransitionAutomatic,
	})
	assert.New(t).DefinitionInvalid(def, api.ErrDanglingTransition)
}

func TestValidateDuplicateStepID(t *testing.T) {
	def := makeDefinition()
	def.Steps = append(def.Steps, &api.WorkflowStep{
		ID: "review", Name: "Again", Type: api.StepTypeTask,
	})
	assert.New(t).DefinitionInvalid(def, api.ErrDuplicateStepID)
}

func TestStartStep(t *testing.T) {
	as := assert.New(t)
	def := makeDefinition()
	start := def.StartStep()
	as.NotNil(start)
	as.Equal(api.StepID("start"), start.ID)

	def.Steps[0].Type = api.StepTypeTask
	as.Nil(def.StartStep())
}

func TestTransitionsFromOrdering(t *testing.T) {
	as := assert.New(t)
	def := makeDefinition()
	def.Transitions = []*api.WorkflowTransition{
		{ID: "b", FromStepID: "review", ToStepID: "done",
			Type: api.TransitionAutomatic, Priority: 1},
		{ID: "a", FromStepID: "review", ToStepID: "done",
			Type: api.TransitionAutomatic, Priority: 1},
		{ID: "c", FromStepID: "review", ToStepID: "done",
			Type: api.TransitionAutomatic, Priority: 5},
	}

	out := def.TransitionsFrom("review")
	as.Len(out, 3)
	as.Equal(api.TransitionID("c"), out[0].ID)
	as.Equal(api.TransitionID("a"), out[1].ID)
	as.Equal(api.TransitionID("b"), out[2].ID)
}
