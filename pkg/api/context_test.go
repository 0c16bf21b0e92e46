package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func TestContextVersionAdvancesPerMutation(t *testing.T) {
	at := time.Now()
	ctx := api.NewExecutionContext("inst-1", api.Data{"seed": 1}, at)
	assert.Equal(t, int64(1), ctx.Version)

	ctx = ctx.Put("a", "x", at)
	ctx = ctx.Put("b", "y", at)
	ctx = ctx.Remove("a", at)
	ctx = ctx.Clear(at)
	ctx = ctx.Put("c", true, at)

	// five mutations after construction
	assert.Equal(t, int64(6), ctx.Version)
	assert.True(t, ctx.ContainsKey("c"))
	assert.False(t, ctx.ContainsKey("seed"))
}

func TestContextMerge(t *testing.T) {
	at := time.Now()
	ctx := api.NewExecutionContext("inst-1", api.Data{
		"shared": "local", "only_local": 1,
	}, at)

	merged := ctx.Merge(api.Data{
		"shared": "remote", "only_remote": 2,
	}, at)

	// one version bump for the whole merge
	assert.Equal(t, ctx.Version+1, merged.Version)

	// union of keys, local values win on conflict
	v, _ := merged.Get("shared")
	assert.Equal(t, "local", v)
	assert.True(t, merged.ContainsKey("only_local"))
	assert.True(t, merged.ContainsKey("only_remote"))

	// receiver untouched
	assert.False(t, ctx.ContainsKey("only_remote"))
}

func TestContextGetOrDefault(t *testing.T) {
	at := time.Now()
	ctx := api.NewExecutionContext("inst-1", nil, at)
	assert.Equal(t, "fallback", ctx.GetOrDefault("missing", "fallback"))

	ctx = ctx.Put("present", 42, at)
	assert.Equal(t, 42, ctx.GetOrDefault("present", "fallback"))
}

func TestContextMetadataDoesNotBumpVersion(t *testing.T) {
	at := time.Now()
	ctx := api.NewExecutionContext("inst-1", nil, at)
	annotated := ctx.SetMetadata("team_id", "team-1", at)
	assert.Equal(t, ctx.Version, annotated.Version)
	assert.Equal(t, "team-1", annotated.Metadata["team_id"])
}

func TestContextMarshalData(t *testing.T) {
	at := time.Now()
	ctx := api.NewExecutionContext("inst-1", nil, at)
	doc, err := ctx.MarshalData()
	assert.NoError(t, err)
	assert.JSONEq(t, "{}", string(doc))

	ctx = ctx.Put("approved", true, at)
	doc, err = ctx.MarshalData()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"approved":true}`, string(doc))
}
