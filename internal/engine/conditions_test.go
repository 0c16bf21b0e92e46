package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestTruthy(t *testing.T) {
	doc := []byte(`{
		"approved": true,
		"rejected": false,
		"count": 3,
		"zero": 0,
		"name": "alice",
		"empty": "",
		"missing": null,
		"items": [1, 2],
		"order": {"approved": true}
	}`)

	tests := map[string]bool{
		"approved":       true,
		"rejected":       false,
		"count":          true,
		"zero":           false,
		"name":           true,
		"empty":          false,
		"missing":        false,
		"absent":         false,
		"items":          true,
		"items.#":        true,
		"order.approved": true,
	}

	for path, expected := range tests {
		got := truthy(gjson.GetBytes(doc, path))
		assert.Equal(t, expected, got, path)
	}
}

func TestLuaCondition(t *testing.T) {
	env := NewLuaEnv()

	tests := []struct {
		script   string
		expected bool
	}{
		{"return context.count > 2", true},
		{"return context.count > 5", false},
		{"return context.order.approved", true},
		{"return context.name == 'alice'", true},
		{"return #context.items == 2", true},
		{"return context.absent ~= nil", false},
	}

	data := map[string]any{
		"count": 3.0,
		"name":  "alice",
		"items": []any{"a", "b"},
		"order": map[string]any{"approved": true},
	}

	for _, tc := range tests {
		got, err := env.EvaluateCondition(tc.script, data)
		assert.NoError(t, err, tc.script)
		assert.Equal(t, tc.expected, got, tc.script)
	}
}

func TestLuaConditionCompileError(t *testing.T) {
	env := NewLuaEnv()
	_, err := env.EvaluateCondition("return ((", nil)
	assert.ErrorIs(t, err, ErrLuaLoad)
	assert.ErrorIs(t, env.Validate("return (("), ErrLuaLoad)
	assert.NoError(t, env.Validate("return true"))
}

func TestLuaConditionSandbox(t *testing.T) {
	env := NewLuaEnv()

	// the sandbox strips process and filesystem access
	got, err := env.EvaluateCondition("return os == nil and io == nil", nil)
	assert.NoError(t, err)
	assert.True(t, got)
}

func TestLuaConditionRuntimeError(t *testing.T) {
	env := NewLuaEnv()
	_, err := env.EvaluateCondition("return context.a.b.c", map[string]any{})
	assert.ErrorIs(t, err, ErrLuaExecution)
}
