package engine

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// LuaConditionPrefix marks a transition condition as a Lua predicate rather
// than a context data path
const LuaConditionPrefix = "lua:"

// evaluateCondition decides whether a transition condition holds against an
// execution context. Conditions come in two forms: a data path evaluated
// for truthiness against the context ("order.approved", "items.#"), or a
// Lua predicate prefixed with "lua:" receiving the context data as its
// single argument
func (e *Engine) evaluateCondition(
	condition string, ec *api.ExecutionContext,
) (bool, error) {
	if script, ok := strings.CutPrefix(condition, LuaConditionPrefix); ok {
		return e.lua.EvaluateCondition(script, ec.ContextData)
	}
	doc, err := ec.MarshalData()
	if err != nil {
		return false, err
	}
	return truthy(gjson.GetBytes(doc, condition)), nil
}

// truthy maps a queried context value to a boolean: missing keys and nulls
// are false, booleans are themselves, numbers are true when non-zero,
// strings when non-empty, and arrays and objects when present
func truthy(res gjson.Result) bool {
	if !res.Exists() {
		return false
	}
	switch res.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return res.Num != 0
	case gjson.String:
		return res.Str != ""
	default:
		return true
	}
}
