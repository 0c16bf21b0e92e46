package api

import (
	"encoding/json"
	"time"
)

// ExecutionContext is the per-instance shared key/value state visible to all
// steps. Every mutating operation returns a copy with the version counter
// advanced by exactly one, making concurrent writes auditable through the
// store's version check
type ExecutionContext struct {
	ID          ContextID  `json:"id"`
	InstanceID  InstanceID `json:"instance_id"`
	ContextData Data       `json:"data,omitempty"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at,omitzero"`
	UpdatedAt   time.Time  `json:"updated_at,omitzero"`
}

// NewExecutionContext creates a context for the given instance, seeded with
// the initial data. The version counter starts at 1
func NewExecutionContext(
	instance InstanceID, seed Data, at time.Time,
) *ExecutionContext {
	return &ExecutionContext{
		ID:          NewID[ContextID](),
		InstanceID:  instance,
		ContextData: seed.Clone(),
		Version:     1,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// Get returns the value stored under key, with a presence flag
func (c *ExecutionContext) Get(key string) (any, bool) {
	v, ok := c.ContextData[key]
	return v, ok
}

// GetOrDefault returns the value stored under key, or the fallback if absent
func (c *ExecutionContext) GetOrDefault(key string, fallback any) any {
	if v, ok := c.ContextData[key]; ok {
		return v
	}
	return fallback
}

// ContainsKey reports whether the context holds a value for key
func (c *ExecutionContext) ContainsKey(key string) bool {
	_, ok := c.ContextData[key]
	return ok
}

// Put returns a copy of the context with key set and the version advanced
func (c *ExecutionContext) Put(
	key string, value any, at time.Time,
) *ExecutionContext {
	res := c.bump(at)
	res.ContextData[key] = value
	return res
}

// Remove returns a copy of the context with key removed and the version
// advanced
func (c *ExecutionContext) Remove(key string, at time.Time) *ExecutionContext {
	res := c.bump(at)
	delete(res.ContextData, key)
	return res
}

// Clear returns a copy of the context with all data removed and the version
// advanced
func (c *ExecutionContext) Clear(at time.Time) *ExecutionContext {
	res := c.bump(at)
	res.ContextData = Data{}
	return res
}

// Merge returns a copy of the context holding the union of both key sets.
// The receiver's values win on key conflicts. The version advances by
// exactly one regardless of how many keys were merged
func (c *ExecutionContext) Merge(
	other Data, at time.Time,
) *ExecutionContext {
	res := c.bump(at)
	for k, v := range other {
		if _, ok := res.ContextData[k]; !ok {
			res.ContextData[k] = v
		}
	}
	return res
}

// SetMetadata returns a copy of the context with a metadata annotation set.
// Metadata changes do not advance the version
func (c *ExecutionContext) SetMetadata(
	key string, value any, at time.Time,
) *ExecutionContext {
	res := *c
	res.Metadata = c.Metadata.Clone()
	res.Metadata[key] = value
	res.UpdatedAt = at
	return &res
}

// MarshalData renders the context data as a JSON document, used by
// transition condition evaluation
func (c *ExecutionContext) MarshalData() ([]byte, error) {
	if c.ContextData == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.ContextData)
}

func (c *ExecutionContext) bump(at time.Time) *ExecutionContext {
	res := *c
	res.ContextData = c.ContextData.Clone()
	res.Version++
	res.UpdatedAt = at
	return &res
}
