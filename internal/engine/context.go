package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// ErrContextNotFound is returned when an instance has no execution context
var ErrContextNotFound = errors.New("execution context not found")

// GetContext retrieves the execution context of an instance
func (e *Engine) GetContext(
	ctx context.Context, id api.InstanceID,
) (*api.ExecutionContext, error) {
	ec, err := e.store.GetContext(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrContextNotFound
	}
	return ec, err
}

// UpdateContext applies a set of key updates to an instance's execution
// context. Each key advances the version by one; the write retries under
// the conflict budget when it loses a concurrent update race
func (e *Engine) UpdateContext(
	ctx context.Context, id api.InstanceID, updates api.Data,
) (*api.ExecutionContext, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	ec, err := e.applyContext(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventContextUpdated,
		InstanceID: id,
		Data:       updates,
	})
	return ec, nil
}

// SynchronizeContext merges the collaboration service's shared view into
// the instance context, publishes the merged view back, and persists the
// result. Local values win on conflicting keys
func (e *Engine) SynchronizeContext(
	ctx context.Context, id api.InstanceID,
) (*api.ExecutionContext, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	inst, err := e.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	team := teamOf(inst)

	for attempt := 0; attempt <= e.cfg.ConflictRetries; attempt++ {
		ec, err := e.GetContext(ctx, id)
		if err != nil {
			return nil, err
		}
		merged, err := e.collab.SynchronizeContext(ctx, team, ec, e.Now())
		if err != nil {
			return nil, err
		}
		err = e.store.SaveContext(ctx, merged)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return merged, nil
	}
	return nil, ErrConflictRetryBudget
}

// mergeOutput folds a completed step's output into the instance context
// while the instance lock is held. Keys are applied in sorted order so the
// resulting version is deterministic
func (e *Engine) mergeOutput(
	ctx context.Context, id api.InstanceID, output api.Data,
) error {
	_, err := e.applyContext(ctx, id, output)
	return err
}

func (e *Engine) applyContext(
	ctx context.Context, id api.InstanceID, updates api.Data,
) (*api.ExecutionContext, error) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for attempt := 0; attempt <= e.cfg.ConflictRetries; attempt++ {
		ec, err := e.GetContext(ctx, id)
		if err != nil {
			return nil, err
		}
		now := e.Now()
		for _, k := range keys {
			ec = ec.Put(k, updates[k], now)
		}
		err = e.store.SaveContext(ctx, ec)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ec, nil
	}
	return nil, ErrConflictRetryBudget
}
