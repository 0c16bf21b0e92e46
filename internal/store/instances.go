package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// SaveInstance writes a workflow instance under optimistic concurrency. The
// incoming Revision must match the stored one; on success the returned copy
// carries the incremented Revision. A mismatch, or a concurrent write racing
// the transaction, yields ErrConflict
func (s *Store) SaveInstance(
	ctx context.Context, inst *api.WorkflowInstance,
) (*api.WorkflowInstance, error) {
	key := s.key("instance", string(inst.ID))
	next := *inst
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := watchedInstance(ctx, tx, key)
		if err != nil {
			return err
		}
		if prev != nil && prev.Revision != inst.Revision {
			return ErrConflict
		}
		next.Revision = inst.Revision + 1
		doc, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, doc, 0)
			s.indexInstance(ctx, pipe, prev, &next)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func watchedInstance(
	ctx context.Context, tx *redis.Tx, key string,
) (*api.WorkflowInstance, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := new(api.WorkflowInstance)
	if err := json.Unmarshal(data, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) indexInstance(
	ctx context.Context, pipe redis.Pipeliner,
	prev, next *api.WorkflowInstance,
) {
	id := string(next.ID)
	if prev != nil && prev.Status != next.Status {
		pipe.SRem(ctx, s.key("instances", "status", string(prev.Status)), id)
	}
	pipe.SAdd(ctx, s.key("instances", "status", string(next.Status)), id)
	pipe.SAdd(ctx, s.key("instances"), id)
	pipe.SAdd(
		ctx, s.key("instances", "definition", string(next.DefinitionID)), id,
	)
	if next.CreatedBy != "" {
		pipe.SAdd(ctx, s.key("instances", "creator", next.CreatedBy), id)
	}
}

// GetInstance retrieves a workflow instance by id
func (s *Store) GetInstance(
	ctx context.Context, id api.InstanceID,
) (*api.WorkflowInstance, error) {
	res := new(api.WorkflowInstance)
	if err := s.getJSON(ctx, s.key("instance", string(id)), res); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteInstance removes an instance along with its execution context, step
// executions, and every index entry referencing it
func (s *Store) DeleteInstance(ctx context.Context, id api.InstanceID) error {
	inst, err := s.GetInstance(ctx, id)
	if err != nil {
		return err
	}
	execs, err := s.ListExecutionsByInstance(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := string(id)
		for _, e := range execs {
			pipe.Del(ctx, s.key("execution", string(e.ID)))
			pipe.SRem(
				ctx, s.key("executions", "status", string(e.Status)),
				string(e.ID),
			)
		}
		pipe.Del(ctx, s.key("executions", "instance", key))
		pipe.Del(ctx, s.key("context", "instance", key))
		pipe.SRem(ctx, s.key("instances"), key)
		pipe.SRem(ctx, s.key("instances", "status", string(inst.Status)), key)
		pipe.SRem(
			ctx, s.key("instances", "definition", string(inst.DefinitionID)),
			key,
		)
		if inst.CreatedBy != "" {
			pipe.SRem(ctx, s.key("instances", "creator", inst.CreatedBy), key)
		}
		pipe.Del(ctx, s.key("instance", key))
		return nil
	})
	return err
}

// ListInstances returns a page of instances ordered newest first
func (s *Store) ListInstances(
	ctx context.Context, offset, limit int,
) ([]*api.WorkflowInstance, error) {
	return s.pageInstances(ctx, s.key("instances"), offset, limit)
}

// ListInstancesByStatus returns a page of instances in the given status,
// newest first
func (s *Store) ListInstancesByStatus(
	ctx context.Context, status api.WorkflowStatus, offset, limit int,
) ([]*api.WorkflowInstance, error) {
	return s.pageInstances(
		ctx, s.key("instances", "status", string(status)), offset, limit,
	)
}

// ListInstancesByCreator returns a page of instances started by the given
// user, newest first
func (s *Store) ListInstancesByCreator(
	ctx context.Context, createdBy string, offset, limit int,
) ([]*api.WorkflowInstance, error) {
	return s.pageInstances(
		ctx, s.key("instances", "creator", createdBy), offset, limit,
	)
}

// ListInstancesByDefinition returns a page of instances of the given
// definition, newest first
func (s *Store) ListInstancesByDefinition(
	ctx context.Context, defID api.DefinitionID, offset, limit int,
) ([]*api.WorkflowInstance, error) {
	return s.pageInstances(
		ctx, s.key("instances", "definition", string(defID)), offset, limit,
	)
}

// CountInstancesByStatus returns the number of instances in the given status
func (s *Store) CountInstancesByStatus(
	ctx context.Context, status api.WorkflowStatus,
) (int64, error) {
	return s.client.SCard(
		ctx, s.key("instances", "status", string(status)),
	).Result()
}

// CountInstances returns the total number of stored instances
func (s *Store) CountInstances(ctx context.Context) (int64, error) {
	return s.client.SCard(ctx, s.key("instances")).Result()
}

func (s *Store) pageInstances(
	ctx context.Context, indexKey string, offset, limit int,
) ([]*api.WorkflowInstance, error) {
	ids, err := s.members(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	all := make([]*api.WorkflowInstance, 0, len(ids))
	for _, id := range ids {
		inst, err := s.GetInstance(ctx, api.InstanceID(id))
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		all = append(all, inst)
	}
	sort.Slice(all, func(l, r int) bool {
		if !all[l].CreatedAt.Equal(all[r].CreatedAt) {
			return all[l].CreatedAt.After(all[r].CreatedAt)
		}
		return all[l].ID < all[r].ID
	})
	return page(all, offset, limit), nil
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := min(offset+limit, len(all))
	return all[offset:end]
}
