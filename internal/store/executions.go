package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// SaveExecution persists a step execution, maintaining the per-status index
// and the per-instance history ordered by creation time
func (s *Store) SaveExecution(
	ctx context.Context, exec *api.StepExecution,
) error {
	key := s.key("execution", string(exec.ID))
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := watchedExecution(ctx, tx, key)
		if err != nil {
			return err
		}
		doc, err := json.Marshal(exec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			id := string(exec.ID)
			pipe.Set(ctx, key, doc, 0)
			if prev != nil && prev.Status != exec.Status {
				pipe.SRem(
					ctx, s.key("executions", "status", string(prev.Status)),
					id,
				)
			}
			pipe.SAdd(
				ctx, s.key("executions", "status", string(exec.Status)), id,
			)
			pipe.ZAdd(
				ctx, s.key("executions", "instance", string(exec.InstanceID)),
				redis.Z{
					Score:  float64(exec.CreatedAt.UnixNano()),
					Member: id,
				},
			)
			return nil
		})
		return err
	}, key)
}

func watchedExecution(
	ctx context.Context, tx *redis.Tx, key string,
) (*api.StepExecution, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := new(api.StepExecution)
	if err := json.Unmarshal(data, res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetExecution retrieves a step execution by id
func (s *Store) GetExecution(
	ctx context.Context, id api.ExecutionID,
) (*api.StepExecution, error) {
	res := new(api.StepExecution)
	if err := s.getJSON(ctx, s.key("execution", string(id)), res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListExecutionsByInstance returns an instance's step executions in creation
// order
func (s *Store) ListExecutionsByInstance(
	ctx context.Context, id api.InstanceID,
) ([]*api.StepExecution, error) {
	ids, err := s.client.ZRange(
		ctx, s.key("executions", "instance", string(id)), 0, -1,
	).Result()
	if err != nil {
		return nil, err
	}
	res := make([]*api.StepExecution, 0, len(ids))
	for _, execID := range ids {
		exec, err := s.GetExecution(ctx, api.ExecutionID(execID))
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		res = append(res, exec)
	}
	return res, nil
}

// ListExecutionsByStatus returns every step execution currently in the given
// status. Primarily used by the timeout sweeper over RUNNING executions
func (s *Store) ListExecutionsByStatus(
	ctx context.Context, status api.StepStatus,
) ([]*api.StepExecution, error) {
	ids, err := s.members(ctx, s.key("executions", "status", string(status)))
	if err != nil {
		return nil, err
	}
	res := make([]*api.StepExecution, 0, len(ids))
	for _, id := range ids {
		exec, err := s.GetExecution(ctx, api.ExecutionID(id))
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		res = append(res, exec)
	}
	return res, nil
}

// CountExecutionsByStatus returns the number of step executions in the given
// status
func (s *Store) CountExecutionsByStatus(
	ctx context.Context, status api.StepStatus,
) (int64, error) {
	return s.client.SCard(
		ctx, s.key("executions", "status", string(status)),
	).Result()
}

// LatestExecutionForStep returns the most recent execution of the given step
// within an instance, or ErrNotFound when the step has never been executed
func (s *Store) LatestExecutionForStep(
	ctx context.Context, inst api.InstanceID, step api.StepID,
) (*api.StepExecution, error) {
	execs, err := s.ListExecutionsByInstance(ctx, inst)
	if err != nil {
		return nil, err
	}
	for i := len(execs) - 1; i >= 0; i-- {
		if execs[i].StepID == step {
			return execs[i], nil
		}
	}
	return nil, ErrNotFound
}
