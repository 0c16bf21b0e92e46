package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// SaveContext persists an execution context, keyed by its owning instance.
// Contexts version monotonically; a write whose Version does not exceed the
// stored one lost a concurrent update race and yields ErrConflict
func (s *Store) SaveContext(
	ctx context.Context, ec *api.ExecutionContext,
) error {
	key := s.key("context", "instance", string(ec.InstanceID))
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			prev := new(api.ExecutionContext)
			if err := json.Unmarshal(data, prev); err != nil {
				return err
			}
			if prev.Version >= ec.Version {
				return ErrConflict
			}
		}
		doc, err := json.Marshal(ec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, doc, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

// GetContext retrieves the execution context belonging to an instance
func (s *Store) GetContext(
	ctx context.Context, inst api.InstanceID,
) (*api.ExecutionContext, error) {
	res := new(api.ExecutionContext)
	key := s.key("context", "instance", string(inst))
	if err := s.getJSON(ctx, key, res); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteContext removes the execution context belonging to an instance
func (s *Store) DeleteContext(ctx context.Context, inst api.InstanceID) error {
	return s.client.Del(
		ctx, s.key("context", "instance", string(inst)),
	).Err()
}
