package store

import (
	"context"
	"sort"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// SaveDefinition persists a workflow definition and indexes it for listing
func (s *Store) SaveDefinition(
	ctx context.Context, def *api.WorkflowDefinition,
) error {
	if err := s.setJSON(ctx, s.key("definition", string(def.ID)), def); err != nil {
		return err
	}
	return s.client.SAdd(ctx, s.key("definitions"), string(def.ID)).Err()
}

// GetDefinition retrieves a workflow definition by id
func (s *Store) GetDefinition(
	ctx context.Context, id api.DefinitionID,
) (*api.WorkflowDefinition, error) {
	res := new(api.WorkflowDefinition)
	if err := s.getJSON(ctx, s.key("definition", string(id)), res); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteDefinition removes a workflow definition and its index entry
func (s *Store) DeleteDefinition(
	ctx context.Context, id api.DefinitionID,
) error {
	if err := s.client.SRem(
		ctx, s.key("definitions"), string(id),
	).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key("definition", string(id))).Err()
}

// ListDefinitions returns all workflow definitions ordered by name then id
func (s *Store) ListDefinitions(
	ctx context.Context,
) ([]*api.WorkflowDefinition, error) {
	ids, err := s.members(ctx, s.key("definitions"))
	if err != nil {
		return nil, err
	}
	res := make([]*api.WorkflowDefinition, 0, len(ids))
	for _, id := range ids {
		def, err := s.GetDefinition(ctx, api.DefinitionID(id))
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		res = append(res, def)
	}
	sort.Slice(res, func(l, r int) bool {
		if res[l].Name != res[r].Name {
			return res[l].Name < res[r].Name
		}
		return res[l].ID < res[r].ID
	})
	return res, nil
}

// ListActiveDefinitions returns only the definitions still open for
// instantiation
func (s *Store) ListActiveDefinitions(
	ctx context.Context,
) ([]*api.WorkflowDefinition, error) {
	all, err := s.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*api.WorkflowDefinition, 0, len(all))
	for _, def := range all {
		if def.Active {
			res = append(res, def)
		}
	}
	return res, nil
}
