package store

import (
	"context"
	"sort"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// SaveTemplate persists a workflow template and indexes it for listing
func (s *Store) SaveTemplate(
	ctx context.Context, tpl *api.WorkflowTemplate,
) error {
	if err := s.setJSON(ctx, s.key("template", string(tpl.ID)), tpl); err != nil {
		return err
	}
	return s.client.SAdd(ctx, s.key("templates"), string(tpl.ID)).Err()
}

// GetTemplate retrieves a workflow template by id
func (s *Store) GetTemplate(
	ctx context.Context, id api.TemplateID,
) (*api.WorkflowTemplate, error) {
	res := new(api.WorkflowTemplate)
	if err := s.getJSON(ctx, s.key("template", string(id)), res); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteTemplate removes a workflow template and its index entry
func (s *Store) DeleteTemplate(ctx context.Context, id api.TemplateID) error {
	if err := s.client.SRem(
		ctx, s.key("templates"), string(id),
	).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key("template", string(id))).Err()
}

// ListTemplates returns all workflow templates ordered by name then id
func (s *Store) ListTemplates(
	ctx context.Context,
) ([]*api.WorkflowTemplate, error) {
	ids, err := s.members(ctx, s.key("templates"))
	if err != nil {
		return nil, err
	}
	res := make([]*api.WorkflowTemplate, 0, len(ids))
	for _, id := range ids {
		tpl, err := s.GetTemplate(ctx, api.TemplateID(id))
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		res = append(res, tpl)
	}
	sort.Slice(res, func(l, r int) bool {
		if res[l].Name != res[r].Name {
			return res[l].Name < res[r].Name
		}
		return res[l].ID < res[r].ID
	})
	return res, nil
}

// ListPublicTemplates returns the templates shared across teams
func (s *Store) ListPublicTemplates(
	ctx context.Context,
) ([]*api.WorkflowTemplate, error) {
	all, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*api.WorkflowTemplate, 0, len(all))
	for _, tpl := range all {
		if tpl.Public {
			res = append(res, tpl)
		}
	}
	return res, nil
}

// ListTemplatesByCategory returns the templates filed under a category
func (s *Store) ListTemplatesByCategory(
	ctx context.Context, category string,
) ([]*api.WorkflowTemplate, error) {
	all, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*api.WorkflowTemplate, 0, len(all))
	for _, tpl := range all {
		if tpl.Category == category {
			res = append(res, tpl)
		}
	}
	return res, nil
}
