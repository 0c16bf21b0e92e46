package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// CreateDefinition validates and stores a new workflow definition. The
// definition starts at version 1 and is immediately active
func (e *Engine) CreateDefinition(
	ctx context.Context, def *api.WorkflowDefinition,
) (*api.WorkflowDefinition, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	now := e.Now()
	res := *def
	if res.ID == "" {
		res.ID = api.NewID[api.DefinitionID]()
	}
	res.Version = 1
	res.Active = true
	res.CreatedAt = now
	res.UpdatedAt = now
	if err := e.store.SaveDefinition(ctx, &res); err != nil {
		return nil, err
	}
	e.logger.Info("Workflow definition created",
		log.DefinitionID(res.ID),
		slog.String("name", res.Name))
	return &res, nil
}

// UpdateDefinition replaces a definition's graph and bumps its version.
// Running instances keep executing against the version they started with
// only insofar as their current step still exists; the stored graph is the
// single source of truth
func (e *Engine) UpdateDefinition(
	ctx context.Context, def *api.WorkflowDefinition,
) (*api.WorkflowDefinition, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	prev, err := e.GetDefinition(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	res := *def
	res.Version = prev.Version + 1
	res.CreatedAt = prev.CreatedAt
	res.CreatedBy = prev.CreatedBy
	res.UpdatedAt = e.Now()
	if err := e.store.SaveDefinition(ctx, &res); err != nil {
		return nil, err
	}
	e.logger.Info("Workflow definition updated",
		log.DefinitionID(res.ID),
		slog.Int("version", res.Version))
	return &res, nil
}

// DeactivateDefinition closes a definition for new instantiations without
// touching instances already in flight
func (e *Engine) DeactivateDefinition(
	ctx context.Context, id api.DefinitionID,
) (*api.WorkflowDefinition, error) {
	def, err := e.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	def.Active = false
	def.UpdatedAt = e.Now()
	if err := e.store.SaveDefinition(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// DeleteDefinition removes a definition outright
func (e *Engine) DeleteDefinition(
	ctx context.Context, id api.DefinitionID,
) error {
	if _, err := e.GetDefinition(ctx, id); err != nil {
		return err
	}
	return e.store.DeleteDefinition(ctx, id)
}

// GetDefinition retrieves a workflow definition
func (e *Engine) GetDefinition(
	ctx context.Context, id api.DefinitionID,
) (*api.WorkflowDefinition, error) {
	def, err := e.store.GetDefinition(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDefinitionNotFound
	}
	return def, err
}

// CreateTemplate validates and stores a reusable workflow template
func (e *Engine) CreateTemplate(
	ctx context.Context, tpl *api.WorkflowTemplate,
) (*api.WorkflowTemplate, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	now := e.Now()
	res := *tpl
	if res.ID == "" {
		res.ID = api.NewID[api.TemplateID]()
	}
	res.CreatedAt = now
	res.UpdatedAt = now
	if err := e.store.SaveTemplate(ctx, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetTemplate retrieves a workflow template
func (e *Engine) GetTemplate(
	ctx context.Context, id api.TemplateID,
) (*api.WorkflowTemplate, error) {
	tpl, err := e.store.GetTemplate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	return tpl, err
}

// InstantiateTemplate derives a fresh active definition from a template. The
// derived definition gets its own identity and version history
func (e *Engine) InstantiateTemplate(
	ctx context.Context, id api.TemplateID, name, description string,
) (*api.WorkflowDefinition, error) {
	tpl, err := e.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	def := tpl.NewDefinition(name, description, e.Now())
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.SaveDefinition(ctx, def); err != nil {
		return nil, err
	}
	e.logger.Info("Definition instantiated from template",
		log.DefinitionID(def.ID),
		slog.String("template_id", string(id)))
	return def, nil
}
