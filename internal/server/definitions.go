package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func (s *Server) listDefinitions(c *gin.Context) {
	var (
		defs []*api.WorkflowDefinition
		err  error
	)
	if c.Query("active") == "true" {
		defs, err = s.store.ListActiveDefinitions(c.Request.Context())
	} else {
		defs, err = s.store.ListDefinitions(c.Request.Context())
	}
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.DefinitionListResponse{
		Definitions: defs,
		Count:       len(defs),
	})
}

func (s *Server) createDefinition(c *gin.Context) {
	var def api.WorkflowDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	if err := def.Validate(); err != nil {
		abortBadRequest(c, err)
		return
	}

	res, err := s.engine.CreateDefinition(c.Request.Context(), &def)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) getDefinition(c *gin.Context) {
	id := api.DefinitionID(c.Param("defID"))
	def, err := s.engine.GetDefinition(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (s *Server) updateDefinition(c *gin.Context) {
	var def api.WorkflowDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	def.ID = api.DefinitionID(c.Param("defID"))
	if err := def.Validate(); err != nil {
		abortBadRequest(c, err)
		return
	}

	res, err := s.engine.UpdateDefinition(c.Request.Context(), &def)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) deleteDefinition(c *gin.Context) {
	id := api.DefinitionID(c.Param("defID"))
	if err := s.engine.DeleteDefinition(c.Request.Context(), id); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deactivateDefinition(c *gin.Context) {
	id := api.DefinitionID(c.Param("defID"))
	def, err := s.engine.DeactivateDefinition(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (s *Server) listTemplates(c *gin.Context) {
	var (
		tpls []*api.WorkflowTemplate
		err  error
	)
	switch {
	case c.Query("category") != "":
		tpls, err = s.store.ListTemplatesByCategory(
			c.Request.Context(), c.Query("category"),
		)
	case c.Query("public") == "true":
		tpls, err = s.store.ListPublicTemplates(c.Request.Context())
	default:
		tpls, err = s.store.ListTemplates(c.Request.Context())
	}
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.TemplateListResponse{
		Templates: tpls,
		Count:     len(tpls),
	})
}

func (s *Server) createTemplate(c *gin.Context) {
	var tpl api.WorkflowTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	if err := tpl.Validate(); err != nil {
		abortBadRequest(c, err)
		return
	}

	res, err := s.engine.CreateTemplate(c.Request.Context(), &tpl)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) getTemplate(c *gin.Context) {
	id := api.TemplateID(c.Param("templateID"))
	tpl, err := s.engine.GetTemplate(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (s *Server) instantiateTemplate(c *gin.Context) {
	var req api.InstantiateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	if req.Name == "" {
		abortBadRequest(c, fmt.Errorf("%w: name is required", ErrInvalidJSON))
		return
	}

	id := api.TemplateID(c.Param("templateID"))
	def, err := s.engine.InstantiateTemplate(
		c.Request.Context(), id, req.Name, req.Description,
	)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, def)
}
