package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/respond"
	"humanityclub/site/internal/service"
)

type projectRequest struct {
	Title       string `json:"title" binding:"required,notblank"`
	Description string `json:"description" binding:"required,notblank"`
	Image       string `json:"image"`
}

var errProjectText = apperr.New(apperr.KindValidation, "Title and description are required")

var projectRules = fieldRules{"Title": errProjectText, "Description": errProjectText}

func (h HandlerSet) ListProjects(c *gin.Context) {
	projects, err := h.deps.Projects.List(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, toProject(p))
	}
	respond.OK(c, items)
}

func (h HandlerSet) CreateProject(c *gin.Context) {
	var req projectRequest
	if err := bindJSON(c, &req, projectRules); err != nil {
		respond.Error(c, err)
		return
	}

	project, err := h.deps.Projects.Create(c.Request.Context(), service.ProjectInput(req))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "Project created successfully", toProject(project))
}

func (h HandlerSet) UpdateProject(c *gin.Context) {
	var req projectRequest
	if err := bindJSON(c, &req, projectRules); err != nil {
		respond.Error(c, err)
		return
	}

	project, err := h.deps.Projects.Update(c.Request.Context(), c.Param("projectId"), service.ProjectInput(req))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Project updated successfully", toProject(project))
}

func (h HandlerSet) ReplaceProjectImage(c *gin.Context) {
	upload, closeFile, err := formImage(c)
	if err != nil {
		respond.Error(c, apperr.Wrap(err, apperr.KindValidation, "Could not read uploaded file"))
		return
	}
	defer closeFile()

	project, err := h.deps.Projects.ReplaceImage(c.Request.Context(), c.Param("projectId"), upload)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Project image updated successfully", toProject(project))
}

func (h HandlerSet) DeleteProject(c *gin.Context) {
	if err := h.deps.Projects.Delete(c.Request.Context(), c.Param("projectId")); err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Project deleted successfully", nil)
}
