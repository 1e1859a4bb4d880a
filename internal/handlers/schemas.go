package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rudderhq/rudder/internal/models"
	"github.com/rudderhq/rudder/internal/services"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/response"
)

// SchemaHandler exposes schema resolution and cache management.
type SchemaHandler struct {
	resolver *services.SchemaResolverService
}

// NewSchemaHandler constructs a schema handler.
func NewSchemaHandler(resolver *services.SchemaResolverService) *SchemaHandler {
	return &SchemaHandler{resolver: resolver}
}

type resolveSchemaRequest struct {
	ChartName    string `json:"chart_name" binding:"required"`
	ChartVersion string `json:"chart_version" binding:"required"`
	RepoName     string `json:"repo_name" binding:"required"`
	Namespace    string `json:"namespace"`
	ReleaseName  string `json:"release_name"`
}

type cachedSchemaDTO struct {
	ChartName     string          `json:"chart_name"`
	ChartVersion  string          `json:"chart_version"`
	RepoName      string          `json:"repo_name"`
	Namespace     *string         `json:"namespace,omitempty"`
	SchemaContent json.RawMessage `json:"schema_content"`
	CreatedAt     string          `json:"created_at"`
}

func mapCachedSchema(entry *models.ChartSchema) cachedSchemaDTO {
	createdAt := ""
	if !entry.CreatedAt.IsZero() {
		createdAt = entry.CreatedAt.Format(time.RFC3339)
	}
	return cachedSchemaDTO{
		ChartName:     entry.ChartName,
		ChartVersion:  entry.ChartVersion,
		RepoName:      entry.RepoName,
		Namespace:     entry.Namespace,
		SchemaContent: json.RawMessage(entry.SchemaContent),
		CreatedAt:     createdAt,
	}
}

// Resolve runs the resolution pipeline for the requested chart.
func (h *SchemaHandler) Resolve(c *gin.Context) {
	var req resolveSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("chart_name, chart_version and repo_name are required"))
		return
	}

	document, err := h.resolver.Resolve(c.Request.Context(), services.ResolveInput{
		ChartName:    req.ChartName,
		ChartVersion: req.ChartVersion,
		RepoName:     req.RepoName,
		Namespace:    req.Namespace,
		ReleaseName:  req.ReleaseName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schema": json.RawMessage(document)})
}

// List returns every cached schema, most recent first.
func (h *SchemaHandler) List(c *gin.Context) {
	entries, err := h.resolver.ListCached(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	dtos := make([]cachedSchemaDTO, 0, len(entries))
	for i := range entries {
		dtos = append(dtos, mapCachedSchema(&entries[i]))
	}
	response.Success(c, http.StatusOK, dtos)
}

// Clear empties the schema cache and reports how many entries were removed.
func (h *SchemaHandler) Clear(c *gin.Context) {
	count, err := h.resolver.ClearCache(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": count})
}

// DeleteEntry removes one cached schema identified by its key triple.
func (h *SchemaHandler) DeleteEntry(c *gin.Context) {
	chart := strings.TrimSpace(c.Query("chart_name"))
	version := strings.TrimSpace(c.Query("chart_version"))
	repo := strings.TrimSpace(c.Query("repo_name"))
	if chart == "" || version == "" || repo == "" {
		response.Error(c, apperrors.NewBadRequest("chart_name, chart_version and repo_name are required"))
		return
	}

	if err := h.resolver.DeleteCacheEntry(c.Request.Context(), chart, version, repo); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
