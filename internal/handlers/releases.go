package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rudderhq/rudder/internal/services"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/response"
)

// ReleaseHandler exposes the raw helm release pass-through operations.
type ReleaseHandler struct {
	svc *services.ReleaseService
}

// NewReleaseHandler constructs a release handler.
func NewReleaseHandler(svc *services.ReleaseService) *ReleaseHandler {
	return &ReleaseHandler{svc: svc}
}

func requireNamespace(c *gin.Context) (string, bool) {
	namespace := strings.TrimSpace(c.Query("namespace"))
	if namespace == "" {
		response.Error(c, apperrors.NewBadRequest("namespace query parameter is required"))
		return "", false
	}
	return namespace, true
}

// List returns all releases across all namespaces.
func (h *ReleaseHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// History returns the revision history of one release.
func (h *ReleaseHandler) History(c *gin.Context) {
	namespace, ok := requireNamespace(c)
	if !ok {
		return
	}

	out, err := h.svc.History(c.Request.Context(), c.Param("name"), namespace)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// Values returns the live configuration values of one release.
func (h *ReleaseHandler) Values(c *gin.Context) {
	namespace, ok := requireNamespace(c)
	if !ok {
		return
	}

	out, err := h.svc.Values(c.Request.Context(), c.Param("name"), namespace)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// Manifest returns the rendered manifest of one release.
func (h *ReleaseHandler) Manifest(c *gin.Context) {
	namespace, ok := requireNamespace(c)
	if !ok {
		return
	}

	out, err := h.svc.Manifest(c.Request.Context(), c.Param("name"), namespace)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"manifest": out})
}

type rollbackRequest struct {
	Namespace string `json:"namespace" binding:"required"`
	Revision  int    `json:"revision" binding:"required,min=1"`
}

// Rollback reverts a release to a previous revision.
func (h *ReleaseHandler) Rollback(c *gin.Context) {
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("namespace and a positive revision are required"))
		return
	}

	out, err := h.svc.Rollback(c.Request.Context(), c.Param("name"), req.Namespace, req.Revision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}

type upgradeRequest struct {
	ChartPath string          `json:"chart_path" binding:"required"`
	Values    json.RawMessage `json:"values" binding:"required"`
}

// Upgrade applies new values to a release (installing it when absent).
func (h *ReleaseHandler) Upgrade(c *gin.Context) {
	var req upgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("chart_path and values are required"))
		return
	}

	out, err := h.svc.Upgrade(c.Request.Context(), c.Param("name"), req.ChartPath, req.Values)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}
