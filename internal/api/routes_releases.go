package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rudderhq/rudder/internal/handlers"
)

func registerReleaseRoutes(api *gin.RouterGroup, h *handlers.ReleaseHandler) {
	releases := api.Group("/releases")
	{
		releases.GET("", h.List)
		releases.GET("/:name/history", h.History)
		releases.GET("/:name/values", h.Values)
		releases.GET("/:name/manifest", h.Manifest)
		releases.POST("/:name/rollback", h.Rollback)
		releases.POST("/:name/upgrade", h.Upgrade)
	}
}
