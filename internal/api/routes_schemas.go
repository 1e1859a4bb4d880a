package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rudderhq/rudder/internal/handlers"
)

func registerSchemaRoutes(api *gin.RouterGroup, h *handlers.SchemaHandler) {
	schemas := api.Group("/schemas")
	{
		schemas.POST("/resolve", h.Resolve)
		schemas.GET("", h.List)
		schemas.DELETE("", h.Clear)
		schemas.DELETE("/entry", h.DeleteEntry)
	}
}
