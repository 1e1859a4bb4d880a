package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/rudderhq/rudder/internal/app"
	"github.com/rudderhq/rudder/internal/handlers"
	"github.com/rudderhq/rudder/internal/helm"
	"github.com/rudderhq/rudder/internal/middleware"
	"github.com/rudderhq/rudder/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, runner helm.Runner, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if runner == nil {
		return nil, fmt.Errorf("helm runner must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	store, err := services.NewSchemaStoreService(db)
	if err != nil {
		return nil, err
	}
	repos, err := services.NewRepoService(runner)
	if err != nil {
		return nil, err
	}
	fetcher, err := services.NewChartFetchService(runner)
	if err != nil {
		return nil, err
	}
	searcher, err := services.NewChartSearchService(runner, fetcher)
	if err != nil {
		return nil, err
	}
	values, err := services.NewValuesSchemaService(runner)
	if err != nil {
		return nil, err
	}
	resolver, err := services.NewSchemaResolverService(store, repos, searcher, values)
	if err != nil {
		return nil, err
	}
	releases, err := services.NewReleaseService(runner)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	registerSchemaRoutes(api, handlers.NewSchemaHandler(resolver))
	registerReleaseRoutes(api, handlers.NewReleaseHandler(releases))

	return r, nil
}
