package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rudderhq/rudder/internal/models"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/metrics"
)

// SchemaStoreService persists resolved chart schemas. All operations
// serialize through one process-wide mutex over the store handle: at most
// one in-flight store operation at a time.
type SchemaStoreService struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewSchemaStoreService constructs the schema cache store.
func NewSchemaStoreService(db *gorm.DB) (*SchemaStoreService, error) {
	if db == nil {
		return nil, errors.New("schema store: db is required")
	}
	return &SchemaStoreService{db: db}, nil
}

// Put upserts a schema document under the (chart, version, repo) key.
// Later writes replace earlier ones for the same key, and an overwrite
// re-stamps created_at: every write counts as the newest entry.
func (s *SchemaStoreService) Put(ctx context.Context, chart, version, repo string, namespace *string, document json.RawMessage) error {
	if s == nil {
		return errors.New("schema store: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var obj map[string]any
	if err := json.Unmarshal(document, &obj); err != nil {
		return apperrors.WrapKind(apperrors.KindStore, err, "schema document is not a JSON object")
	}
	if obj == nil {
		// json.Unmarshal accepts the literal null without error.
		return apperrors.NewKind(apperrors.KindStore, "schema document is not a JSON object")
	}

	entry := models.ChartSchema{
		ChartName:     chart,
		ChartVersion:  version,
		RepoName:      repo,
		Namespace:     namespace,
		SchemaContent: datatypes.JSON(document),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "chart_name"},
				{Name: "chart_version"},
				{Name: "repo_name"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"namespace", "schema_content", "created_at", "updated_at"}),
		}).Create(&entry).Error
	if err != nil {
		return apperrors.WrapKind(apperrors.KindStore, err, "store chart schema")
	}

	s.refreshGauge(ctx)
	return nil
}

// Get returns the cached entry for the key, or nil when no row matches.
// A stored document that no longer parses as JSON is a store error, not a
// silent miss: the caller decides the fallback.
func (s *SchemaStoreService) Get(ctx context.Context, chart, version, repo string) (*models.ChartSchema, error) {
	if s == nil {
		return nil, errors.New("schema store: service not initialised")
	}
	ctx = ensuredContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	var entry models.ChartSchema
	err := s.db.WithContext(ctx).
		Take(&entry, "chart_name = ? AND chart_version = ? AND repo_name = ?", chart, version, repo).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.WrapKind(apperrors.KindStore, err, "query chart schema")
	}

	var obj map[string]any
	if err := json.Unmarshal(entry.SchemaContent, &obj); err != nil {
		return nil, apperrors.WrapKind(apperrors.KindStore, err, "cached schema document is corrupt")
	}

	return &entry, nil
}

// List returns every cached entry, most recent first.
func (s *SchemaStoreService) List(ctx context.Context) ([]models.ChartSchema, error) {
	if s == nil {
		return nil, errors.New("schema store: service not initialised")
	}
	ctx = ensuredContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.ChartSchema
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, apperrors.WrapKind(apperrors.KindStore, err, "list chart schemas")
	}

	metrics.CachedSchemas.Set(float64(len(entries)))
	return entries, nil
}

// Delete removes a single entry by key. Deleting an absent key is not an error.
func (s *SchemaStoreService) Delete(ctx context.Context, chart, version, repo string) error {
	if s == nil {
		return errors.New("schema store: service not initialised")
	}
	ctx = ensuredContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).
		Where("chart_name = ? AND chart_version = ? AND repo_name = ?", chart, version, repo).
		Delete(&models.ChartSchema{}).Error
	if err != nil {
		return apperrors.WrapKind(apperrors.KindStore, err, "delete chart schema")
	}

	s.refreshGauge(ctx)
	return nil
}

// Clear removes every cached entry and reports how many rows were deleted.
func (s *SchemaStoreService) Clear(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("schema store: service not initialised")
	}
	ctx = ensuredContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.ChartSchema{})
	if res.Error != nil {
		return 0, apperrors.WrapKind(apperrors.KindStore, res.Error, "clear chart schemas")
	}

	metrics.CachedSchemas.Set(0)
	return res.RowsAffected, nil
}

// refreshGauge keeps the cached-row gauge current. Best effort.
func (s *SchemaStoreService) refreshGauge(ctx context.Context) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ChartSchema{}).Count(&count).Error; err == nil {
		metrics.CachedSchemas.Set(float64(count))
	}
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
