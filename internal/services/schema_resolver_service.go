package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rudderhq/rudder/internal/models"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/logger"
	"github.com/rudderhq/rudder/pkg/metrics"
)

// noReposSentinel is the repo name empty schemas are cached under when the
// package manager has no repositories configured at all.
const noReposSentinel = "no-repos-available"

// ResolveInput identifies the chart whose schema is requested. Namespace and
// ReleaseName are optional; both are required for the values-synthesis
// fallback to run.
type ResolveInput struct {
	ChartName    string
	ChartVersion string
	RepoName     string
	Namespace    string
	ReleaseName  string
}

// SchemaResolverService composes cache, discovery, search and synthesis into
// the end-to-end resolution policy. It owns every cache write.
type SchemaResolverService struct {
	store    *SchemaStoreService
	repos    *RepoService
	searcher *ChartSearchService
	values   *ValuesSchemaService
	log      *zap.Logger
}

// NewSchemaResolverService constructs the resolution orchestrator.
func NewSchemaResolverService(
	store *SchemaStoreService,
	repos *RepoService,
	searcher *ChartSearchService,
	values *ValuesSchemaService,
) (*SchemaResolverService, error) {
	if store == nil {
		return nil, errors.New("schema resolver: store is required")
	}
	if repos == nil {
		return nil, errors.New("schema resolver: repo service is required")
	}
	if searcher == nil {
		return nil, errors.New("schema resolver: searcher is required")
	}
	if values == nil {
		return nil, errors.New("schema resolver: values service is required")
	}
	return &SchemaResolverService{
		store:    store,
		repos:    repos,
		searcher: searcher,
		values:   values,
		log:      logger.WithModule("schema-resolver"),
	}, nil
}

// Resolve runs the resolution state machine and returns the schema document
// as a JSON string. Every miss is persisted, including the empty-schema
// fallbacks, so the expensive path is not re-run on the next request. Only
// store and network failures escape as errors; every other failure shape
// degrades to a cached empty schema.
func (s *SchemaResolverService) Resolve(ctx context.Context, in ResolveInput) (string, error) {
	if s == nil {
		return "", errors.New("schema resolver: service not initialised")
	}
	ctx = ensuredContext(ctx)

	// Cache check. An empty cached schema is ambiguous between "confirmed no
	// schema" and "generation previously failed", so it never counts as a hit.
	entry, err := s.store.Get(ctx, in.ChartName, in.ChartVersion, in.RepoName)
	if err != nil {
		metrics.SchemaResolutions.WithLabelValues("error").Inc()
		return "", err
	}
	if entry != nil && schemaHasProperties(entry.SchemaContent) {
		s.log.Debug("cache hit",
			zap.String("chart", in.ChartName),
			zap.String("version", in.ChartVersion),
			zap.String("repo", in.RepoName),
		)
		metrics.SchemaResolutions.WithLabelValues("cache_hit").Inc()
		return string(entry.SchemaContent), nil
	}

	// Source resolution: a known requested repo narrows the search to
	// itself, otherwise every discovered repo is a candidate.
	available, requestedExists := s.repos.AvailableRepos(ctx, in.RepoName)
	candidates := available
	if requestedExists {
		candidates = []string{in.RepoName}
	}

	if len(candidates) == 0 {
		return s.cacheEmptySchema(ctx, in, noReposSentinel)
	}

	schema, err := s.searcher.SearchAll(ctx, candidates, in.ChartName, in.ChartVersion)
	if err == nil {
		// When exactly one candidate was tried the entry is keyed by the
		// requested repo, otherwise by the first candidate searched.
		storeRepo := candidates[0]
		if len(candidates) == 1 {
			storeRepo = in.RepoName
		}
		if err := s.store.Put(ctx, in.ChartName, in.ChartVersion, storeRepo, namespacePtr(in.Namespace), schema); err != nil {
			metrics.SchemaResolutions.WithLabelValues("error").Inc()
			return "", err
		}
		metrics.SchemaResolutions.WithLabelValues("repo").Inc()
		return string(schema), nil
	}
	if apperrors.IsKind(err, apperrors.KindNetwork) {
		// An unreachable network invalidates synthesis as well; surface it.
		metrics.SchemaResolutions.WithLabelValues("error").Inc()
		return "", err
	}

	// Synthesis fallback, only when a live release was identified.
	if in.ReleaseName != "" && in.Namespace != "" {
		generated, genErr := s.values.Synthesize(ctx, in.ReleaseName, in.Namespace)
		if genErr == nil {
			if err := s.store.Put(ctx, in.ChartName, in.ChartVersion, in.RepoName, namespacePtr(in.Namespace), generated); err != nil {
				metrics.SchemaResolutions.WithLabelValues("error").Inc()
				return "", err
			}
			metrics.SchemaResolutions.WithLabelValues("values").Inc()
			return string(generated), nil
		}
		s.log.Warn("values synthesis failed, falling back to empty schema",
			zap.String("release", in.ReleaseName),
			zap.String("namespace", in.Namespace),
			zap.Error(genErr),
		)
	}

	return s.cacheEmptySchema(ctx, in, in.RepoName)
}

// ListCached returns every cache row, most recent first.
func (s *SchemaResolverService) ListCached(ctx context.Context) ([]models.ChartSchema, error) {
	return s.store.List(ctx)
}

// ClearCache removes every cache row and reports the count.
func (s *SchemaResolverService) ClearCache(ctx context.Context) (int64, error) {
	return s.store.Clear(ctx)
}

// DeleteCacheEntry removes one cache row by key.
func (s *SchemaResolverService) DeleteCacheEntry(ctx context.Context, chart, version, repo string) error {
	return s.store.Delete(ctx, chart, version, repo)
}

// cacheEmptySchema persists and returns the canonical empty schema. Absence
// of a schema is a valid, cached result, never an error to the caller.
func (s *SchemaResolverService) cacheEmptySchema(ctx context.Context, in ResolveInput, repo string) (string, error) {
	document := emptySchemaDocument()
	if err := s.store.Put(ctx, in.ChartName, in.ChartVersion, repo, namespacePtr(in.Namespace), document); err != nil {
		metrics.SchemaResolutions.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.SchemaResolutions.WithLabelValues("empty").Inc()
	return string(document), nil
}

func namespacePtr(namespace string) *string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil
	}
	return &namespace
}
