package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rudderhq/rudder/internal/helm"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/logger"
)

// ChartSearchService locates a chart across repositories and extracts its
// schema via the fetcher.
type ChartSearchService struct {
	runner  helm.Runner
	fetcher *ChartFetchService
	log     *zap.Logger
}

// NewChartSearchService constructs a chart searcher.
func NewChartSearchService(runner helm.Runner, fetcher *ChartFetchService) (*ChartSearchService, error) {
	if runner == nil {
		return nil, errors.New("chart search: helm runner is required")
	}
	if fetcher == nil {
		return nil, errors.New("chart search: fetcher is required")
	}
	return &ChartSearchService{
		runner:  runner,
		fetcher: fetcher,
		log:     logger.WithModule("chart-search"),
	}, nil
}

// SearchRepo confirms chart@version exists in the repository before pulling
// it. A negative existence result is a not_found error and the pull is never
// attempted.
func (s *ChartSearchService) SearchRepo(ctx context.Context, repo, chart, version string) (json.RawMessage, error) {
	if s == nil {
		return nil, errors.New("chart search: service not initialised")
	}
	ctx = ensuredContext(ctx)

	out, err := s.runner.Run(ctx,
		"search", "repo", fmt.Sprintf("%s/%s", repo, chart),
		"--version", version,
		"-o", "json",
	)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNetwork) {
			return nil, err
		}
		var cmdErr *helm.CommandError
		if errors.As(err, &cmdErr) {
			return nil, apperrors.WrapKind(apperrors.KindNotFound, err,
				fmt.Sprintf("chart %s/%s version %s not found in repository: %s", repo, chart, version, cmdErr.Stderr))
		}
		return nil, apperrors.WrapKind(apperrors.KindNotFound, err,
			fmt.Sprintf("search repository %s", repo))
	}

	// helm exits zero with an empty result list when nothing matches.
	var hits []json.RawMessage
	if err := json.Unmarshal(out, &hits); err != nil || len(hits) == 0 {
		return nil, apperrors.NewKind(apperrors.KindNotFound,
			"chart %s/%s version %s not found in repository", repo, chart, version)
	}

	return s.fetcher.Fetch(ctx, repo, chart, version)
}

// SearchAll tries each repository in order. The first success wins; a
// network failure invalidates the remaining candidates and aborts the loop;
// any other failure is remembered and the next repository is tried.
func (s *ChartSearchService) SearchAll(ctx context.Context, repos []string, chart, version string) (json.RawMessage, error) {
	if s == nil {
		return nil, errors.New("chart search: service not initialised")
	}
	ctx = ensuredContext(ctx)

	lastErr := error(apperrors.NewKind(apperrors.KindNotFound,
		"no repositories to search for chart %s version %s", chart, version))

	for _, repo := range repos {
		schema, err := s.SearchRepo(ctx, repo, chart, version)
		if err == nil {
			return schema, nil
		}
		if apperrors.IsKind(err, apperrors.KindNetwork) {
			return nil, err
		}
		s.log.Debug("repository did not yield a schema",
			zap.String("repo", repo),
			zap.String("chart", chart),
			zap.Error(err),
		)
		lastErr = err
	}

	return nil, lastErr
}
