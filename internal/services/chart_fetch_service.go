package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rudderhq/rudder/internal/helm"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/logger"
)

// schemaFileName is the declared schema file inside a chart archive.
const schemaFileName = "values.schema.json"

// ChartFetchService pulls chart archives and extracts their declared schema.
type ChartFetchService struct {
	runner helm.Runner
	log    *zap.Logger
}

// NewChartFetchService constructs a chart fetcher.
func NewChartFetchService(runner helm.Runner) (*ChartFetchService, error) {
	if runner == nil {
		return nil, errors.New("chart fetch: helm runner is required")
	}
	return &ChartFetchService{runner: runner, log: logger.WithModule("chart-fetch")}, nil
}

// Fetch pulls repo/chart@version into an ephemeral directory and returns the
// chart's values.schema.json. A chart without a declared schema (or with one
// that does not parse) is a legitimate terminal state and yields the
// canonical empty schema, not an error. The working directory is removed on
// every path before returning.
func (s *ChartFetchService) Fetch(ctx context.Context, repo, chart, version string) (json.RawMessage, error) {
	if s == nil {
		return nil, errors.New("chart fetch: service not initialised")
	}
	ctx = ensuredContext(ctx)

	dir, err := os.MkdirTemp("", "rudder-chart-")
	if err != nil {
		return nil, apperrors.WrapKind(apperrors.KindFetch, err, "create chart working directory")
	}
	defer func() {
		// Best effort: a leftover temp dir must not fail the fetch.
		_ = os.RemoveAll(dir)
	}()

	_, err = s.runner.Run(ctx,
		"pull", fmt.Sprintf("%s/%s", repo, chart),
		"--version", version,
		"--untar",
		"--destination", dir,
	)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNetwork) {
			return nil, err
		}
		var cmdErr *helm.CommandError
		if errors.As(err, &cmdErr) {
			return nil, apperrors.WrapKind(apperrors.KindFetch, err,
				fmt.Sprintf("pull chart %s/%s version %s: %s", repo, chart, version, cmdErr.Stderr))
		}
		return nil, apperrors.WrapKind(apperrors.KindFetch, err,
			fmt.Sprintf("pull chart %s/%s version %s", repo, chart, version))
	}

	content, err := os.ReadFile(filepath.Join(dir, chart, schemaFileName))
	if err != nil {
		s.log.Debug("chart has no declared schema",
			zap.String("repo", repo),
			zap.String("chart", chart),
			zap.String("version", version),
		)
		return emptySchemaDocument(), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(content, &obj); err != nil {
		s.log.Warn("declared schema is not a JSON object, treating as absent",
			zap.String("chart", chart),
			zap.Error(err),
		)
		return emptySchemaDocument(), nil
	}

	return json.RawMessage(content), nil
}
