package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rudderhq/rudder/internal/helm"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
)

const searchHit = `[{"name":"stable/web","version":"1.0.0"}]`

// searchingRunner answers search calls per repo and materialises pulled
// charts with the given schema.
func searchingRunner(t *testing.T, search func(repo string) ([]byte, error), schema string) *scriptedRunner {
	t.Helper()
	return &scriptedRunner{handler: func(args []string) ([]byte, error) {
		switch args[0] {
		case "search":
			repoChart := args[2]
			return search(filepath.Dir(repoChart))
		case "pull":
			dir := pullDestination(t, args)
			repoChart := args[1]
			chartDir := filepath.Join(dir, filepath.Base(repoChart))
			require.NoError(t, os.MkdirAll(chartDir, 0o755))
			if schema != "" {
				require.NoError(t, os.WriteFile(filepath.Join(chartDir, "values.schema.json"), []byte(schema), 0o644))
			}
			return nil, nil
		default:
			t.Fatalf("unexpected helm call: %v", args)
			return nil, nil
		}
	}}
}

func newSearcher(t *testing.T, runner helm.Runner) *ChartSearchService {
	t.Helper()
	fetcher, err := NewChartFetchService(runner)
	require.NoError(t, err)
	searcher, err := NewChartSearchService(runner, fetcher)
	require.NoError(t, err)
	return searcher
}

func TestSearchRepoFoundDelegatesToFetch(t *testing.T) {
	schema := `{"type":"object","properties":{"port":{"type":"integer","default":80}}}`
	runner := searchingRunner(t, func(string) ([]byte, error) {
		return []byte(searchHit), nil
	}, schema)

	searcher := newSearcher(t, runner)

	doc, err := searcher.SearchRepo(context.Background(), "stable", "web", "1.0.0")
	require.NoError(t, err)
	require.JSONEq(t, schema, string(doc))
	require.True(t, runner.called("pull"))
}

func TestSearchRepoEmptyResultIsNotFoundWithoutPull(t *testing.T) {
	runner := searchingRunner(t, func(string) ([]byte, error) {
		return []byte(`[]`), nil
	}, "")

	searcher := newSearcher(t, runner)

	_, err := searcher.SearchRepo(context.Background(), "stable", "web", "1.0.0")
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	require.False(t, runner.called("pull"))
}

func TestSearchRepoCommandFailureIsNotFound(t *testing.T) {
	runner := &scriptedRunner{handler: func(args []string) ([]byte, error) {
		return nil, &helm.CommandError{Args: args, Stderr: "Error: no results found"}
	}}

	searcher := newSearcher(t, runner)

	_, err := searcher.SearchRepo(context.Background(), "stable", "web", "1.0.0")
	require.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSearchAllFirstSuccessShortCircuits(t *testing.T) {
	schema := `{"type":"object","properties":{"x":{"type":"string","default":"y"}}}`
	runner := searchingRunner(t, func(repo string) ([]byte, error) {
		switch repo {
		case "a":
			return nil, &helm.CommandError{Stderr: "Error: no results found"}
		case "b":
			return []byte(searchHit), nil
		default:
			return nil, fmt.Errorf("repo %s should not be searched", repo)
		}
	}, schema)

	searcher := newSearcher(t, runner)

	doc, err := searcher.SearchAll(context.Background(), []string{"a", "b", "c"}, "web", "1.0.0")
	require.NoError(t, err)
	require.JSONEq(t, schema, string(doc))

	// c was never reached.
	for _, call := range runner.calls {
		if call[0] == "search" {
			require.NotContains(t, call[2], "c/")
		}
	}
}

func TestSearchAllNetworkErrorAborts(t *testing.T) {
	searched := []string{}
	runner := searchingRunner(t, func(repo string) ([]byte, error) {
		searched = append(searched, repo)
		return nil, apperrors.NewKind(apperrors.KindNetwork, "dial tcp: i/o timeout")
	}, "")

	searcher := newSearcher(t, runner)

	_, err := searcher.SearchAll(context.Background(), []string{"a", "b", "c"}, "web", "1.0.0")
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.KindNetwork))
	require.Equal(t, []string{"a"}, searched)
}

func TestSearchAllExhaustionReturnsLastError(t *testing.T) {
	runner := searchingRunner(t, func(repo string) ([]byte, error) {
		return nil, &helm.CommandError{Stderr: "Error: no results found in " + repo}
	}, "")

	searcher := newSearcher(t, runner)

	_, err := searcher.SearchAll(context.Background(), []string{"a", "b"}, "web", "1.0.0")
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	require.Contains(t, err.Error(), "b")
}

func TestSearchAllEmptyCandidatesFails(t *testing.T) {
	runner := &scriptedRunner{}
	searcher := newSearcher(t, runner)

	_, err := searcher.SearchAll(context.Background(), nil, "web", "1.0.0")
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	require.Empty(t, runner.calls)
}
