package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	testutil "github.com/rudderhq/rudder/internal/database/testutil"
	"github.com/rudderhq/rudder/internal/services"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// fakeRunner scripts helm invocations for handler tests.
type fakeRunner struct {
	calls   [][]string
	handler func(args []string) ([]byte, error)
}

func (r *fakeRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	r.calls = append(r.calls, args)
	if r.handler == nil {
		return nil, nil
	}
	return r.handler(args)
}

func (r *fakeRunner) countVerb(verb string) int {
	n := 0
	for _, call := range r.calls {
		if len(call) > 0 && call[0] == verb {
			n++
		}
	}
	return n
}

func newSchemaRouter(t *testing.T, runner *fakeRunner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	store, err := services.NewSchemaStoreService(db)
	require.NoError(t, err)
	repos, err := services.NewRepoService(runner)
	require.NoError(t, err)
	fetcher, err := services.NewChartFetchService(runner)
	require.NoError(t, err)
	searcher, err := services.NewChartSearchService(runner, fetcher)
	require.NoError(t, err)
	values, err := services.NewValuesSchemaService(runner)
	require.NoError(t, err)
	resolver, err := services.NewSchemaResolverService(store, repos, searcher, values)
	require.NoError(t, err)

	handler := NewSchemaHandler(resolver)

	router := gin.New()
	router.POST("/api/schemas/resolve", handler.Resolve)
	router.GET("/api/schemas", handler.List)
	router.DELETE("/api/schemas", handler.Clear)
	router.DELETE("/api/schemas/entry", handler.DeleteEntry)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestSchemaHandler_ResolveFromRepositoryAndCache(t *testing.T) {
	declared := `{"type":"object","properties":{"replicas":{"type":"integer"}}}`

	runner := &fakeRunner{}
	runner.handler = func(args []string) ([]byte, error) {
		switch args[0] {
		case "repo":
			return []byte("NAME\tURL\nstable\thttps://charts.example.com\n"), nil
		case "search":
			return []byte(`[{"name":"stable/web","version":"1.2.0"}]`), nil
		case "pull":
			dest := ""
			for i, arg := range args {
				if arg == "--destination" && i+1 < len(args) {
					dest = args[i+1]
				}
			}
			require.NotEmpty(t, dest)
			chartDir := filepath.Join(dest, "web")
			require.NoError(t, os.MkdirAll(chartDir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(chartDir, "values.schema.json"), []byte(declared), 0o644))
			return nil, nil
		default:
			t.Fatalf("unexpected helm invocation: %v", args)
			return nil, nil
		}
	}

	router := newSchemaRouter(t, runner)
	body := map[string]string{
		"chart_name":    "web",
		"chart_version": "1.2.0",
		"repo_name":     "stable",
	}

	rec := performJSON(t, router, http.MethodPost, "/api/schemas/resolve", body)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	require.True(t, envelope.Success)

	var payload struct {
		Schema json.RawMessage `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	require.JSONEq(t, declared, string(payload.Schema))

	// Second request is served from the cache without another search.
	rec = performJSON(t, router, http.MethodPost, "/api/schemas/resolve", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, runner.countVerb("search"))
	require.Equal(t, 1, runner.countVerb("pull"))
}

func TestSchemaHandler_ResolveWithoutRepositories(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) ([]byte, error) {
		require.Equal(t, "repo", args[0])
		return []byte("NAME\tURL\n"), nil
	}}

	router := newSchemaRouter(t, runner)
	rec := performJSON(t, router, http.MethodPost, "/api/schemas/resolve", map[string]string{
		"chart_name":    "web",
		"chart_version": "1.2.0",
		"repo_name":     "stable",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	require.True(t, envelope.Success)

	var payload struct {
		Schema json.RawMessage `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	require.JSONEq(t, `{"properties":{},"type":"object"}`, string(payload.Schema))

	// The fallback is cached under the sentinel repository name.
	rec = performJSON(t, router, http.MethodGet, "/api/schemas", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []struct {
		ChartName string `json:"chart_name"`
		RepoName  string `json:"repo_name"`
	}
	envelope = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(envelope.Data, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "web", entries[0].ChartName)
	require.Equal(t, "no-repos-available", entries[0].RepoName)
}

func TestSchemaHandler_ResolveRejectsIncompleteRequest(t *testing.T) {
	router := newSchemaRouter(t, &fakeRunner{})

	rec := performJSON(t, router, http.MethodPost, "/api/schemas/resolve", map[string]string{
		"chart_name": "web",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	envelope := decodeEnvelope(t, rec)
	require.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	require.Equal(t, "BAD_REQUEST", envelope.Error.Code)
}

func TestSchemaHandler_ClearAndDeleteEntry(t *testing.T) {
	runner := &fakeRunner{handler: func(args []string) ([]byte, error) {
		switch args[0] {
		case "repo":
			return []byte("NAME\tURL\nstable\thttps://charts.example.com\n"), nil
		case "search":
			return []byte(`[{"name":"stable/web"}]`), nil
		default:
			return nil, nil
		}
	}}

	router := newSchemaRouter(t, runner)
	for _, version := range []string{"1.0.0", "2.0.0"} {
		rec := performJSON(t, router, http.MethodPost, "/api/schemas/resolve", map[string]string{
			"chart_name":    "web",
			"chart_version": version,
			"repo_name":     "stable",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := performJSON(t, router, http.MethodDelete,
		"/api/schemas/entry?chart_name=web&chart_version=1.0.0&repo_name=stable", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performJSON(t, router, http.MethodGet, "/api/schemas", nil)
	envelope := decodeEnvelope(t, rec)
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(envelope.Data, &entries))
	require.Len(t, entries, 1)

	rec = performJSON(t, router, http.MethodDelete, "/api/schemas", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope = decodeEnvelope(t, rec)
	var cleared struct {
		Removed int64 `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &cleared))
	require.Equal(t, int64(1), cleared.Removed)
}

func TestSchemaHandler_DeleteEntryRequiresKey(t *testing.T) {
	router := newSchemaRouter(t, &fakeRunner{})

	rec := performJSON(t, router, http.MethodDelete, "/api/schemas/entry?chart_name=web", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, decodeEnvelope(t, rec).Success)
}
