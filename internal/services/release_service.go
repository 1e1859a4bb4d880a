package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/rudderhq/rudder/internal/helm"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
)

// ReleaseService exposes raw pass-through helm release operations. Responses
// are helm's own output, returned verbatim to the caller.
type ReleaseService struct {
	runner helm.Runner
}

// NewReleaseService constructs a release pass-through service.
func NewReleaseService(runner helm.Runner) (*ReleaseService, error) {
	if runner == nil {
		return nil, errors.New("release service: helm runner is required")
	}
	return &ReleaseService{runner: runner}, nil
}

// List returns all releases across all namespaces as helm's JSON.
func (s *ReleaseService) List(ctx context.Context) (json.RawMessage, error) {
	out, err := s.runner.Run(ensuredContext(ctx), "ls", "-A", "-o", "json")
	if err != nil {
		return nil, wrapHelmFailure(err)
	}
	return json.RawMessage(out), nil
}

// History returns the revision history of a release as helm's JSON.
func (s *ReleaseService) History(ctx context.Context, release, namespace string) (json.RawMessage, error) {
	out, err := s.runner.Run(ensuredContext(ctx), "history", release, "-n", namespace, "-o", "json")
	if err != nil {
		return nil, wrapHelmFailure(err)
	}
	return json.RawMessage(out), nil
}

// Rollback reverts a release to the given revision.
func (s *ReleaseService) Rollback(ctx context.Context, release, namespace string, revision int) (string, error) {
	out, err := s.runner.Run(ensuredContext(ctx),
		"rollback", release, strconv.Itoa(revision), "-n", namespace)
	if err != nil {
		return "", wrapHelmFailure(err)
	}
	return string(out), nil
}

// Values returns the live configuration values of a release as JSON.
func (s *ReleaseService) Values(ctx context.Context, release, namespace string) (json.RawMessage, error) {
	out, err := s.runner.Run(ensuredContext(ctx),
		"get", "values", release, "-n", namespace, "-o", "json")
	if err != nil {
		return nil, wrapHelmFailure(err)
	}
	return json.RawMessage(out), nil
}

// Manifest returns the rendered manifest of a release.
func (s *ReleaseService) Manifest(ctx context.Context, release, namespace string) (string, error) {
	out, err := s.runner.Run(ensuredContext(ctx),
		"get", "manifest", release, "-n", namespace)
	if err != nil {
		return "", wrapHelmFailure(err)
	}
	return string(out), nil
}

// Upgrade applies the given values to a release, installing it if absent.
// The values JSON is flattened into repeated --set arguments.
func (s *ReleaseService) Upgrade(ctx context.Context, release, chartPath string, values json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(values))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return "", apperrors.NewBadRequest("invalid values JSON: " + err.Error())
	}

	args := []string{"upgrade", "--install", release, chartPath}
	args = append(args, flattenSetArgs("", tree)...)

	out, err := s.runner.Run(ensuredContext(ctx), args...)
	if err != nil {
		return "", wrapHelmFailure(err)
	}
	return string(out), nil
}

// flattenSetArgs renders a values tree as helm --set arguments: object keys
// are dotted, array elements indexed, and null rendered literally.
func flattenSetArgs(prefix string, value any) []string {
	var args []string

	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			args = append(args, flattenSetArgs(path, v[key])...)
		}
	case []any:
		for i, val := range v {
			args = append(args, flattenSetArgs(fmt.Sprintf("%s[%d]", prefix, i), val)...)
		}
	case string:
		args = append(args, "--set", fmt.Sprintf("%s=%s", prefix, v))
	case json.Number:
		args = append(args, "--set", fmt.Sprintf("%s=%s", prefix, v.String()))
	case bool:
		args = append(args, "--set", fmt.Sprintf("%s=%t", prefix, v))
	default: // JSON null
		args = append(args, "--set", prefix+"=null")
	}

	return args
}

// wrapHelmFailure converts runner failures to API errors: network kinds pass
// through untouched, command failures surface helm's diagnostic text.
func wrapHelmFailure(err error) error {
	if apperrors.IsKind(err, apperrors.KindNetwork) {
		return err
	}
	var cmdErr *helm.CommandError
	if errors.As(err, &cmdErr) {
		return apperrors.New("HELM_COMMAND_FAILED", cmdErr.Stderr, http.StatusBadGateway).WithInternal(err)
	}
	return apperrors.Wrap(err, "helm command failed")
}
