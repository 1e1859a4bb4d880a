package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/rudderhq/rudder/internal/helm"
	apperrors "github.com/rudderhq/rudder/pkg/errors"
	"github.com/rudderhq/rudder/pkg/logger"
)

// ValuesSchemaService derives a schema from the configuration values of a
// deployed release. It is the last resort when no repository declares a
// schema for the chart at all.
type ValuesSchemaService struct {
	runner helm.Runner
	log    *zap.Logger
}

// NewValuesSchemaService constructs a values-introspection synthesizer.
func NewValuesSchemaService(runner helm.Runner) (*ValuesSchemaService, error) {
	if runner == nil {
		return nil, errors.New("values schema: helm runner is required")
	}
	return &ValuesSchemaService{runner: runner, log: logger.WithModule("values-schema")}, nil
}

// Synthesize queries the live values of release in namespace and infers a
// schema tree from their structure.
func (s *ValuesSchemaService) Synthesize(ctx context.Context, release, namespace string) (json.RawMessage, error) {
	if s == nil {
		return nil, errors.New("values schema: service not initialised")
	}
	ctx = ensuredContext(ctx)

	out, err := s.runner.Run(ctx,
		"get", "values", release,
		"-n", namespace,
		"-o", "json",
	)
	if err != nil {
		return nil, apperrors.WrapKind(apperrors.KindSynthesis, err,
			"get deployed values for "+namespace+"/"+release)
	}

	// json.Number keeps the integer/number distinction the inference relies on.
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()

	var values any
	if err := dec.Decode(&values); err != nil {
		return nil, apperrors.WrapKind(apperrors.KindSynthesis, err, "parse deployed values")
	}

	properties := map[string]any{}
	if obj, ok := values.(map[string]any); ok {
		for key, val := range obj {
			properties[key] = propertySchema(val)
		}
	}

	document, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": properties,
	})
	if err != nil {
		return nil, apperrors.WrapKind(apperrors.KindSynthesis, err, "serialize synthesized schema")
	}

	s.log.Debug("synthesized schema from deployed values",
		zap.String("release", release),
		zap.String("namespace", namespace),
		zap.Int("properties", len(properties)),
	)
	return document, nil
}

// propertySchema maps one values node to its inferred schema:
// scalars carry their type and the live value as default, arrays take their
// item schema from the first element (string for empty arrays), objects
// recurse, and null becomes a string-typed property with a null default.
func propertySchema(value any) map[string]any {
	switch v := value.(type) {
	case string:
		return map[string]any{"type": "string", "default": v}
	case bool:
		return map[string]any{"type": "boolean", "default": v}
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return map[string]any{"type": "integer", "default": v}
		}
		return map[string]any{"type": "number", "default": v}
	case []any:
		items := map[string]any{"type": "string"}
		if len(v) > 0 {
			items = propertySchema(v[0])
		}
		return map[string]any{"type": "array", "items": items, "default": v}
	case map[string]any:
		properties := map[string]any{}
		for key, val := range v {
			properties[key] = propertySchema(val)
		}
		return map[string]any{"type": "object", "properties": properties, "default": v}
	default: // JSON null
		return map[string]any{"type": "string", "default": nil}
	}
}
