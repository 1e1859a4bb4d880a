package services

import (
	"encoding/json"
)

// emptySchemaDocument is the canonical "no schema available" sentinel. It is
// persisted and returned verbatim; absence of a schema is never modelled as
// a missing cache row.
func emptySchemaDocument() json.RawMessage {
	return json.RawMessage(`{"properties":{},"type":"object"}`)
}

// schemaHasProperties reports whether a schema document carries anything an
// editor could render: a non-empty "properties" object, or, for documents
// without the wrapper, any top-level keys at all.
func schemaHasProperties(document []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(document, &obj); err != nil {
		return false
	}

	if raw, ok := obj["properties"]; ok {
		var props map[string]json.RawMessage
		if err := json.Unmarshal(raw, &props); err != nil {
			return false
		}
		return len(props) > 0
	}

	return len(obj) > 0
}
