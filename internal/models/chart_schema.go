package models

import (
	"gorm.io/datatypes"
)

// ChartSchema is a cached values schema for one chart/version/repository
// triple. The triple is the cache key; namespace is carried for display only.
// SchemaContent always holds a well-formed JSON object: "no schema found" is
// stored as the canonical empty schema, never as a missing row.
type ChartSchema struct {
	BaseModel

	ChartName     string         `gorm:"size:190;not null;uniqueIndex:idx_chart_schema_key,priority:1" json:"chart_name"`
	ChartVersion  string         `gorm:"size:64;not null;uniqueIndex:idx_chart_schema_key,priority:2" json:"chart_version"`
	RepoName      string         `gorm:"size:190;not null;uniqueIndex:idx_chart_schema_key,priority:3" json:"repo_name"`
	Namespace     *string        `gorm:"size:190" json:"namespace,omitempty"`
	SchemaContent datatypes.JSON `gorm:"not null" json:"schema_content"`
}
