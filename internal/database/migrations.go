package database

import (
	"github.com/rudderhq/rudder/internal/models"
)

func allModels() []any {
	return []any{
		&models.ChartSchema{},
	}
}
