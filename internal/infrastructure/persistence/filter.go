package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
)

// orderableColumns is the whitelist for ORDER BY. Anything else falls back to
// created_at, keeping filter input out of raw SQL.
var orderableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"occurred_at": true,
	"on_hand":    true,
	"priority":   true,
	"status":     true,
}

// applyFilter applies pagination and ordering from a shared.Filter
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	orderBy := filter.OrderBy
	if !orderableColumns[orderBy] {
		orderBy = "created_at"
	}
	direction := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		direction = "DESC"
	}
	query = query.Order(orderBy + " " + direction)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}
