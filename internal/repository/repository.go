package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrStatusConflict = errors.New("status changed concurrently")
)

// PageQuery is a resolved, safe page request: Order holds a whitelisted column.
type PageQuery struct {
	Offset int
	Limit  int
	Order  clause.OrderByColumn
}

// SortColumns maps public sort field names to table columns.
type SortColumns map[string]string

// Resolve returns the ORDER BY column for field. "desc" (any case) sorts
// descending, everything else ascending.
func (s SortColumns) Resolve(field, direction string) (clause.OrderByColumn, bool) {
	column, ok := s[field]
	if !ok {
		return clause.OrderByColumn{}, false
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   strings.EqualFold(direction, "desc"),
	}, true
}

// paginate applies ordering with id as a stable tie breaker.
func paginate(q PageQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Order(q.Order).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: q.Order.Desc}).
			Offset(q.Offset).
			Limit(q.Limit)
	}
}

// translateError folds driver specific unique violations into ErrDuplicateKey.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	// drivers opened without TranslateError
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry") {
		return ErrDuplicateKey
	}
	return err
}
