package database

import (
	"github.com/repolens/repolens/domain/repository"
	"gorm.io/gorm"
)

// ApplyOptions folds the options into a query and applies conditions,
// ordering, and pagination to a GORM session.
func ApplyOptions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	q := repository.Build(options...)

	db = applyConditions(db, q)

	for _, entry := range q.OrderBy() {
		db = db.Order(entry)
	}
	if limit := q.Limit(); limit > 0 {
		db = db.Limit(limit)
	}
	if offset := q.Offset(); offset > 0 {
		db = db.Offset(offset)
	}

	return db
}

// ApplyConditions applies only WHERE conditions (no limit/offset/order),
// for COUNT and DELETE queries.
func ApplyConditions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	return applyConditions(db, repository.Build(options...))
}

func applyConditions(db *gorm.DB, q repository.Query) *gorm.DB {
	for _, cond := range q.Conditions() {
		db = db.Where(cond.Clause(), cond.Args()...)
	}
	return db
}
