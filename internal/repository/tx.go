package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor is the unit-of-work boundary used by services that must read,
// lock and write several rows atomically. fn receives the live transaction;
// returning an error rolls everything back, returning nil commits.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor { return &gormTransactor{db: db} }

// WithinTx runs fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func (t *gormTransactor) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.db == nil {
		return fn(nil)
	}
	return t.db.WithContext(ctx).Transaction(fn)
}
