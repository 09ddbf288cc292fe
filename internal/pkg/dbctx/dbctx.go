// Package dbctx threads a request context and an optional in-progress GORM
// transaction into repository operations, so "write derived rows AND
// enqueue successor" can commit atomically under one caller-owned
// transaction.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional transaction. A zero Tx
// means the repository runs the operation on its own connection.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the in-progress transaction when one is being composed, the
// fallback connection otherwise. Repositories call this at the top of every
// operation except JobRepo.MarkFailed, which always opens its own
// transaction.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return fallback
}
