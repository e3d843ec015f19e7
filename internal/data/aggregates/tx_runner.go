// Package aggregates holds the unit-of-work boundary shared by services that
// write a record together with its images or a plan together with its visits.
package aggregates

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
)

var errNoDB = errors.New("aggregates: transaction runner has no database")

// TxRunner commits every row change made through the dbctx.Context handed to
// fn together, or none of them.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// GormTxRunner opens one gorm transaction per InTx call and traces it.
type GormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) *GormTxRunner {
	return &GormTxRunner{db: db}
}

func (r *GormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) (err error) {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return errNoDB
	}
	ctx, span := observability.StartSpan(ctx, "db.tx",
		attribute.String("db.system", r.db.Dialector.Name()),
	)
	defer func() { observability.EndSpan(span, err) }()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
