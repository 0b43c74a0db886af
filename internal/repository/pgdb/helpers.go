package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/voyager-tech/go-backend/pkg/postgres"
	"github.com/voyager-tech/go-backend/pkg/tr"
)

// querier — общее у пула и транзакции
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn возвращает транзакцию из контекста, а без неё — пул.
func conn(ctx context.Context, db postgres.DB) querier {
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		return tx
	}

	return db
}
