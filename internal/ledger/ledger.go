package ledger

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

// lockKey — ключ advisory-блокировки, сериализующей запись в журнал
const lockKey int64 = 7_305_982_201

const (
	createLedgerQuery = `
		CREATE TABLE IF NOT EXISTS migration_ledger (
			version     BIGINT PRIMARY KEY,
			description TEXT        NOT NULL,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	selectAppliedQuery = `SELECT version, applied_at FROM migration_ledger ORDER BY version`
	tryLockQuery       = `SELECT pg_try_advisory_xact_lock($1)`
	isAppliedQuery     = `SELECT EXISTS (SELECT 1 FROM migration_ledger WHERE version = $1)`
	insertRecordQuery  = `INSERT INTO migration_ledger (version, description, applied_at) VALUES ($1, $2, NOW())`
	deleteRecordQuery  = `DELETE FROM migration_ledger WHERE version = $1`
)

// Ledger применяет и откатывает миграции, записывая каждый шаг в migration_ledger.
// Каждый шаг выполняется в собственной транзакции под advisory-блокировкой,
// поэтому два параллельных Up не применят одну миграцию дважды.
type Ledger struct {
	db         postgres.DB
	migrations []Migration
	log        logger.Logger
}

// New загружает миграции из fsys/dir и создаёт журнал.
func New(db postgres.DB, fsys fs.FS, dir string, log logger.Logger) (*Ledger, error) {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return NewWithMigrations(db, migrations, log), nil
}

func NewWithMigrations(db postgres.DB, migrations []Migration, log logger.Logger) *Ledger {
	return &Ledger{db: db, migrations: migrations, log: log}
}

// Up применяет все ожидающие миграции по возрастанию версии и возвращает применённые.
// Первая же ошибка останавливает прогон: упавшая миграция остаётся pending.
func (l *Ledger) Up(ctx context.Context) ([]Migration, error) {
	const op = "Ledger.Up"

	applied, err := l.applied(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	pending, err := Plan(l.migrations, applied)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	done := make([]Migration, 0, len(pending))
	for _, m := range pending {
		ran, err := l.step(ctx, m.Version, func(tx pgx.Tx, isApplied bool) (bool, error) {
			if isApplied {
				return false, nil
			}
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return false, err
			}
			_, err := tx.Exec(ctx, insertRecordQuery, m.Version, m.Description)
			return true, err
		})
		if err != nil {
			return done, e.Wrap(op, fmt.Errorf("%w: up %06d_%s: %w", e.ErrMigration, m.Version, m.Description, err))
		}

		if ran {
			l.log.Infof("migration %06d_%s applied", m.Version, m.Description)
			done = append(done, m)
		}
	}

	return done, nil
}

// Down откатывает ровно одну, последнюю применённую миграцию.
func (l *Ledger) Down(ctx context.Context) (*Migration, error) {
	const op = "Ledger.Down"

	applied, err := l.applied(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if _, err := Plan(l.migrations, applied); err != nil {
		return nil, e.Wrap(op, err)
	}

	var last *Migration
	for i := len(l.migrations) - 1; i >= 0; i-- {
		if _, ok := applied[l.migrations[i].Version]; ok {
			last = &l.migrations[i]
			break
		}
	}
	if last == nil {
		return nil, e.Wrap(op, e.ErrNoAppliedMigrations)
	}

	ran, err := l.step(ctx, last.Version, func(tx pgx.Tx, isApplied bool) (bool, error) {
		if !isApplied {
			return false, nil
		}
		if _, err := tx.Exec(ctx, last.Down); err != nil {
			return false, err
		}
		_, err := tx.Exec(ctx, deleteRecordQuery, last.Version)
		return true, err
	})
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: down %06d_%s: %w", e.ErrMigration, last.Version, last.Description, err))
	}
	if !ran {
		return nil, e.Wrap(op, e.ErrNoAppliedMigrations)
	}

	l.log.Infof("migration %06d_%s rolled back", last.Version, last.Description)
	return last, nil
}

// Status возвращает состояние каждой известной миграции.
func (l *Ledger) Status(ctx context.Context) ([]State, error) {
	const op = "Ledger.Status"

	applied, err := l.applied(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return States(l.migrations, applied), nil
}

// applied создаёт таблицу журнала при необходимости и читает применённые версии.
func (l *Ledger) applied(ctx context.Context) (map[int64]time.Time, error) {
	if _, err := l.db.Exec(ctx, createLedgerQuery); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	rows, err := l.db.Query(ctx, selectAppliedQuery)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}
	defer rows.Close()

	applied := make(map[int64]time.Time)
	for rows.Next() {
		var (
			version   int64
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		applied[version] = appliedAt
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return applied, nil
}

// step выполняет fn в транзакции под блокировкой журнала.
// Состояние версии перечитывается внутри транзакции: другой процесс мог успеть её применить.
func (l *Ledger) step(ctx context.Context, version int64, fn func(tx pgx.Tx, isApplied bool) (bool, error)) (ran bool, err error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return false, postgres.MapError(err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				l.log.Warnf("ledger rollback failed: %v", rbErr)
			}
		}
	}()

	var locked bool
	if err = tx.QueryRow(ctx, tryLockQuery, lockKey).Scan(&locked); err != nil {
		return false, postgres.MapError(err)
	}
	if !locked {
		err = e.ErrLedgerLocked
		return false, err
	}

	var isApplied bool
	if err = tx.QueryRow(ctx, isAppliedQuery, version).Scan(&isApplied); err != nil {
		return false, postgres.MapError(err)
	}

	ran, err = fn(tx, isApplied)
	if err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, postgres.MapError(err)
	}

	return ran, nil
}
