package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/voyager-tech/go-backend/pkg/e"
)

// Коды SQLSTATE, которые переводятся в таксономию ошибок
const (
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	codeForeignKeyViolation = "23503"
	classConnection         = "08"
)

// MapError переводит ошибку драйвера в сентинел из pkg/e, сохраняя исходную ошибку в цепочке.
// Ошибки, не относящиеся к таксономии, возвращаются как есть.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return fmt.Errorf("%w: %s: %w", e.ErrConflict, pgErr.ConstraintName, err)
		case pgErr.Code == codeCheckViolation, pgErr.Code == codeForeignKeyViolation:
			return fmt.Errorf("%w: %s: %w", e.ErrValidation, pgErr.ConstraintName, err)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == classConnection:
			return fmt.Errorf("%w: %w", e.ErrStorageUnavailable, err)
		}

		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", e.ErrStorageUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", e.ErrStorageUnavailable, err)
	}

	return err
}

// IsUniqueViolation сообщает, нарушено ли ограничение уникальности.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
