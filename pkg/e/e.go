package e

import (
	"errors"
	"fmt"
)

var (
	// Таксономия ошибок ядра
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMigration          = errors.New("migration error")

	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки леджера миграций
	ErrLedgerLocked        = fmt.Errorf("%w: ledger is locked by another process", ErrMigration)
	ErrNoAppliedMigrations = fmt.Errorf("%w: no applied migrations", ErrMigration)
	ErrIncompletePair      = fmt.Errorf("%w: migration must have both up and down parts", ErrMigration)
	ErrLedgerGap           = fmt.Errorf("%w: applied migrations do not form a prefix", ErrMigration)

	// 400 Bad Request
	ErrStatusBadRequest = fmt.Errorf("bad request")
	ErrInvalidLimit     = fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
	ErrInvalidID        = fmt.Errorf("%w: id must be a positive integer", ErrValidation)
	ErrEmptyBatch       = fmt.Errorf("%w: batch has no items", ErrValidation)
	ErrBatchTooLarge    = fmt.Errorf("%w: batch is too large", ErrValidation)

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// ValidationError описывает некорректное поле входных данных.
// Index — позиция элемента в батче, -1 если ошибка не относится к элементу.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func NewValidationError(index int, field, reason string) *ValidationError {
	return &ValidationError{Index: index, Field: field, Reason: reason}
}

func (v *ValidationError) Error() string {
	if v.Index < 0 {
		return fmt.Sprintf("validation error: %s: %s", v.Field, v.Reason)
	}

	return fmt.Sprintf("validation error: item %d: %s: %s", v.Index, v.Field, v.Reason)
}

func (v *ValidationError) Unwrap() error {
	return ErrValidation
}

// AtIndex привязывает ошибку валидации к позиции элемента в батче.
// Прочие ошибки возвращаются без изменений.
func AtIndex(err error, index int) error {
	var v *ValidationError
	if errors.As(err, &v) {
		return NewValidationError(index, v.Field, v.Reason)
	}

	return err
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
