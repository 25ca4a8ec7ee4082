package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/kardex-api/internal/domain"
)

// Querier abstrae pgxpool.Pool y pgx.Tx para que los repositorios funcionen con ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Códigos SQLSTATE que se traducen a errores de dominio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeLockNotAvailable    = "55P03"
	codeDeadlockDetected    = "40P01"
	codeSerializationFail   = "40001"
)

// mapError envuelve el error del driver con la operación y lo traduce a un error de dominio cuando aplica.
// Los conflictos de bloqueo (lock_timeout, deadlock, serialización) son reintentables.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pgErr.ConstraintName)
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFail:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
