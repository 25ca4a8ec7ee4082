package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/materialrequest"
	"github.com/jhoicas/kardex-api/internal/application/ticket"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner               = (*TxRunner)(nil)
	_ materialrequest.WorkflowTxRunner = (*TxRunner)(nil)
	_ ticket.CloseTxRunner             = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout <= 0 deja el valor del servidor.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// inTx inicia la transacción, fija lock_timeout, ejecuta fn y hace Commit o Rollback.
func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no acepta parámetros; el valor es un entero controlado por configuración
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
			return mapError("set lock_timeout", err)
		}
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// Run inicia una transacción con saldos y kardex (movimientos del motor de inventario).
func (r *TxRunner) Run(ctx context.Context, fn func(
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewBalanceRepository(tx), NewMovementRepository(tx))
	})
}

// RunWorkflow agrega las solicitudes de material a la misma transacción.
func (r *TxRunner) RunWorkflow(ctx context.Context, fn func(
	requestRepo repository.MaterialRequestRepository,
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewMaterialRequestRepository(tx), NewBalanceRepository(tx), NewMovementRepository(tx))
	})
}

// RunTicketClose agrega tickets y solicitudes a la misma transacción (cierre con devoluciones).
func (r *TxRunner) RunTicketClose(ctx context.Context, fn func(
	ticketRepo repository.TicketRepository,
	requestRepo repository.MaterialRequestRepository,
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewTicketRepository(tx), NewMaterialRequestRepository(tx),
			NewBalanceRepository(tx), NewMovementRepository(tx))
	})
}
