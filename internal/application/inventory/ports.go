package inventory

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y no queda ningún efecto persistido.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		balanceRepo repository.BalanceRepository,
		movRepo repository.MovementRepository,
	) error) error
}

// MovementPublisher notifica movimientos ya confirmados (Kafka o no-op).
type MovementPublisher interface {
	Publish(ctx context.Context, movements ...*entity.Movement) error
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, ...*entity.Movement) error { return nil }
