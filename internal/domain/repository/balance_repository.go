package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// BalanceFilter filtros opcionales para listar saldos.
type BalanceFilter struct {
	ItemID     string
	LocationID string
}

// BalanceRepository define el puerto para los saldos por item+ubicación.
// Las mutaciones solo ocurren dentro de una transacción y sobre filas obtenidas con GetForUpdate.
type BalanceRepository interface {
	// Get lee el saldo sin bloquear. Si no existe devuelve un saldo en cero.
	Get(ctx context.Context, itemID, locationID string) (*entity.Balance, error)
	// GetForUpdate crea la fila en 0 si no existe y la bloquea hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.Balance, error)
	Save(ctx context.Context, balance *entity.Balance) error
	List(ctx context.Context, filter BalanceFilter) ([]*entity.Balance, error)
}
