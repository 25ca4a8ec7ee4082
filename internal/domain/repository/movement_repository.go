package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// MovementRepository define el puerto del kardex. Solo agrega; no existe update ni delete.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	// ListByItem lista del más reciente al más antiguo.
	ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.Movement, error)
	ListByItemAndLocation(ctx context.Context, itemID, locationID string, limit, offset int) ([]*entity.Movement, error)
	// History devuelve todo el kardex de un par en orden de inserción (más antiguo primero).
	History(ctx context.Context, itemID, locationID string) ([]*entity.Movement, error)
}
