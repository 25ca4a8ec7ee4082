package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// CatalogRepository resuelve las referencias externas que el ledger recibe como opacas.
// Todos los métodos devuelven (nil, nil) si el registro no existe.
type CatalogRepository interface {
	GetItem(ctx context.Context, id string) (*entity.Item, error)
	GetLocation(ctx context.Context, id string) (*entity.Location, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
}
