package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lecturas de items, ubicaciones y usuarios (administrados por otros servicios).
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

func (r *CatalogRepo) GetItem(ctx context.Context, id string) (*entity.Item, error) {
	var it entity.Item
	err := r.q.QueryRow(ctx, `SELECT id, description, category, active, created_at FROM items WHERE id = $1`, id).
		Scan(&it.ID, &it.Description, &it.Category, &it.Active, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get item", err)
	}
	return &it, nil
}

func (r *CatalogRepo) GetLocation(ctx context.Context, id string) (*entity.Location, error) {
	var loc entity.Location
	err := r.q.QueryRow(ctx, `SELECT id, name, code FROM locations WHERE id = $1`, id).
		Scan(&loc.ID, &loc.Name, &loc.Code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get location", err)
	}
	return &loc, nil
}

func (r *CatalogRepo) GetUser(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.q.QueryRow(ctx, `SELECT id, email, name, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get user", err)
	}
	return &u, nil
}
