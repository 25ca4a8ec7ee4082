package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `item_id, location_id, quantity, updated_at`

// Get obtiene el saldo actual sin bloquear; 0 si el par nunca tuvo movimientos.
func (r *BalanceRepo) Get(ctx context.Context, itemID, locationID string) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE item_id = $1 AND location_id = $2`
	var b entity.Balance
	err := r.q.QueryRow(ctx, query, itemID, locationID).Scan(&b.ItemID, &b.LocationID, &b.Quantity, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Balance{ItemID: itemID, LocationID: locationID, Quantity: decimal.Zero}, nil
		}
		return nil, mapError("get balance", err)
	}
	return &b, nil
}

// GetForUpdate crea la fila en 0 si no existe y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.Balance, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO balances (item_id, location_id, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (item_id, location_id) DO NOTHING`, itemID, locationID)
	if err != nil {
		return nil, mapError("create balance", err)
	}
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE item_id = $1 AND location_id = $2 FOR UPDATE`
	var b entity.Balance
	if err := r.q.QueryRow(ctx, query, itemID, locationID).Scan(&b.ItemID, &b.LocationID, &b.Quantity, &b.UpdatedAt); err != nil {
		return nil, mapError("get balance for update", err)
	}
	return &b, nil
}

// Save guarda la cantidad de un saldo ya bloqueado.
func (r *BalanceRepo) Save(ctx context.Context, b *entity.Balance) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE balances SET quantity = $3, updated_at = $4
		WHERE item_id = $1 AND location_id = $2`,
		b.ItemID, b.LocationID, b.Quantity, b.UpdatedAt)
	if err != nil {
		return mapError("save balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save balance: fila %s/%s no bloqueada", b.ItemID, b.LocationID)
	}
	return nil
}

// List lista saldos de items activos, más recientes primero.
func (r *BalanceRepo) List(ctx context.Context, filter repository.BalanceFilter) ([]*entity.Balance, error) {
	where := []string{"i.active"}
	args := []any{}
	if filter.ItemID != "" {
		args = append(args, filter.ItemID)
		where = append(where, fmt.Sprintf("b.item_id = $%d", len(args)))
	}
	if filter.LocationID != "" {
		args = append(args, filter.LocationID)
		where = append(where, fmt.Sprintf("b.location_id = $%d", len(args)))
	}
	query := `
		SELECT b.item_id, b.location_id, b.quantity, b.updated_at
		FROM balances b JOIN items i ON i.id = b.item_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY b.updated_at DESC`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list balances", err)
	}
	defer rows.Close()
	var list []*entity.Balance
	for rows.Next() {
		var b entity.Balance
		if err := rows.Scan(&b.ItemID, &b.LocationID, &b.Quantity, &b.UpdatedAt); err != nil {
			return nil, mapError("scan balance", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
