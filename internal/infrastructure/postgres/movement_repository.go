package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo kardex sobre PostgreSQL. Solo INSERT; seq (BIGSERIAL) fija el orden de reproducción.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, seq, item_id, location_id, type, quantity, balance_after,
	reference_kind, reference_id, comment, user_id, created_at`

// Create inserta el movimiento y devuelve su seq.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	var refKind, refID *string
	if m.Reference != nil {
		k := string(m.Reference.Kind)
		refKind = &k
		if m.Reference.ExternalID != "" {
			refID = &m.Reference.ExternalID
		}
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO movements (id, item_id, location_id, type, quantity, balance_after,
			reference_kind, reference_id, comment, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq`,
		m.ID, m.ItemID, m.LocationID, string(m.Type), m.Quantity, m.BalanceAfter,
		refKind, refID, m.Comment, m.UserID, m.CreatedAt,
	).Scan(&m.Seq)
	if err != nil {
		return mapError("create movement", err)
	}
	return nil
}

// ListByItem kardex de un item en todas las ubicaciones, del más reciente al más antiguo.
func (r *MovementRepo) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements
		WHERE item_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`, itemID, limit, offset)
}

// ListByItemAndLocation kardex de un par, del más reciente al más antiguo.
func (r *MovementRepo) ListByItemAndLocation(ctx context.Context, itemID, locationID string, limit, offset int) ([]*entity.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements
		WHERE item_id = $1 AND location_id = $2 ORDER BY seq DESC LIMIT $3 OFFSET $4`, itemID, locationID, limit, offset)
}

// History kardex completo de un par en orden de inserción.
func (r *MovementRepo) History(ctx context.Context, itemID, locationID string) ([]*entity.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements
		WHERE item_id = $1 AND location_id = $2 ORDER BY seq ASC`, itemID, locationID)
}

func (r *MovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list movements", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m       entity.Movement
		typ     string
		refKind *string
		refID   *string
	)
	err := row.Scan(&m.ID, &m.Seq, &m.ItemID, &m.LocationID, &typ, &m.Quantity, &m.BalanceAfter,
		&refKind, &refID, &m.Comment, &m.UserID, &m.CreatedAt)
	if err != nil {
		return nil, mapError("scan movement", err)
	}
	m.Type = entity.MovementType(typ)
	if refKind != nil {
		ref := entity.Reference{Kind: entity.ReferenceKind(*refKind)}
		if refID != nil {
			ref.ExternalID = *refID
		}
		m.Reference = &ref
	}
	return &m, nil
}
