package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.TicketRepository = (*TicketRepo)(nil)

// TicketRepo acceso mínimo a tickets (estado y cierre).
type TicketRepo struct {
	q Querier
}

// NewTicketRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTicketRepository(q Querier) *TicketRepo {
	return &TicketRepo{q: q}
}

func (r *TicketRepo) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	return r.get(ctx, id, "")
}

func (r *TicketRepo) GetForUpdate(ctx context.Context, id string) (*entity.Ticket, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *TicketRepo) get(ctx context.Context, id, lock string) (*entity.Ticket, error) {
	var (
		t      entity.Ticket
		status string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, title, status, close_comment, closed_at, created_at, updated_at
		FROM tickets WHERE id = $1`+lock, id,
	).Scan(&t.ID, &t.Title, &status, &t.CloseComment, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get ticket", err)
	}
	t.Status = entity.TicketStatus(status)
	return &t, nil
}

func (r *TicketRepo) Update(ctx context.Context, t *entity.Ticket) error {
	_, err := r.q.Exec(ctx, `
		UPDATE tickets SET status = $2, close_comment = $3, closed_at = $4, updated_at = $5
		WHERE id = $1`,
		t.ID, string(t.Status), t.CloseComment, t.ClosedAt, t.UpdatedAt,
	)
	if err != nil {
		return mapError("update ticket", err)
	}
	return nil
}
