package memory

import (
	"context"
	"fmt"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

type ticketRepo struct {
	s   *Store
	txn *memdb.Txn
}

func cloneTicket(t *entity.Ticket) *entity.Ticket {
	c := *t
	return &c
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*entity.Ticket, error) {
	raw, err := first(r.s.reader(r.txn), tableTicket, id)
	if err != nil || raw == nil {
		return nil, err
	}
	return cloneTicket(raw.(*entity.Ticket)), nil
}

func (r *ticketRepo) GetForUpdate(ctx context.Context, id string) (*entity.Ticket, error) {
	if _, err := writer(r.txn); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) Update(_ context.Context, t *entity.Ticket) error {
	txn, err := writer(r.txn)
	if err != nil {
		return err
	}
	if err := txn.Insert(tableTicket, cloneTicket(t)); err != nil {
		return fmt.Errorf("memory: update ticket: %w", err)
	}
	return nil
}
