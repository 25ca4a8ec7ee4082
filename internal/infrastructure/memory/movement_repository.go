package memory

import (
	"context"
	"fmt"
	"sort"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

type movementRepo struct {
	s   *Store
	txn *memdb.Txn
}

func cloneMovement(m *entity.Movement) *entity.Movement {
	c := *m
	if m.Reference != nil {
		ref := *m.Reference
		c.Reference = &ref
	}
	return &c
}

// Create asigna Seq (orden de inserción) y agrega el movimiento.
func (r *movementRepo) Create(_ context.Context, movement *entity.Movement) error {
	txn, err := writer(r.txn)
	if err != nil {
		return err
	}
	movement.Seq = r.s.seq.Add(1)
	if err := txn.Insert(tableMovement, cloneMovement(movement)); err != nil {
		return fmt.Errorf("memory: create movement: %w", err)
	}
	return nil
}

func (r *movementRepo) collect(index string, args ...interface{}) ([]*entity.Movement, error) {
	it, err := r.s.reader(r.txn).Get(tableMovement, index, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: list movements: %w", err)
	}
	var out []*entity.Movement
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, cloneMovement(obj.(*entity.Movement)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// newestPage invierte el orden y aplica limit/offset.
func newestPage(all []*entity.Movement, limit, offset int) []*entity.Movement {
	out := make([]*entity.Movement, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out
}

func (r *movementRepo) ListByItem(_ context.Context, itemID string, limit, offset int) ([]*entity.Movement, error) {
	all, err := r.collect("item", itemID)
	if err != nil {
		return nil, err
	}
	return newestPage(all, limit, offset), nil
}

func (r *movementRepo) ListByItemAndLocation(_ context.Context, itemID, locationID string, limit, offset int) ([]*entity.Movement, error) {
	all, err := r.collect("pair", itemID, locationID)
	if err != nil {
		return nil, err
	}
	return newestPage(all, limit, offset), nil
}

func (r *movementRepo) History(_ context.Context, itemID, locationID string) ([]*entity.Movement, error) {
	return r.collect("pair", itemID, locationID)
}
