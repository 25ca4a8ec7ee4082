package memory

import (
	"context"
	"fmt"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

type catalogRepo struct {
	s *Store
}

func first(txn *memdb.Txn, table, id string) (interface{}, error) {
	raw, err := txn.First(table, "id", id)
	if err != nil {
		return nil, fmt.Errorf("memory: get %s: %w", table, err)
	}
	return raw, nil
}

func (r *catalogRepo) GetItem(_ context.Context, id string) (*entity.Item, error) {
	raw, err := first(r.s.reader(nil), tableItem, id)
	if err != nil || raw == nil {
		return nil, err
	}
	c := *raw.(*entity.Item)
	return &c, nil
}

func (r *catalogRepo) GetLocation(_ context.Context, id string) (*entity.Location, error) {
	raw, err := first(r.s.reader(nil), tableLocation, id)
	if err != nil || raw == nil {
		return nil, err
	}
	c := *raw.(*entity.Location)
	return &c, nil
}

func (r *catalogRepo) GetUser(_ context.Context, id string) (*entity.User, error) {
	raw, err := first(r.s.reader(nil), tableUser, id)
	if err != nil || raw == nil {
		return nil, err
	}
	c := *raw.(*entity.User)
	return &c, nil
}
