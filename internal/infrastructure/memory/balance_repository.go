package memory

import (
	"context"
	"fmt"
	"sort"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

type balanceRepo struct {
	s   *Store
	txn *memdb.Txn
}

func (r *balanceRepo) Get(_ context.Context, itemID, locationID string) (*entity.Balance, error) {
	raw, err := r.s.reader(r.txn).First(tableBalance, "id", itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("memory: get balance: %w", err)
	}
	if raw == nil {
		return &entity.Balance{ItemID: itemID, LocationID: locationID, Quantity: decimal.Zero}, nil
	}
	c := *raw.(*entity.Balance)
	return &c, nil
}

// GetForUpdate crea el saldo en 0 si no existe. La tx de escritura ya es exclusiva.
func (r *balanceRepo) GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.Balance, error) {
	txn, err := writer(r.txn)
	if err != nil {
		return nil, err
	}
	raw, err := txn.First(tableBalance, "id", itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("memory: get balance for update: %w", err)
	}
	if raw == nil {
		b := &entity.Balance{ItemID: itemID, LocationID: locationID, Quantity: decimal.Zero}
		if err := txn.Insert(tableBalance, b); err != nil {
			return nil, fmt.Errorf("memory: create balance: %w", err)
		}
		c := *b
		return &c, nil
	}
	c := *raw.(*entity.Balance)
	return &c, nil
}

func (r *balanceRepo) Save(_ context.Context, balance *entity.Balance) error {
	txn, err := writer(r.txn)
	if err != nil {
		return err
	}
	c := *balance
	if err := txn.Insert(tableBalance, &c); err != nil {
		return fmt.Errorf("memory: save balance: %w", err)
	}
	return nil
}

func (r *balanceRepo) List(_ context.Context, filter repository.BalanceFilter) ([]*entity.Balance, error) {
	txn := r.s.reader(r.txn)
	var (
		it  memdb.ResultIterator
		err error
	)
	switch {
	case filter.ItemID != "" && filter.LocationID != "":
		it, err = txn.Get(tableBalance, "id", filter.ItemID, filter.LocationID)
	case filter.ItemID != "":
		it, err = txn.Get(tableBalance, "item", filter.ItemID)
	case filter.LocationID != "":
		it, err = txn.Get(tableBalance, "location", filter.LocationID)
	default:
		it, err = txn.Get(tableBalance, "id")
	}
	if err != nil {
		return nil, fmt.Errorf("memory: list balances: %w", err)
	}
	var out []*entity.Balance
	for obj := it.Next(); obj != nil; obj = it.Next() {
		c := *obj.(*entity.Balance)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
