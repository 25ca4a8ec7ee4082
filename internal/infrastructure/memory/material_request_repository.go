package memory

import (
	"context"
	"fmt"
	"sort"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	dominv "github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

type materialRequestRepo struct {
	s   *Store
	txn *memdb.Txn
}

func cloneRequest(req *entity.MaterialRequest) *entity.MaterialRequest {
	c := *req
	c.Items = make([]*entity.MaterialRequestItem, len(req.Items))
	for i, it := range req.Items {
		line := *it
		c.Items[i] = &line
	}
	return &c
}

func (r *materialRequestRepo) Create(_ context.Context, req *entity.MaterialRequest) error {
	txn, err := writer(r.txn)
	if err != nil {
		return err
	}
	existing, err := txn.First(tableRequest, "folio", req.Folio)
	if err != nil {
		return fmt.Errorf("memory: check folio: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: folio %s ya existe", domain.ErrConflict, req.Folio)
	}
	if err := txn.Insert(tableRequest, cloneRequest(req)); err != nil {
		return fmt.Errorf("memory: create material request: %w", err)
	}
	return nil
}

func (r *materialRequestRepo) GetByID(_ context.Context, id string) (*entity.MaterialRequest, error) {
	raw, err := first(r.s.reader(r.txn), tableRequest, id)
	if err != nil || raw == nil {
		return nil, err
	}
	return cloneRequest(raw.(*entity.MaterialRequest)), nil
}

func (r *materialRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.MaterialRequest, error) {
	if _, err := writer(r.txn); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *materialRequestRepo) Update(_ context.Context, req *entity.MaterialRequest) error {
	txn, err := writer(r.txn)
	if err != nil {
		return err
	}
	if err := txn.Insert(tableRequest, cloneRequest(req)); err != nil {
		return fmt.Errorf("memory: update material request: %w", err)
	}
	return nil
}

func (r *materialRequestRepo) List(_ context.Context, filter repository.MaterialRequestFilter) ([]*entity.MaterialRequest, error) {
	txn := r.s.reader(r.txn)
	var (
		it  memdb.ResultIterator
		err error
	)
	if filter.TicketID != "" {
		it, err = txn.Get(tableRequest, "ticket", filter.TicketID)
	} else {
		it, err = txn.Get(tableRequest, "id")
	}
	if err != nil {
		return nil, fmt.Errorf("memory: list material requests: %w", err)
	}
	var out []*entity.MaterialRequest
	for obj := it.Next(); obj != nil; obj = it.Next() {
		req := obj.(*entity.MaterialRequest)
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && req.RequestedBy != filter.UserID {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return dominv.FolioSeq(out[i].Folio) > dominv.FolioSeq(out[j].Folio)
	})
	return out, nil
}

// LockFolioDay no necesita hacer nada: la tx de escritura ya serializa.
func (r *materialRequestRepo) LockFolioDay(context.Context, string) error {
	_, err := writer(r.txn)
	return err
}

func (r *materialRequestRepo) MaxFolio(_ context.Context, prefix string) (string, error) {
	it, err := r.s.reader(r.txn).Get(tableRequest, "folio_prefix", prefix+"-")
	if err != nil {
		return "", fmt.Errorf("memory: max folio: %w", err)
	}
	best, bestSeq := "", -1
	for obj := it.Next(); obj != nil; obj = it.Next() {
		folio := obj.(*entity.MaterialRequest).Folio
		if n := dominv.FolioSeq(folio); n > bestSeq {
			best, bestSeq = folio, n
		}
	}
	return best, nil
}

func (r *materialRequestRepo) ItemsByTicketForUpdate(_ context.Context, ticketID string) ([]*entity.MaterialRequestItem, error) {
	txn, err := writer(r.txn)
	if err != nil {
		return nil, err
	}
	it, err := txn.Get(tableRequest, "ticket", ticketID)
	if err != nil {
		return nil, fmt.Errorf("memory: items by ticket: %w", err)
	}
	var out []*entity.MaterialRequestItem
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, cloneRequest(obj.(*entity.MaterialRequest)).Items...)
	}
	return out, nil
}

func (r *materialRequestRepo) UpdateItem(_ context.Context, item *entity.MaterialRequestItem) error {
	txn, err := writer(r.txn)
	if err != nil {
		return err
	}
	raw, err := txn.First(tableRequest, "id", item.MaterialRequestID)
	if err != nil {
		return fmt.Errorf("memory: update item: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, item.MaterialRequestID)
	}
	req := cloneRequest(raw.(*entity.MaterialRequest))
	for i, line := range req.Items {
		if line.ID == item.ID {
			c := *item
			req.Items[i] = &c
		}
	}
	if err := txn.Insert(tableRequest, req); err != nil {
		return fmt.Errorf("memory: update item: %w", err)
	}
	return nil
}

func (r *materialRequestRepo) PresetUsage(_ context.Context, filter repository.PresetUsageFilter) ([]*entity.PresetUsage, error) {
	it, err := r.s.reader(r.txn).Get(tableRequest, "id")
	if err != nil {
		return nil, fmt.Errorf("memory: preset usage: %w", err)
	}
	byPreset := make(map[string]*entity.PresetUsage)
	for obj := it.Next(); obj != nil; obj = it.Next() {
		req := obj.(*entity.MaterialRequest)
		if req.PresetID == nil {
			continue
		}
		if filter.From != nil && req.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !req.CreatedAt.Before(*filter.To) {
			continue
		}
		u, ok := byPreset[*req.PresetID]
		if !ok {
			u = &entity.PresetUsage{PresetID: *req.PresetID}
			byPreset[*req.PresetID] = u
		}
		u.Uses++
		if req.DiffersFromPreset {
			u.Modified++
		}
		if req.Status == entity.MRStatusApproved || req.Status.Delivered() {
			u.Approved++
		}
	}
	out := make([]*entity.PresetUsage, 0, len(byPreset))
	for _, u := range byPreset {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uses != out[j].Uses {
			return out[i].Uses > out[j].Uses
		}
		return out[i].PresetID < out[j].PresetID
	})
	return out, nil
}
