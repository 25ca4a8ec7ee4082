package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.MaterialRequestRepository = (*MaterialRequestRepo)(nil)

// MaterialRequestRepo solicitudes de material y sus líneas sobre PostgreSQL.
type MaterialRequestRepo struct {
	q Querier
}

// NewMaterialRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMaterialRequestRepository(q Querier) *MaterialRequestRepo {
	return &MaterialRequestRepo{q: q}
}

const requestColumns = `id, folio, status, ticket_id, requested_by, approved_by, delivered_by,
	rejection_reason, preset_id, differs_from_preset, notes, created_at, updated_at, approved_at, delivered_at`

const requestItemColumns = `id, material_request_id, item_id, item_description, quantity_requested,
	quantity_approved, quantity_delivered, quantity_returned, notes`

// itemsLockOrder único orden en que se bloquean líneas de solicitud. La aprobación (por solicitud)
// y el cierre de ticket (por ticket) deben recorrerlas igual o se bloquean mutuamente.
const itemsLockOrder = `ORDER BY i.id`

const (
	queryItemsByRequest = `SELECT i.id, i.material_request_id, i.item_id, i.item_description, i.quantity_requested,
			i.quantity_approved, i.quantity_delivered, i.quantity_returned, i.notes
		FROM material_request_items i
		WHERE i.material_request_id = $1
		` + itemsLockOrder

	queryItemsByTicketForUpdate = `SELECT i.id, i.material_request_id, i.item_id, i.item_description, i.quantity_requested,
			i.quantity_approved, i.quantity_delivered, i.quantity_returned, i.notes
		FROM material_request_items i
		JOIN material_requests m ON m.id = i.material_request_id
		WHERE m.ticket_id = $1
		` + itemsLockOrder + `
		FOR UPDATE OF i`
)

// Create inserta cabecera y líneas. El folio es único: una colisión se reporta como conflicto.
func (r *MaterialRequestRepo) Create(ctx context.Context, req *entity.MaterialRequest) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO material_requests (id, folio, status, ticket_id, requested_by, preset_id,
			differs_from_preset, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID, req.Folio, string(req.Status), req.TicketID, req.RequestedBy, req.PresetID,
		req.DiffersFromPreset, req.Notes, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: folio %s ya existe", domain.ErrConflict, req.Folio)
		}
		return mapError("create material request", err)
	}
	for _, it := range req.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO material_request_items (`+requestItemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, req.ID, it.ItemID, it.ItemDescription, it.QuantityRequested,
			it.QuantityApproved, it.QuantityDelivered, it.QuantityReturned, it.Notes,
		)
		if err != nil {
			return mapError("create material request item", err)
		}
	}
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *MaterialRequestRepo) GetByID(ctx context.Context, id string) (*entity.MaterialRequest, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate bloquea cabecera y líneas.
func (r *MaterialRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.MaterialRequest, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *MaterialRequestRepo) get(ctx context.Context, id, lock string) (*entity.MaterialRequest, error) {
	row := r.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM material_requests WHERE id = $1`+lock, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get material request", err)
	}
	items, err := r.items(ctx, queryItemsByRequest+lock, id)
	if err != nil {
		return nil, err
	}
	// se bloquean por id; se presentan por item
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	req.Items = items
	return req, nil
}

// Update guarda estado, responsables, fechas y cantidades de todas las líneas.
func (r *MaterialRequestRepo) Update(ctx context.Context, req *entity.MaterialRequest) error {
	_, err := r.q.Exec(ctx, `
		UPDATE material_requests SET status = $2, approved_by = $3, delivered_by = $4,
			rejection_reason = $5, notes = $6, updated_at = $7, approved_at = $8, delivered_at = $9
		WHERE id = $1`,
		req.ID, string(req.Status), req.ApprovedBy, req.DeliveredBy, req.RejectionReason,
		req.Notes, req.UpdatedAt, req.ApprovedAt, req.DeliveredAt,
	)
	if err != nil {
		return mapError("update material request", err)
	}
	for _, it := range req.Items {
		if err := r.UpdateItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// List solicitudes más recientes primero, con sus líneas.
func (r *MaterialRequestRepo) List(ctx context.Context, filter repository.MaterialRequestFilter) ([]*entity.MaterialRequest, error) {
	var where []string
	var args []any
	if filter.TicketID != "" {
		args = append(args, filter.TicketID)
		where = append(where, fmt.Sprintf("ticket_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	query := `SELECT ` + requestColumns + ` FROM material_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, length(folio) DESC, folio DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list material requests", err)
	}
	var list []*entity.MaterialRequest
	byID := make(map[string]*entity.MaterialRequest)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, mapError("scan material request", err)
		}
		list = append(list, req)
		byID[req.ID] = req
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("list material requests", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]string, 0, len(list))
	for _, req := range list {
		ids = append(ids, req.ID)
	}
	items, err := r.items(ctx, `SELECT `+requestItemColumns+` FROM material_request_items
		WHERE material_request_id = ANY($1) ORDER BY item_id`, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if req, ok := byID[it.MaterialRequestID]; ok {
			req.Items = append(req.Items, it)
		}
	}
	return list, nil
}

// LockFolioDay toma un advisory lock de transacción sobre el prefijo del día.
func (r *MaterialRequestRepo) LockFolioDay(ctx context.Context, prefix string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, prefix); err != nil {
		return mapError("lock folio day", err)
	}
	return nil
}

// MaxFolio mayor folio del prefijo; compara primero por longitud para que 1000 > 999.
func (r *MaterialRequestRepo) MaxFolio(ctx context.Context, prefix string) (string, error) {
	var folio string
	err := r.q.QueryRow(ctx, `
		SELECT folio FROM material_requests
		WHERE folio LIKE $1 || '-%'
		ORDER BY length(folio) DESC, folio DESC
		LIMIT 1`, prefix).Scan(&folio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", mapError("max folio", err)
	}
	return folio, nil
}

// ItemsByTicketForUpdate bloquea las líneas de todas las solicitudes del ticket.
func (r *MaterialRequestRepo) ItemsByTicketForUpdate(ctx context.Context, ticketID string) ([]*entity.MaterialRequestItem, error) {
	return r.items(ctx, queryItemsByTicketForUpdate, ticketID)
}

// UpdateItem guarda las cantidades de una línea.
func (r *MaterialRequestRepo) UpdateItem(ctx context.Context, it *entity.MaterialRequestItem) error {
	_, err := r.q.Exec(ctx, `
		UPDATE material_request_items
		SET quantity_approved = $2, quantity_delivered = $3, quantity_returned = $4
		WHERE id = $1`,
		it.ID, it.QuantityApproved, it.QuantityDelivered, it.QuantityReturned,
	)
	if err != nil {
		return mapError("update material request item", err)
	}
	return nil
}

func (r *MaterialRequestRepo) items(ctx context.Context, query string, args ...any) ([]*entity.MaterialRequestItem, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list material request items", err)
	}
	defer rows.Close()
	var list []*entity.MaterialRequestItem
	for rows.Next() {
		var it entity.MaterialRequestItem
		if err := rows.Scan(&it.ID, &it.MaterialRequestID, &it.ItemID, &it.ItemDescription,
			&it.QuantityRequested, &it.QuantityApproved, &it.QuantityDelivered, &it.QuantityReturned, &it.Notes); err != nil {
			return nil, mapError("scan material request item", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

func scanRequest(row pgx.Row) (*entity.MaterialRequest, error) {
	var (
		req    entity.MaterialRequest
		status string
	)
	err := row.Scan(&req.ID, &req.Folio, &status, &req.TicketID, &req.RequestedBy, &req.ApprovedBy,
		&req.DeliveredBy, &req.RejectionReason, &req.PresetID, &req.DiffersFromPreset, &req.Notes,
		&req.CreatedAt, &req.UpdatedAt, &req.ApprovedAt, &req.DeliveredAt)
	if err != nil {
		return nil, err
	}
	req.Status = entity.MaterialRequestStatus(status)
	return &req, nil
}

// PresetUsage agrupa por preset_id las solicitudes creadas desde plantilla.
func (r *MaterialRequestRepo) PresetUsage(ctx context.Context, filter repository.PresetUsageFilter) ([]*entity.PresetUsage, error) {
	where := []string{"preset_id IS NOT NULL"}
	args := []any{string(entity.MRStatusApproved), string(entity.MRStatusDelivered), string(entity.MRStatusPartial)}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := `SELECT preset_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE differs_from_preset),
			COUNT(*) FILTER (WHERE status IN ($1, $2, $3))
		FROM material_requests
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY preset_id
		ORDER BY COUNT(*) DESC, preset_id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("preset usage", err)
	}
	defer rows.Close()
	var out []*entity.PresetUsage
	for rows.Next() {
		var u entity.PresetUsage
		if err := rows.Scan(&u.PresetID, &u.Uses, &u.Modified, &u.Approved); err != nil {
			return nil, mapError("scan preset usage", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("preset usage", err)
	}
	return out, nil
}
