package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// CreateMaterialRequestLine línea del body de creación.
type CreateMaterialRequestLine struct {
	ItemID            string          `json:"item_id"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
	Notes             string          `json:"notes,omitempty"`
}

// CreateMaterialRequestRequest body para POST /api/material-requests.
type CreateMaterialRequestRequest struct {
	TicketID          string                      `json:"ticket_id"`
	Notes             string                      `json:"notes,omitempty"`
	PresetID          *string                     `json:"preset_id,omitempty"`
	DiffersFromPreset bool                        `json:"differs_from_preset"`
	Items             []CreateMaterialRequestLine `json:"items"`
}

// ApproveLineRequest cantidad aprobada de un item.
type ApproveLineRequest struct {
	ItemID           string          `json:"item_id"`
	QuantityApproved decimal.Decimal `json:"quantity_approved"`
}

// ApproveMaterialRequestRequest body para POST /api/material-requests/:id/approve.
type ApproveMaterialRequestRequest struct {
	Items []ApproveLineRequest `json:"items"`
	Notes string               `json:"notes,omitempty"`
}

// RejectMaterialRequestRequest body para POST /api/material-requests/:id/reject.
type RejectMaterialRequestRequest struct {
	Reason string `json:"reason"`
}

// ReturnLineRequest cantidad devuelta de un item.
type ReturnLineRequest struct {
	ItemID           string          `json:"item_id"`
	QuantityReturned decimal.Decimal `json:"quantity_returned"`
}

// ProcessReturnRequest body para POST /api/material-requests/:id/returns.
type ProcessReturnRequest struct {
	Items []ReturnLineRequest `json:"items"`
}

// MaterialRequestItemDTO línea de la solicitud.
type MaterialRequestItemDTO struct {
	ID                string          `json:"id"`
	ItemID            string          `json:"item_id"`
	ItemDescription   string          `json:"item_description"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
	QuantityApproved  decimal.Decimal `json:"quantity_approved"`
	QuantityDelivered decimal.Decimal `json:"quantity_delivered"`
	QuantityReturned  decimal.Decimal `json:"quantity_returned"`
	Notes             string          `json:"notes,omitempty"`
}

// MaterialRequestDTO solicitud con sus líneas.
type MaterialRequestDTO struct {
	ID                string                   `json:"id"`
	Folio             string                   `json:"folio"`
	Status            string                   `json:"status"`
	TicketID          string                   `json:"ticket_id"`
	RequestedBy       string                   `json:"requested_by"`
	ApprovedBy        *string                  `json:"approved_by,omitempty"`
	DeliveredBy       *string                  `json:"delivered_by,omitempty"`
	RejectionReason   *string                  `json:"rejection_reason,omitempty"`
	PresetID          *string                  `json:"preset_id,omitempty"`
	DiffersFromPreset bool                     `json:"differs_from_preset"`
	Notes             string                   `json:"notes,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
	ApprovedAt        *time.Time               `json:"approved_at,omitempty"`
	DeliveredAt       *time.Time               `json:"delivered_at,omitempty"`
	Items             []MaterialRequestItemDTO `json:"items"`
}

// MaterialRequestFromEntity convierte una solicitud.
func MaterialRequestFromEntity(r *entity.MaterialRequest) MaterialRequestDTO {
	d := MaterialRequestDTO{
		ID:                r.ID,
		Folio:             r.Folio,
		Status:            string(r.Status),
		TicketID:          r.TicketID,
		RequestedBy:       r.RequestedBy,
		ApprovedBy:        r.ApprovedBy,
		DeliveredBy:       r.DeliveredBy,
		RejectionReason:   r.RejectionReason,
		PresetID:          r.PresetID,
		DiffersFromPreset: r.DiffersFromPreset,
		Notes:             r.Notes,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		ApprovedAt:        r.ApprovedAt,
		DeliveredAt:       r.DeliveredAt,
		Items:             make([]MaterialRequestItemDTO, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		d.Items = append(d.Items, MaterialRequestItemDTO{
			ID:                it.ID,
			ItemID:            it.ItemID,
			ItemDescription:   it.ItemDescription,
			QuantityRequested: it.QuantityRequested,
			QuantityApproved:  it.QuantityApproved,
			QuantityDelivered: it.QuantityDelivered,
			QuantityReturned:  it.QuantityReturned,
			Notes:             it.Notes,
		})
	}
	return d
}

// MaterialRequestsFromEntities convierte una lista.
func MaterialRequestsFromEntities(list []*entity.MaterialRequest) []MaterialRequestDTO {
	out := make([]MaterialRequestDTO, 0, len(list))
	for _, r := range list {
		out = append(out, MaterialRequestFromEntity(r))
	}
	return out
}

// PresetUsageDTO uso de una plantilla; las tasas son porcentajes.
type PresetUsageDTO struct {
	PresetID     string          `json:"preset_id"`
	Uses         int             `json:"uses"`
	Modified     int             `json:"modified"`
	Approved     int             `json:"approved"`
	ModifiedRate decimal.Decimal `json:"modified_rate"`
	ApprovalRate decimal.Decimal `json:"approval_rate"`
}

// PresetUsageFromEntities convierte las estadísticas de plantillas.
func PresetUsageFromEntities(list []*entity.PresetUsage) []PresetUsageDTO {
	out := make([]PresetUsageDTO, 0, len(list))
	for _, u := range list {
		out = append(out, PresetUsageDTO{
			PresetID:     u.PresetID,
			Uses:         u.Uses,
			Modified:     u.Modified,
			Approved:     u.Approved,
			ModifiedRate: u.ModifiedRate(),
			ApprovalRate: u.ApprovalRate(),
		})
	}
	return out
}
