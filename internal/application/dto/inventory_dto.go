package dto

import (
	"time"

	"github.com/shopspring/decimal"

	appinv "github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// MoveRequest body para POST /api/inventory/in, /out y /adjust.
// En /adjust, quantity es el saldo objetivo.
type MoveRequest struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Comment    string          `json:"comment,omitempty"`
}

// TransferRequest body para POST /api/inventory/transfer.
type TransferRequest struct {
	ItemID         string          `json:"item_id"`
	FromLocationID string          `json:"from_location_id"`
	ToLocationID   string          `json:"to_location_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Comment        string          `json:"comment,omitempty"`
}

// BalanceDTO saldo de un item en una ubicación.
type BalanceDTO struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// MovementDTO registro del kardex.
type MovementDTO struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"item_id"`
	LocationID    string          `json:"location_id"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceKind string          `json:"reference_kind,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Comment       string          `json:"comment,omitempty"`
	UserID        string          `json:"user_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransferSideDTO saldo de un lado del traslado.
type TransferSideDTO struct {
	LocationID    string          `json:"location_id"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
}

// TransferResponse respuesta de POST /api/inventory/transfer.
type TransferResponse struct {
	TransferID  string          `json:"transfer_id"`
	ItemID      string          `json:"item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	From        TransferSideDTO `json:"from"`
	To          TransferSideDTO `json:"to"`
	OutMovement MovementDTO     `json:"out_movement"`
	InMovement  MovementDTO     `json:"in_movement"`
}

// CheckStockResponse respuesta de GET /api/inventory/check.
type CheckStockResponse struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// KardexReportDTO resultado de la verificación del kardex.
type KardexReportDTO struct {
	ItemID        string           `json:"item_id"`
	LocationID    string           `json:"location_id"`
	Movements     int              `json:"movements"`
	Replayed      decimal.Decimal  `json:"replayed"`
	Stored        decimal.Decimal  `json:"stored"`
	Consistent    bool             `json:"consistent"`
	DivergentID   string           `json:"divergent_movement_id,omitempty"`
	ExpectedAfter *decimal.Decimal `json:"expected_balance_after,omitempty"`
	RecordedAfter *decimal.Decimal `json:"recorded_balance_after,omitempty"`
}

// BalanceFromEntity convierte un saldo.
func BalanceFromEntity(b *entity.Balance) BalanceDTO {
	return BalanceDTO{ItemID: b.ItemID, LocationID: b.LocationID, Quantity: b.Quantity, UpdatedAt: b.UpdatedAt}
}

// BalancesFromEntities convierte una lista de saldos.
func BalancesFromEntities(list []*entity.Balance) []BalanceDTO {
	out := make([]BalanceDTO, 0, len(list))
	for _, b := range list {
		out = append(out, BalanceFromEntity(b))
	}
	return out
}

// MovementFromEntity convierte un movimiento.
func MovementFromEntity(m *entity.Movement) MovementDTO {
	d := MovementDTO{
		ID:           m.ID,
		ItemID:       m.ItemID,
		LocationID:   m.LocationID,
		Type:         string(m.Type),
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Comment:      m.Comment,
		UserID:       m.UserID,
		CreatedAt:    m.CreatedAt,
	}
	if m.Reference != nil {
		d.ReferenceKind = string(m.Reference.Kind)
		d.ReferenceID = m.Reference.ExternalID
	}
	return d
}

// MovementsFromEntities convierte una lista de movimientos.
func MovementsFromEntities(list []*entity.Movement) []MovementDTO {
	out := make([]MovementDTO, 0, len(list))
	for _, m := range list {
		out = append(out, MovementFromEntity(m))
	}
	return out
}

// TransferFromResult convierte el resultado del traslado.
func TransferFromResult(r *appinv.TransferResult) TransferResponse {
	return TransferResponse{
		TransferID: r.TransferID,
		ItemID:     r.OutMovement.ItemID,
		Quantity:   r.OutMovement.Quantity,
		From: TransferSideDTO{
			LocationID:    r.From.LocationID,
			PreviousStock: r.From.PreviousStock,
			NewStock:      r.From.Balance.Quantity,
		},
		To: TransferSideDTO{
			LocationID:    r.To.LocationID,
			PreviousStock: r.To.PreviousStock,
			NewStock:      r.To.Balance.Quantity,
		},
		OutMovement: MovementFromEntity(r.OutMovement),
		InMovement:  MovementFromEntity(r.InMovement),
	}
}

// KardexReportFromResult convierte el reporte de verificación.
func KardexReportFromResult(r *appinv.KardexReport) KardexReportDTO {
	d := KardexReportDTO{
		ItemID:     r.ItemID,
		LocationID: r.LocationID,
		Movements:  r.Movements,
		Replayed:   r.Replayed,
		Stored:     r.Stored,
		Consistent: r.Consistent,
	}
	if r.Divergence != nil {
		d.DivergentID = r.Divergence.MovementID
		d.ExpectedAfter = &r.Divergence.Expected
		d.RecordedAfter = &r.Divergence.Recorded
	}
	return d
}
