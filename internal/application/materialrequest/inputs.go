package materialrequest

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// CreateLine línea solicitada.
type CreateLine struct {
	ItemID            string
	QuantityRequested decimal.Decimal
	Notes             string
}

// CreateInput entrada de Create.
type CreateInput struct {
	TicketID          string
	RequestedBy       string
	Lines             []CreateLine
	Notes             string
	PresetID          *string
	DiffersFromPreset bool
}

// ApproveLine cantidad aprobada para un item de la solicitud.
type ApproveLine struct {
	ItemID           string
	QuantityApproved decimal.Decimal
}

// ApproveInput entrada de Approve. Las líneas omitidas se aprueban en 0.
type ApproveInput struct {
	Lines      []ApproveLine
	LocationID string
	UserID     string
	Notes      string
}

// ReturnLine cantidad devuelta de un item entregado.
type ReturnLine struct {
	ItemID           string
	QuantityReturned decimal.Decimal
}

// ReturnInput entrada de ProcessReturn.
type ReturnInput struct {
	Lines      []ReturnLine
	LocationID string
	UserID     string
}

// Filter filtros opcionales de FindAll.
type Filter struct {
	TicketID string
	Status   entity.MaterialRequestStatus
	UserID   string
}
