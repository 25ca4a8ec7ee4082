package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialRequestStatus estado de una solicitud de material.
type MaterialRequestStatus string

const (
	MRStatusPending   MaterialRequestStatus = "PENDING"   // creada, esperando aprobación
	MRStatusApproved  MaterialRequestStatus = "APPROVED"  // reservado; la aprobación resuelve directo a DELIVERED o PARTIAL
	MRStatusRejected  MaterialRequestStatus = "REJECTED"  // rechazada por almacén
	MRStatusDelivered MaterialRequestStatus = "DELIVERED" // entregada completa
	MRStatusPartial   MaterialRequestStatus = "PARTIAL"   // entrega parcial
	MRStatusCancelled MaterialRequestStatus = "CANCELLED" // cancelada por el técnico
)

// Terminal indica si el estado ya no admite aprobación, rechazo ni cancelación.
func (s MaterialRequestStatus) Terminal() bool {
	switch s {
	case MRStatusRejected, MRStatusDelivered, MRStatusPartial, MRStatusCancelled:
		return true
	}
	return false
}

// Delivered indica si la solicitud ya generó salidas de almacén.
func (s MaterialRequestStatus) Delivered() bool {
	return s == MRStatusDelivered || s == MRStatusPartial
}

// Valid indica si el estado es conocido.
func (s MaterialRequestStatus) Valid() bool {
	switch s {
	case MRStatusPending, MRStatusApproved, MRStatusRejected, MRStatusDelivered, MRStatusPartial, MRStatusCancelled:
		return true
	}
	return false
}

// MaterialRequest solicitud de material (requisición) ligada a un ticket.
type MaterialRequest struct {
	ID                string
	Folio             string // MR-YYYYMMDD-NNN, único
	Status            MaterialRequestStatus
	TicketID          string
	RequestedBy       string
	ApprovedBy        *string
	DeliveredBy       *string
	RejectionReason   *string
	PresetID          *string
	DiffersFromPreset bool
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ApprovedAt        *time.Time
	DeliveredAt       *time.Time
	Items             []*MaterialRequestItem
}

// ItemByItemID busca la línea de un item del catálogo.
func (r *MaterialRequest) ItemByItemID(itemID string) *MaterialRequestItem {
	for _, it := range r.Items {
		if it.ItemID == itemID {
			return it
		}
	}
	return nil
}

// MaterialRequestItem línea de una solicitud. Se crea y se borra junto con su solicitud.
type MaterialRequestItem struct {
	ID                string
	MaterialRequestID string
	ItemID            string
	ItemDescription   string // desnormalizado para mostrar
	QuantityRequested decimal.Decimal
	QuantityApproved  decimal.Decimal
	QuantityDelivered decimal.Decimal
	QuantityReturned  decimal.Decimal // acumulado, <= QuantityDelivered
	Notes             string
}

// ReturnableQuantity lo entregado que aún no se ha devuelto.
func (i *MaterialRequestItem) ReturnableQuantity() decimal.Decimal {
	return i.QuantityDelivered.Sub(i.QuantityReturned)
}

// PresetUsage uso de una plantilla (preset) en solicitudes de material.
// Approved cuenta las solicitudes aprobadas, entregadas o parciales.
type PresetUsage struct {
	PresetID string
	Uses     int
	Modified int // solicitudes editadas respecto de la plantilla
	Approved int
}

var hundred = decimal.NewFromInt(100)

func percent(n, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
}

// ModifiedRate porcentaje de usos que se apartaron de la plantilla.
func (p *PresetUsage) ModifiedRate() decimal.Decimal { return percent(p.Modified, p.Uses) }

// ApprovalRate porcentaje de usos que terminaron aprobados.
func (p *PresetUsage) ApprovalRate() decimal.Decimal { return percent(p.Approved, p.Uses) }
