package entity

// ReferenceKind origen de un movimiento.
type ReferenceKind string

const (
	RefMaterialRequest ReferenceKind = "MATERIAL_REQUEST"
	RefTransfer        ReferenceKind = "TRANSFER"
	RefReturn          ReferenceKind = "RETURN"
	RefTicketClose     ReferenceKind = "TICKET_CLOSE"
	RefAdjustment      ReferenceKind = "ADJUSTMENT"
)

// Valid indica si el tipo de referencia es conocido.
func (k ReferenceKind) Valid() bool {
	switch k {
	case RefMaterialRequest, RefTransfer, RefReturn, RefTicketClose, RefAdjustment:
		return true
	}
	return false
}

// Reference vincula un movimiento con el documento que lo originó.
type Reference struct {
	Kind       ReferenceKind
	ExternalID string // opcional
}

// NewReference construye una referencia.
func NewReference(kind ReferenceKind, externalID string) *Reference {
	return &Reference{Kind: kind, ExternalID: externalID}
}
