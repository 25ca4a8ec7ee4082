package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del kardex.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementTypeIN     MovementType = "IN"     // entrada
	MovementTypeOUT    MovementType = "OUT"    // salida
	MovementTypeADJUST MovementType = "ADJUST" // ajuste a un valor absoluto
)

// Valid indica si el tipo es uno de IN, OUT o ADJUST.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeADJUST:
		return true
	}
	return false
}

// Movement es una entrada inmutable del kardex.
// Quantity es siempre la magnitud del cambio (nunca con signo); BalanceAfter es el saldo resultante.
type Movement struct {
	ID           string
	ItemID       string
	LocationID   string
	Type         MovementType
	Quantity     decimal.Decimal
	BalanceAfter decimal.Decimal
	Reference    *Reference
	Comment      string
	UserID       string
	CreatedAt    time.Time
	Seq          int64 // asignado por el almacenamiento; orden total de inserción
}

// SignedDelta devuelve el cambio con signo que el movimiento aplicó sobre before.
// Para ADJUST el signo se deduce del saldo resultante.
func (m *Movement) SignedDelta(before decimal.Decimal) decimal.Decimal {
	switch m.Type {
	case MovementTypeIN:
		return m.Quantity
	case MovementTypeOUT:
		return m.Quantity.Neg()
	default:
		return m.BalanceAfter.Sub(before)
	}
}
