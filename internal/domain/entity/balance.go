package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance representa la existencia actual de un item en una ubicación.
// Hay a lo sumo una fila por (ItemID, LocationID); se crea en 0 con el primer movimiento y nunca se borra.
type Balance struct {
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal // >= 0, dos decimales
	UpdatedAt  time.Time
}

// Key devuelve la llave de bloqueo del saldo.
func (b *Balance) Key() BalanceKey {
	return BalanceKey{ItemID: b.ItemID, LocationID: b.LocationID}
}

// BalanceKey identifica un saldo. El orden total (item, ubicación) se usa para adquirir bloqueos.
type BalanceKey struct {
	ItemID     string
	LocationID string
}

// Less compara por item y luego por ubicación.
func (k BalanceKey) Less(o BalanceKey) bool {
	if k.ItemID != o.ItemID {
		return k.ItemID < o.ItemID
	}
	return k.LocationID < o.LocationID
}
