package inventory

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// Scale decimales con que se guardan cantidades y saldos.
const Scale = 2

// Round normaliza una cantidad a la escala del kardex.
func Round(q decimal.Decimal) decimal.Decimal {
	return q.Round(Scale)
}

// PositiveQuantity redondea a la escala del kardex; ok es false si el resultado no es > 0.
// Toda cantidad de entrada se valida ya redondeada: 0.004 no es una cantidad.
func PositiveQuantity(q decimal.Decimal) (rounded decimal.Decimal, ok bool) {
	rounded = Round(q)
	return rounded, rounded.IsPositive()
}

// Apply calcula el nuevo saldo y la cantidad que se registra en el kardex (servicio de dominio).
//
//	IN:     nuevo = actual + q;   kardex = q
//	OUT:    nuevo = actual - q;   kardex = q   (falla si nuevo < 0)
//	ADJUST: nuevo = q;            kardex = |nuevo - actual|
func Apply(key entity.BalanceKey, current decimal.Decimal, typ entity.MovementType, qty decimal.Decimal) (newQty, ledgerQty decimal.Decimal, err error) {
	qty = Round(qty)
	if typ != entity.MovementTypeADJUST && !qty.IsPositive() {
		return current, decimal.Zero, fmt.Errorf("%w: la cantidad redondeada a %d decimales debe ser > 0", domain.ErrInvalidInput, Scale)
	}
	switch typ {
	case entity.MovementTypeIN:
		return Round(current.Add(qty)), qty, nil
	case entity.MovementTypeOUT:
		next := current.Sub(qty)
		if next.IsNegative() {
			return current, decimal.Zero, domain.NewInsufficientStock(key.ItemID, key.LocationID, current, qty)
		}
		return Round(next), qty, nil
	case entity.MovementTypeADJUST:
		return qty, Round(qty.Sub(current).Abs()), nil
	}
	return current, decimal.Zero, domain.ErrInvalidInput
}

// Divergence primer movimiento cuyo saldo registrado no coincide con la reconstrucción.
type Divergence struct {
	MovementID string
	Expected   decimal.Decimal
	Recorded   decimal.Decimal
}

// Replay reconstruye el saldo de un par a partir de 0 aplicando los movimientos en orden de inserción.
// Devuelve el saldo final reconstruido y la primera divergencia encontrada, si la hay.
func Replay(movements []*entity.Movement) (decimal.Decimal, *Divergence) {
	running := decimal.Zero
	for _, m := range movements {
		var expected decimal.Decimal
		switch m.Type {
		case entity.MovementTypeIN:
			expected = running.Add(m.Quantity)
		case entity.MovementTypeOUT:
			expected = running.Sub(m.Quantity)
		case entity.MovementTypeADJUST:
			// el ajuste solo guarda la magnitud; el destino es el saldo registrado siempre que la magnitud cuadre
			expected = m.BalanceAfter
			if !running.Sub(m.BalanceAfter).Abs().Equal(m.Quantity) {
				return running, &Divergence{MovementID: m.ID, Expected: running, Recorded: m.BalanceAfter}
			}
		}
		expected = Round(expected)
		if !expected.Equal(m.BalanceAfter) {
			return running, &Divergence{MovementID: m.ID, Expected: expected, Recorded: m.BalanceAfter}
		}
		running = expected
	}
	return running, nil
}

// LockOrder deduplica y ordena las llaves para adquirir bloqueos siempre en el mismo orden global.
func LockOrder(keys ...entity.BalanceKey) []entity.BalanceKey {
	seen := make(map[entity.BalanceKey]struct{}, len(keys))
	out := make([]entity.BalanceKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
