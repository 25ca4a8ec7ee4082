package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los casos de uso devuelven estos valores (o los envuelven con %w)
// y la capa HTTP los traduce a códigos de estado.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrInvalidState      = errors.New("operación no permitida en el estado actual")
	ErrConflict          = errors.New("conflicto con el estado actual, reintente la operación")
	ErrInsufficientStock = errors.New("stock insuficiente")
)

// StockShortage describe una línea sin existencia suficiente.
type StockShortage struct {
	ItemID     string
	LocationID string
	Available  decimal.Decimal
	Requested  decimal.Decimal
	Shortfall  decimal.Decimal
}

// InsufficientStockError acumula todas las líneas que no alcanzan. errors.Is(err, ErrInsufficientStock) es true.
type InsufficientStockError struct {
	Lines []StockShortage
}

// NewInsufficientStock construye el error para una sola línea.
func NewInsufficientStock(itemID, locationID string, available, requested decimal.Decimal) *InsufficientStockError {
	e := &InsufficientStockError{}
	e.Add(itemID, locationID, available, requested)
	return e
}

// Add agrega una línea; el faltante se calcula como requested - available.
func (e *InsufficientStockError) Add(itemID, locationID string, available, requested decimal.Decimal) {
	e.Lines = append(e.Lines, StockShortage{
		ItemID:     itemID,
		LocationID: locationID,
		Available:  available,
		Requested:  requested,
		Shortfall:  requested.Sub(available),
	})
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("item %s: disponible %s, solicitado %s, faltante %s",
			l.ItemID, l.Available.StringFixed(2), l.Requested.StringFixed(2), l.Shortfall.StringFixed(2)))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
