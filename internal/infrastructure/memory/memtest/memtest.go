// Package memtest arma un Store en memoria con un catálogo fijo para las pruebas de los casos de uso.
package memtest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/infrastructure/memory"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// Catálogo sembrado por New.
const (
	ItemX = "ITM-X"
	ItemY = "ITM-Y"
	ItemZ = "ITM-Z"

	LocA = "LOC-A"
	LocB = "LOC-B"

	User = "USR-1"

	TicketOpen  = "TCK-1"
	TicketOther = "TCK-2"
	TicketDone  = "TCK-DONE"
)

// New crea un Store con tres items, dos ubicaciones, un usuario y tres tickets.
func New(t testing.TB) *memory.Store {
	t.Helper()
	s, err := memory.NewStore()
	require.NoError(t, err)

	now := time.Now().UTC()
	for id, desc := range map[string]string{ItemX: "Cable THW 12", ItemY: "Cinta aislante", ItemZ: "Foco LED 9W"} {
		require.NoError(t, s.AddItem(&entity.Item{ID: id, Description: desc, Active: true, CreatedAt: now}))
	}
	require.NoError(t, s.AddLocation(&entity.Location{ID: LocA, Name: "Almacén central", Code: "AC"}))
	require.NoError(t, s.AddLocation(&entity.Location{ID: LocB, Name: "Bodega norte", Code: "BN"}))
	require.NoError(t, s.AddUser(&entity.User{ID: User, Name: "Almacenista", CreatedAt: now}))
	require.NoError(t, s.AddTicket(&entity.Ticket{ID: TicketOpen, Title: "Cambio de luminarias", Status: entity.TicketStatusOpen, CreatedAt: now}))
	require.NoError(t, s.AddTicket(&entity.Ticket{ID: TicketOther, Title: "Fuga en baño", Status: entity.TicketStatusInProgress, CreatedAt: now}))
	require.NoError(t, s.AddTicket(&entity.Ticket{ID: TicketDone, Title: "Pintura", Status: entity.TicketStatusDone, CreatedAt: now}))
	return s
}

// Engine construye el motor de stock sobre el Store.
func Engine(s *memory.Store, publisher inventory.MovementPublisher) *inventory.StockEngine {
	return inventory.NewStockEngine(s, s.Balances(), s.Movements(), s.Catalog(), publisher, logger.Nop(), 0)
}

// Stock registra una entrada para dejar existencia inicial en el par.
func Stock(t testing.TB, e *inventory.StockEngine, itemID, locationID string, qty int64) {
	t.Helper()
	_, err := e.Move(context.Background(), inventory.MoveInput{
		ItemID:     itemID,
		LocationID: locationID,
		Type:       entity.MovementTypeIN,
		Quantity:   decimal.NewFromInt(qty),
		UserID:     User,
		Comment:    "existencia inicial",
	})
	require.NoError(t, err)
}

// Qty lee el saldo actual del par.
func Qty(t testing.TB, e *inventory.StockEngine, itemID, locationID string) decimal.Decimal {
	t.Helper()
	q, err := e.CheckStock(context.Background(), itemID, locationID)
	require.NoError(t, err)
	return q
}
