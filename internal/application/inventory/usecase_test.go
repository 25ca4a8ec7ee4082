package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	mt "github.com/jhoicas/kardex-api/internal/infrastructure/memory/memtest"
)

// recordingPublisher guarda lo publicado; err simula un broker caído.
type recordingPublisher struct {
	mu        sync.Mutex
	published []*entity.Movement
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, movements ...*entity.Movement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, movements...)
	return p.err
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func move(typ entity.MovementType, item, loc string, qty int64) inventory.MoveInput {
	return inventory.MoveInput{ItemID: item, LocationID: loc, Type: typ, Quantity: dec(qty), UserID: mt.User}
}

func TestMove_EntradaSalidaAjuste(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	e := mt.Engine(mt.New(t), pub)

	m, err := e.Move(ctx, move(entity.MovementTypeIN, mt.ItemX, mt.LocA, 10))
	require.NoError(t, err)
	assert.True(t, dec(10).Equal(m.Quantity))
	assert.True(t, dec(10).Equal(m.BalanceAfter))
	assert.NotEmpty(t, m.ID)
	assert.Nil(t, m.Reference)

	m, err = e.Move(ctx, move(entity.MovementTypeOUT, mt.ItemX, mt.LocA, 4))
	require.NoError(t, err)
	assert.True(t, dec(6).Equal(m.BalanceAfter))

	m, err = e.Move(ctx, move(entity.MovementTypeADJUST, mt.ItemX, mt.LocA, 20))
	require.NoError(t, err)
	assert.True(t, dec(14).Equal(m.Quantity), "el kardex guarda la magnitud del ajuste")
	assert.True(t, dec(20).Equal(m.BalanceAfter))
	require.NotNil(t, m.Reference)
	assert.Equal(t, entity.RefAdjustment, m.Reference.Kind)

	assert.True(t, dec(20).Equal(mt.Qty(t, e, mt.ItemX, mt.LocA)))
	assert.Len(t, pub.published, 3, "cada movimiento confirmado se publica")
}

func TestMove_SalidaInsuficiente(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	e := mt.Engine(mt.New(t), pub)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 6)

	_, err := e.Move(ctx, move(entity.MovementTypeOUT, mt.ItemX, mt.LocA, 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	require.Len(t, ise.Lines, 1)
	assert.True(t, dec(6).Equal(ise.Lines[0].Available))
	assert.True(t, dec(100).Equal(ise.Lines[0].Requested))
	assert.True(t, dec(94).Equal(ise.Lines[0].Shortfall))

	assert.True(t, dec(6).Equal(mt.Qty(t, e, mt.ItemX, mt.LocA)), "el saldo no cambia")
	movs, err := e.FindMovements(ctx, mt.ItemX, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 1, "no se agrega movimiento al kardex")
	assert.Len(t, pub.published, 1, "solo se publicó la existencia inicial")
}

func TestMove_AjusteMismoValorYBajaTotal(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 7)

	m, err := e.Move(ctx, move(entity.MovementTypeADJUST, mt.ItemX, mt.LocA, 7))
	require.NoError(t, err)
	assert.True(t, m.Quantity.IsZero(), "ajuste al mismo valor registra magnitud 0")
	assert.True(t, dec(7).Equal(m.BalanceAfter))

	m, err = e.Move(ctx, move(entity.MovementTypeADJUST, mt.ItemX, mt.LocA, 0))
	require.NoError(t, err)
	assert.True(t, dec(7).Equal(m.Quantity))
	assert.True(t, m.BalanceAfter.IsZero())

	movs, err := e.FindMovements(ctx, mt.ItemX, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 3)
}

func TestMove_Validaciones(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)

	cases := []struct {
		name string
		in   inventory.MoveInput
		want error
	}{
		{"cantidad cero en entrada", move(entity.MovementTypeIN, mt.ItemX, mt.LocA, 0), domain.ErrInvalidInput},
		{"cantidad negativa", move(entity.MovementTypeOUT, mt.ItemX, mt.LocA, -1), domain.ErrInvalidInput},
		{"ajuste negativo", move(entity.MovementTypeADJUST, mt.ItemX, mt.LocA, -1), domain.ErrInvalidInput},
		{"tipo desconocido", move("MOVE", mt.ItemX, mt.LocA, 1), domain.ErrInvalidInput},
		{"sin item", move(entity.MovementTypeIN, "", mt.LocA, 1), domain.ErrInvalidInput},
		{"item inexistente", move(entity.MovementTypeIN, "NOPE", mt.LocA, 1), domain.ErrNotFound},
		{"ubicación inexistente", move(entity.MovementTypeIN, mt.ItemX, "NOPE", 1), domain.ErrNotFound},
		{"usuario inexistente", inventory.MoveInput{ItemID: mt.ItemX, LocationID: mt.LocA, Type: entity.MovementTypeIN, Quantity: dec(1), UserID: "NOPE"}, domain.ErrNotFound},
		{"referencia desconocida", inventory.MoveInput{ItemID: mt.ItemX, LocationID: mt.LocA, Type: entity.MovementTypeIN, Quantity: dec(1), UserID: mt.User, Reference: entity.NewReference("PO", "1")}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Move(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	stock, err := e.FindStock(ctx, repository.BalanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, stock, "ninguna validación fallida crea saldos")
}

func TestMove_PublicacionFallidaNoRevierte(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker caído")}
	e := mt.Engine(mt.New(t), pub)

	_, err := e.Move(context.Background(), move(entity.MovementTypeIN, mt.ItemX, mt.LocA, 3))
	require.NoError(t, err)
	assert.True(t, dec(3).Equal(mt.Qty(t, e, mt.ItemX, mt.LocA)))
}

// stuckPublisher se queda esperando como un broker que no responde.
type stuckPublisher struct{ ctxErr error }

func (p *stuckPublisher) Publish(ctx context.Context, _ ...*entity.Movement) error {
	<-ctx.Done()
	p.ctxErr = ctx.Err()
	return ctx.Err()
}

func TestMove_PublicacionAcotadaPorTimeout(t *testing.T) {
	pub := &stuckPublisher{}
	e := mt.Engine(mt.New(t), pub)
	e.SetPublishTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := e.Move(context.Background(), move(entity.MovementTypeIN, mt.ItemX, mt.LocA, 3))

	require.NoError(t, err, "el fallo al publicar no revierte el movimiento")
	assert.Less(t, time.Since(start), 2*time.Second, "no espera al broker más allá del tope")
	assert.ErrorIs(t, pub.ctxErr, context.DeadlineExceeded)
	assert.True(t, dec(3).Equal(mt.Qty(t, e, mt.ItemX, mt.LocA)))
}

func TestTransfer_IdaYVuelta(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 10)

	res, err := e.Transfer(ctx, inventory.TransferInput{
		ItemID: mt.ItemX, FromLocationID: mt.LocA, ToLocationID: mt.LocB, Quantity: dec(4), UserID: mt.User,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TransferID)
	assert.True(t, dec(10).Equal(res.From.PreviousStock))
	assert.True(t, dec(6).Equal(res.From.Balance.Quantity))
	assert.True(t, res.To.PreviousStock.IsZero())
	assert.True(t, dec(4).Equal(res.To.Balance.Quantity))

	assert.Equal(t, entity.MovementTypeOUT, res.OutMovement.Type)
	assert.Equal(t, entity.MovementTypeIN, res.InMovement.Type)
	for _, m := range []*entity.Movement{res.OutMovement, res.InMovement} {
		require.NotNil(t, m.Reference)
		assert.Equal(t, entity.RefTransfer, m.Reference.Kind)
		assert.Equal(t, res.TransferID, m.Reference.ExternalID)
	}
	assert.Equal(t, "Transferencia a ubicación destino", res.OutMovement.Comment)
	assert.Equal(t, "Transferencia desde ubicación origen", res.InMovement.Comment)

	_, err = e.Transfer(ctx, inventory.TransferInput{
		ItemID: mt.ItemX, FromLocationID: mt.LocB, ToLocationID: mt.LocA, Quantity: dec(4), UserID: mt.User,
	})
	require.NoError(t, err)

	assert.True(t, dec(10).Equal(mt.Qty(t, e, mt.ItemX, mt.LocA)))
	assert.True(t, mt.Qty(t, e, mt.ItemX, mt.LocB).IsZero())

	movs, err := e.FindMovements(ctx, mt.ItemX, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 5, "entrada inicial más dos pares de traslado")
}

func TestTransfer_Errores(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 3)

	_, err := e.Transfer(ctx, inventory.TransferInput{
		ItemID: mt.ItemX, FromLocationID: mt.LocA, ToLocationID: mt.LocA, Quantity: dec(1), UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.Transfer(ctx, inventory.TransferInput{
		ItemID: mt.ItemX, FromLocationID: mt.LocA, ToLocationID: mt.LocB, Quantity: dec(5), UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, dec(3).Equal(mt.Qty(t, e, mt.ItemX, mt.LocA)))
	assert.True(t, mt.Qty(t, e, mt.ItemX, mt.LocB).IsZero())

	_, err = e.Transfer(ctx, inventory.TransferInput{
		ItemID: mt.ItemX, FromLocationID: mt.LocA, ToLocationID: "NOPE", Quantity: dec(1), UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMove_CantidadesSeRedondeanAntesDeValidar(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)

	for _, typ := range []entity.MovementType{entity.MovementTypeIN, entity.MovementTypeOUT} {
		_, err := e.Move(ctx, inventory.MoveInput{
			ItemID: mt.ItemX, LocationID: mt.LocA, Type: typ, Quantity: decimal.RequireFromString("0.004"), UserID: mt.User,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%s de 0.004 redondea a 0", typ)
	}
	movs, err := e.FindMovements(ctx, mt.ItemX, 0)
	require.NoError(t, err)
	assert.Empty(t, movs, "no se agrega ningún movimiento de cantidad 0")

	_, err = e.Transfer(ctx, inventory.TransferInput{
		ItemID: mt.ItemX, FromLocationID: mt.LocA, ToLocationID: mt.LocB, Quantity: decimal.RequireFromString("0.001"), UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransfer_ComparaLaCantidadRedondeada(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 5)
	mt.Stock(t, e, mt.ItemY, mt.LocA, 5)

	// 5.004 se registra como 5.00: traslado y salida se comportan igual
	res, err := e.Transfer(ctx, inventory.TransferInput{
		ItemID: mt.ItemX, FromLocationID: mt.LocA, ToLocationID: mt.LocB, Quantity: decimal.RequireFromString("5.004"), UserID: mt.User,
	})
	require.NoError(t, err)
	assert.True(t, dec(5).Equal(res.OutMovement.Quantity))
	assert.True(t, res.From.Balance.Quantity.IsZero())
	assert.True(t, dec(5).Equal(mt.Qty(t, e, mt.ItemX, mt.LocB)))

	m, err := e.Move(ctx, inventory.MoveInput{
		ItemID: mt.ItemY, LocationID: mt.LocA, Type: entity.MovementTypeOUT, Quantity: decimal.RequireFromString("5.004"), UserID: mt.User,
	})
	require.NoError(t, err)
	assert.True(t, dec(5).Equal(m.Quantity))
	assert.True(t, m.BalanceAfter.IsZero())
}

func TestMove_SalidasConcurrentesNuncaNegativas(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Move(ctx, move(entity.MovementTypeOUT, mt.ItemX, mt.LocA, 1))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				fail++
				return
			}
			ok++
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, fail)
	assert.True(t, mt.Qty(t, e, mt.ItemX, mt.LocA).IsZero())

	rep, err := e.VerifyKardex(ctx, mt.ItemX, mt.LocA)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, 11, rep.Movements)
}

func TestFindMovements_OrdenYLimite(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	for i := int64(1); i <= 5; i++ {
		mt.Stock(t, e, mt.ItemX, mt.LocA, i)
	}
	mt.Stock(t, e, mt.ItemX, mt.LocB, 100)

	movs, err := e.FindMovements(ctx, mt.ItemX, 3)
	require.NoError(t, err)
	require.Len(t, movs, 3)
	assert.Equal(t, mt.LocB, movs[0].LocationID, "el más reciente primero")
	assert.True(t, dec(5).Equal(movs[1].Quantity))
	assert.True(t, dec(4).Equal(movs[2].Quantity))
	assert.Greater(t, movs[0].Seq, movs[1].Seq)

	movs, err = e.FindMovementsAt(ctx, mt.ItemX, mt.LocA, 2, 1)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.True(t, dec(4).Equal(movs[0].Quantity))
	assert.True(t, dec(3).Equal(movs[1].Quantity))

	_, err = e.FindMovements(ctx, "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFindStockYCheckStock(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 2)
	mt.Stock(t, e, mt.ItemY, mt.LocA, 3)
	mt.Stock(t, e, mt.ItemX, mt.LocB, 4)

	all, err := e.FindStock(ctx, repository.BalanceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byItem, err := e.FindStock(ctx, repository.BalanceFilter{ItemID: mt.ItemX})
	require.NoError(t, err)
	assert.Len(t, byItem, 2)

	byLoc, err := e.FindStock(ctx, repository.BalanceFilter{LocationID: mt.LocA})
	require.NoError(t, err)
	assert.Len(t, byLoc, 2)

	q, err := e.CheckStock(ctx, mt.ItemZ, mt.LocA)
	require.NoError(t, err)
	assert.True(t, q.IsZero(), "par sin movimientos reporta 0")

	_, err = e.CheckStock(ctx, "", mt.LocA)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVerifyKardex(t *testing.T) {
	ctx := context.Background()
	e := mt.Engine(mt.New(t), nil)
	mt.Stock(t, e, mt.ItemX, mt.LocA, 10)
	_, err := e.Move(ctx, move(entity.MovementTypeOUT, mt.ItemX, mt.LocA, 3))
	require.NoError(t, err)
	_, err = e.Move(ctx, move(entity.MovementTypeADJUST, mt.ItemX, mt.LocA, 2))
	require.NoError(t, err)

	rep, err := e.VerifyKardex(ctx, mt.ItemX, mt.LocA)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Nil(t, rep.Divergence)
	assert.Equal(t, 3, rep.Movements)
	assert.True(t, dec(2).Equal(rep.Replayed))
	assert.True(t, dec(2).Equal(rep.Stored))
}
