package materialrequest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/materialrequest"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/infrastructure/memory"
	mt "github.com/jhoicas/kardex-api/internal/infrastructure/memory/memtest"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

var fixedNow = time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	engine *inventory.StockEngine
	uc     *materialrequest.WorkflowUseCase
}

type fakeVoucher struct{}

func (fakeVoucher) GenerateDeliveryVoucher(_ context.Context, req *entity.MaterialRequest) ([]byte, error) {
	return []byte("%PDF-" + req.Folio), nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := mt.New(t)
	e := mt.Engine(s, nil)
	uc := materialrequest.NewWorkflowUseCase(s, s.MaterialRequests(), s.Tickets(), s.Catalog(), e, fakeVoucher{}, logger.Nop(), "")
	uc.SetClock(func() time.Time { return fixedNow })
	return &fixture{store: s, engine: e, uc: uc}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (f *fixture) create(t *testing.T, lines ...materialrequest.CreateLine) *entity.MaterialRequest {
	t.Helper()
	req, err := f.uc.Create(context.Background(), materialrequest.CreateInput{
		TicketID:    mt.TicketOpen,
		RequestedBy: mt.User,
		Lines:       lines,
	})
	require.NoError(t, err)
	return req
}

func line(item string, qty int64) materialrequest.CreateLine {
	return materialrequest.CreateLine{ItemID: item, QuantityRequested: dec(qty)}
}

func approve(item string, qty int64) materialrequest.ApproveLine {
	return materialrequest.ApproveLine{ItemID: item, QuantityApproved: dec(qty)}
}

func TestCreate_FolioConsecutivo(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, line(mt.ItemX, 5))
	second := f.create(t, line(mt.ItemY, 1))

	assert.Equal(t, "MR-20250131-001", first.Folio)
	assert.Equal(t, "MR-20250131-002", second.Folio)
	assert.Equal(t, entity.MRStatusPending, first.Status)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "Cable THW 12", first.Items[0].ItemDescription, "se copia la descripción del catálogo")
	assert.True(t, first.Items[0].QuantityDelivered.IsZero())

	// otro día reinicia el consecutivo
	f.uc.SetClock(func() time.Time { return fixedNow.AddDate(0, 0, 1) })
	next := f.create(t, line(mt.ItemX, 1))
	assert.Equal(t, "MR-20250201-001", next.Folio)
}

func TestCreate_FolioConDiaUTC(t *testing.T) {
	f := newFixture(t)
	// 20:30 del 31 en Bogotá ya es 1 de febrero en UTC
	f.uc.SetClock(func() time.Time { return time.Date(2025, 1, 31, 20, 30, 0, 0, time.FixedZone("COT", -5*60*60)) })

	req := f.create(t, line(mt.ItemX, 1))
	assert.Equal(t, "MR-20250201-001", req.Folio)
}

func TestCreate_FoliosConcurrentesUnicos(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var wg sync.WaitGroup
	folios := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := f.uc.Create(context.Background(), materialrequest.CreateInput{
				TicketID: mt.TicketOpen, RequestedBy: mt.User, Lines: []materialrequest.CreateLine{line(mt.ItemX, 1)},
			})
			if assert.NoError(t, err) {
				folios <- req.Folio
			}
		}()
	}
	wg.Wait()
	close(folios)

	seen := map[string]bool{}
	for folio := range folios {
		assert.False(t, seen[folio], "folio duplicado %s", folio)
		seen[folio] = true
	}
	assert.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("MR-20250131-%03d", i)], "falta el consecutivo %d", i)
	}
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   materialrequest.CreateInput
		want error
	}{
		{"sin líneas", materialrequest.CreateInput{TicketID: mt.TicketOpen, RequestedBy: mt.User}, domain.ErrInvalidInput},
		{"cantidad cero", materialrequest.CreateInput{TicketID: mt.TicketOpen, RequestedBy: mt.User, Lines: []materialrequest.CreateLine{line(mt.ItemX, 0)}}, domain.ErrInvalidInput},
		{"cantidad que redondea a cero", materialrequest.CreateInput{TicketID: mt.TicketOpen, RequestedBy: mt.User, Lines: []materialrequest.CreateLine{{ItemID: mt.ItemX, QuantityRequested: decimal.RequireFromString("0.001")}}}, domain.ErrInvalidInput},
		{"item repetido", materialrequest.CreateInput{TicketID: mt.TicketOpen, RequestedBy: mt.User, Lines: []materialrequest.CreateLine{line(mt.ItemX, 1), line(mt.ItemX, 2)}}, domain.ErrInvalidInput},
		{"ticket inexistente", materialrequest.CreateInput{TicketID: "NOPE", RequestedBy: mt.User, Lines: []materialrequest.CreateLine{line(mt.ItemX, 1)}}, domain.ErrNotFound},
		{"usuario inexistente", materialrequest.CreateInput{TicketID: mt.TicketOpen, RequestedBy: "NOPE", Lines: []materialrequest.CreateLine{line(mt.ItemX, 1)}}, domain.ErrNotFound},
		{"item inexistente", materialrequest.CreateInput{TicketID: mt.TicketOpen, RequestedBy: mt.User, Lines: []materialrequest.CreateLine{line("NOPE", 1)}}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	all, err := f.uc.FindAll(ctx, materialrequest.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestApprove_Parcial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 10)
	mt.Stock(t, f.engine, mt.ItemY, mt.LocA, 1)
	req := f.create(t, line(mt.ItemX, 5), line(mt.ItemY, 2))

	got, err := f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
		Lines:      []materialrequest.ApproveLine{approve(mt.ItemX, 5), approve(mt.ItemY, 1)},
		LocationID: mt.LocA,
		UserID:     mt.User,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MRStatusPartial, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, mt.User, *got.ApprovedBy)
	require.NotNil(t, got.DeliveredAt)

	assert.True(t, dec(5).Equal(mt.Qty(t, f.engine, mt.ItemX, mt.LocA)))
	assert.True(t, mt.Qty(t, f.engine, mt.ItemY, mt.LocA).IsZero())

	stored, err := f.uc.FindOne(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MRStatusPartial, stored.Status)
	assert.True(t, dec(1).Equal(stored.ItemByItemID(mt.ItemY).QuantityDelivered))
	assert.True(t, dec(1).Equal(stored.ItemByItemID(mt.ItemY).QuantityApproved))

	movs, err := f.engine.FindMovements(ctx, mt.ItemX, 1)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeOUT, movs[0].Type)
	require.NotNil(t, movs[0].Reference)
	assert.Equal(t, entity.RefMaterialRequest, movs[0].Reference.Kind)
	assert.Equal(t, req.ID, movs[0].Reference.ExternalID)
	assert.Equal(t, "Material Request MR-20250131-001 - Ticket "+mt.TicketOpen, movs[0].Comment)
}

func TestApprove_Completa(t *testing.T) {
	f := newFixture(t)
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 5)
	req := f.create(t, line(mt.ItemX, 5))

	got, err := f.uc.Approve(context.Background(), req.ID, materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 5)}, LocationID: mt.LocA, UserID: mt.User, Notes: "entregado en sitio",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MRStatusDelivered, got.Status)
	assert.Equal(t, "entregado en sitio", got.Notes)
	assert.True(t, mt.Qty(t, f.engine, mt.ItemX, mt.LocA).IsZero())
}

func TestApprove_FaltanteEsAtomico(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 10)
	mt.Stock(t, f.engine, mt.ItemY, mt.LocA, 1)
	req := f.create(t, line(mt.ItemX, 5), line(mt.ItemY, 3), line(mt.ItemZ, 2))

	_, err := f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
		Lines:      []materialrequest.ApproveLine{approve(mt.ItemX, 5), approve(mt.ItemY, 3), approve(mt.ItemZ, 2)},
		LocationID: mt.LocA,
		UserID:     mt.User,
	})
	require.Error(t, err)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	require.Len(t, ise.Lines, 2, "se reportan todas las líneas faltantes")
	short := map[string]domain.StockShortage{}
	for _, l := range ise.Lines {
		short[l.ItemID] = l
	}
	assert.True(t, dec(2).Equal(short[mt.ItemY].Shortfall))
	assert.True(t, dec(2).Equal(short[mt.ItemZ].Shortfall))

	stored, err := f.uc.FindOne(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MRStatusPending, stored.Status)
	assert.True(t, stored.ItemByItemID(mt.ItemX).QuantityDelivered.IsZero())
	assert.True(t, dec(10).Equal(mt.Qty(t, f.engine, mt.ItemX, mt.LocA)), "la línea con existencia tampoco se descuenta")

	movs, err := f.engine.FindMovements(ctx, mt.ItemX, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 1, "solo la existencia inicial")
}

func TestApprove_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 10)
	req := f.create(t, line(mt.ItemX, 5))

	_, err := f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 6)}, LocationID: mt.LocA, UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "aprobar más de lo solicitado")

	_, err = f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemY, 1)}, LocationID: mt.LocA, UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "item fuera de la solicitud")

	_, err = f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 1)}, LocationID: "NOPE", UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.Approve(ctx, "NOPE", materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 1)}, LocationID: mt.LocA, UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransiciones_SoloDesdePendiente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 10)

	delivered := f.create(t, line(mt.ItemX, 1))
	_, err := f.uc.Approve(ctx, delivered.ID, materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 1)}, LocationID: mt.LocA, UserID: mt.User,
	})
	require.NoError(t, err)

	rejected := f.create(t, line(mt.ItemX, 1))
	got, err := f.uc.Reject(ctx, rejected.ID, "sin presupuesto", mt.User)
	require.NoError(t, err)
	assert.Equal(t, entity.MRStatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "sin presupuesto", *got.RejectionReason)

	cancelled := f.create(t, line(mt.ItemX, 1))
	got, err = f.uc.Cancel(ctx, cancelled.ID, mt.User)
	require.NoError(t, err)
	assert.Equal(t, entity.MRStatusCancelled, got.Status)

	for _, id := range []string{delivered.ID, rejected.ID, cancelled.ID} {
		_, err = f.uc.Approve(ctx, id, materialrequest.ApproveInput{
			Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 1)}, LocationID: mt.LocA, UserID: mt.User,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = f.uc.Reject(ctx, id, "motivo", mt.User)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = f.uc.Cancel(ctx, id, mt.User)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	}

	_, err = f.uc.Reject(ctx, f.create(t, line(mt.ItemX, 1)).ID, "", mt.User)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el rechazo exige motivo")

	assert.True(t, dec(9).Equal(mt.Qty(t, f.engine, mt.ItemX, mt.LocA)))
}

func TestProcessReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 10)
	req := f.create(t, line(mt.ItemX, 5))

	_, err := f.uc.ProcessReturn(ctx, req.ID, materialrequest.ReturnInput{
		Lines: []materialrequest.ReturnLine{{ItemID: mt.ItemX, QuantityReturned: dec(1)}}, LocationID: mt.LocA, UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "no se devuelve lo que no se entregó")

	_, err = f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 5)}, LocationID: mt.LocA, UserID: mt.User,
	})
	require.NoError(t, err)

	_, err = f.uc.ProcessReturn(ctx, req.ID, materialrequest.ReturnInput{
		Lines: []materialrequest.ReturnLine{{ItemID: mt.ItemX, QuantityReturned: dec(6)}}, LocationID: mt.LocA, UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.ProcessReturn(ctx, req.ID, materialrequest.ReturnInput{
		Lines: []materialrequest.ReturnLine{{ItemID: mt.ItemX, QuantityReturned: decimal.RequireFromString("0.004")}}, LocationID: mt.LocA, UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "0.004 redondea a 0")

	got, err := f.uc.ProcessReturn(ctx, req.ID, materialrequest.ReturnInput{
		Lines: []materialrequest.ReturnLine{{ItemID: mt.ItemX, QuantityReturned: dec(2)}}, LocationID: mt.LocB, UserID: mt.User,
	})
	require.NoError(t, err)
	assert.True(t, dec(2).Equal(got.ItemByItemID(mt.ItemX).QuantityReturned))
	assert.Equal(t, entity.MRStatusDelivered, got.Status, "la devolución no cambia el estado")
	assert.True(t, dec(5).Equal(mt.Qty(t, f.engine, mt.ItemX, mt.LocA)))
	assert.True(t, dec(2).Equal(mt.Qty(t, f.engine, mt.ItemX, mt.LocB)), "entra en la ubicación de devolución")

	movs, err := f.engine.FindMovements(ctx, mt.ItemX, 1)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.RefReturn, movs[0].Reference.Kind)
	assert.Equal(t, "Devolución Material Request MR-20250131-001", movs[0].Comment)

	// quedan 3 por devolver
	_, err = f.uc.ProcessReturn(ctx, req.ID, materialrequest.ReturnInput{
		Lines: []materialrequest.ReturnLine{{ItemID: mt.ItemX, QuantityReturned: dec(4)}}, LocationID: mt.LocA, UserID: mt.User,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.ProcessReturn(ctx, req.ID, materialrequest.ReturnInput{
		Lines: []materialrequest.ReturnLine{{ItemID: mt.ItemX, QuantityReturned: dec(3)}}, LocationID: mt.LocA, UserID: mt.User,
	})
	require.NoError(t, err)
}

func TestFindAll_Filtros(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, line(mt.ItemX, 1))
	_ = f.create(t, line(mt.ItemY, 1))
	_, err := f.uc.Cancel(ctx, a.ID, mt.User)
	require.NoError(t, err)

	all, err := f.uc.FindAll(ctx, materialrequest.Filter{TicketID: mt.TicketOpen})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "MR-20250131-002", all[0].Folio, "más reciente primero")

	pending, err := f.uc.FindAll(ctx, materialrequest.Filter{Status: entity.MRStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.uc.FindAll(ctx, materialrequest.Filter{Status: "ARCHIVED"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.FindOne(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeliveryVoucherPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 1)
	req := f.create(t, line(mt.ItemX, 1))

	_, _, err := f.uc.DeliveryVoucherPDF(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
		Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 1)}, LocationID: mt.LocA, UserID: mt.User,
	})
	require.NoError(t, err)

	pdf, name, err := f.uc.DeliveryVoucherPDF(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "vale-MR-20250131-001.pdf", name)
	assert.Equal(t, "%PDF-MR-20250131-001", string(pdf))
}

func TestPresetUsage_UsoModificacionYAprobacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mt.Stock(t, f.engine, mt.ItemX, mt.LocA, 10)

	fromPreset := func(preset string, modified bool) *entity.MaterialRequest {
		req, err := f.uc.Create(ctx, materialrequest.CreateInput{
			TicketID:          mt.TicketOpen,
			RequestedBy:       mt.User,
			Lines:             []materialrequest.CreateLine{line(mt.ItemX, 1)},
			PresetID:          &preset,
			DiffersFromPreset: modified,
		})
		require.NoError(t, err)
		return req
	}
	deliver := func(req *entity.MaterialRequest) {
		_, err := f.uc.Approve(ctx, req.ID, materialrequest.ApproveInput{
			Lines: []materialrequest.ApproveLine{approve(mt.ItemX, 1)}, LocationID: mt.LocA, UserID: mt.User,
		})
		require.NoError(t, err)
	}

	deliver(fromPreset("PRE-ELEC", true))
	deliver(fromPreset("PRE-ELEC", false))
	_, err := f.uc.Reject(ctx, fromPreset("PRE-ELEC", false).ID, "duplicada", mt.User)
	require.NoError(t, err)
	f.create(t, line(mt.ItemX, 1)) // sin plantilla: no cuenta

	nextDay := fixedNow.AddDate(0, 0, 1)
	f.uc.SetClock(func() time.Time { return nextDay })
	fromPreset("PRE-RED", true)

	stats, err := f.uc.PresetUsage(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	elec := stats[0]
	assert.Equal(t, "PRE-ELEC", elec.PresetID, "la más usada primero")
	assert.Equal(t, 3, elec.Uses)
	assert.Equal(t, 1, elec.Modified)
	assert.Equal(t, 2, elec.Approved)
	assert.Equal(t, "33.33", elec.ModifiedRate().StringFixed(2))
	assert.Equal(t, "66.67", elec.ApprovalRate().StringFixed(2))

	red := stats[1]
	assert.Equal(t, "PRE-RED", red.PresetID)
	assert.Equal(t, 1, red.Uses)
	assert.Equal(t, "100.00", red.ModifiedRate().StringFixed(2))
	assert.True(t, red.ApprovalRate().IsZero(), "pendiente no cuenta como aprobada")

	// rango [nextDay, nextDay+1): solo la del segundo día
	until := nextDay.AddDate(0, 0, 1)
	stats, err = f.uc.PresetUsage(ctx, &nextDay, &until)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "PRE-RED", stats[0].PresetID)

	_, err = f.uc.PresetUsage(ctx, &until, &nextDay)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
