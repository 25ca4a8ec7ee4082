package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	dominv "github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// CloseTxRunner unidad de trabajo del cierre: ticket, líneas de solicitudes, saldos y kardex.
type CloseTxRunner interface {
	RunTicketClose(ctx context.Context, fn func(
		ticketRepo repository.TicketRepository,
		requestRepo repository.MaterialRequestRepository,
		balanceRepo repository.BalanceRepository,
		movRepo repository.MovementRepository,
	) error) error
}

// ReturnLine devolución de una línea de solicitud al cerrar el ticket.
type ReturnLine struct {
	MaterialRequestItemID string
	QuantityReturned      decimal.Decimal
}

// CloseInput entrada del cierre. LocationID es obligatoria solo si hay devoluciones > 0.
type CloseInput struct {
	LocationID string
	Comment    string
	Returns    []ReturnLine
	UserID     string
}

// CloseResult ticket cerrado y movimientos de devolución generados.
type CloseResult struct {
	Ticket    *entity.Ticket
	Movements []*entity.Movement
}

// CloseTicketUseCase cierra un ticket conciliando el material no utilizado.
type CloseTicketUseCase struct {
	txRunner CloseTxRunner
	catalog  repository.CatalogRepository
	engine   *inventory.StockEngine
	log      *logger.Logger
	now      func() time.Time
}

// NewCloseTicketUseCase construye el caso de uso.
func NewCloseTicketUseCase(txRunner CloseTxRunner, catalog repository.CatalogRepository, engine *inventory.StockEngine, log *logger.Logger) *CloseTicketUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CloseTicketUseCase{txRunner: txRunner, catalog: catalog, engine: engine, log: log.Component("ticket_close"), now: time.Now}
}

// Close bloquea el ticket, valida cada devolución contra lo entregado y no devuelto de las
// solicitudes del ticket, registra las entradas al almacén y deja el ticket en DONE.
// Todo o nada.
func (uc *CloseTicketUseCase) Close(ctx context.Context, ticketID string, in CloseInput) (*CloseResult, error) {
	if ticketID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: ticket y usuario son obligatorios", domain.ErrInvalidInput)
	}
	returns := make(map[string]decimal.Decimal, len(in.Returns))
	order := make([]string, 0, len(in.Returns))
	positive := false
	for _, r := range in.Returns {
		if r.MaterialRequestItemID == "" {
			return nil, fmt.Errorf("%w: línea de solicitud obligatoria", domain.ErrInvalidInput)
		}
		if r.QuantityReturned.IsNegative() {
			return nil, fmt.Errorf("%w: cantidad devuelta de la línea %s no puede ser negativa", domain.ErrInvalidInput, r.MaterialRequestItemID)
		}
		if _, dup := returns[r.MaterialRequestItemID]; dup {
			return nil, fmt.Errorf("%w: línea %s repetida", domain.ErrInvalidInput, r.MaterialRequestItemID)
		}
		q := dominv.Round(r.QuantityReturned)
		returns[r.MaterialRequestItemID] = q
		order = append(order, r.MaterialRequestItemID)
		if q.IsPositive() {
			positive = true
		}
	}
	if positive {
		if in.LocationID == "" {
			return nil, fmt.Errorf("%w: se requiere la ubicación de devolución", domain.ErrInvalidInput)
		}
		loc, err := uc.catalog.GetLocation(ctx, in.LocationID)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, in.LocationID)
		}
	}
	user, err := uc.catalog.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: usuario %s", domain.ErrNotFound, in.UserID)
	}

	now := uc.now()
	res := &CloseResult{}
	err = uc.txRunner.RunTicketClose(ctx, func(
		ticketRepo repository.TicketRepository,
		requestRepo repository.MaterialRequestRepository,
		balanceRepo repository.BalanceRepository,
		movRepo repository.MovementRepository,
	) error {
		t, err := ticketRepo.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("%w: ticket %s", domain.ErrNotFound, ticketID)
		}
		if t.Status.Closed() {
			return fmt.Errorf("%w: el ticket %s ya está en %s", domain.ErrInvalidState, ticketID, t.Status)
		}

		lines, err := requestRepo.ItemsByTicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		byID := make(map[string]*entity.MaterialRequestItem, len(lines))
		for _, l := range lines {
			byID[l.ID] = l
		}

		var keys []entity.BalanceKey
		for _, id := range order {
			line, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: la línea %s no pertenece a solicitudes del ticket %s", domain.ErrInvalidInput, id, ticketID)
			}
			q := returns[id]
			if q.GreaterThan(line.ReturnableQuantity()) {
				return fmt.Errorf("%w: línea %s devuelve %s y solo hay %s disponibles", domain.ErrInvalidInput,
					id, q.StringFixed(dominv.Scale), line.ReturnableQuantity().StringFixed(dominv.Scale))
			}
			if q.IsPositive() {
				keys = append(keys, entity.BalanceKey{ItemID: line.ItemID, LocationID: in.LocationID})
			}
		}
		locked, err := uc.engine.LockInTx(ctx, balanceRepo, keys...)
		if err != nil {
			return err
		}

		ref := entity.NewReference(entity.RefTicketClose, ticketID)
		for _, id := range order {
			q := returns[id]
			if !q.IsPositive() {
				continue
			}
			line := byID[id]
			line.QuantityReturned = line.QuantityReturned.Add(q)
			if err := requestRepo.UpdateItem(ctx, line); err != nil {
				return err
			}
			bal := locked[entity.BalanceKey{ItemID: line.ItemID, LocationID: in.LocationID}]
			mov, err := uc.engine.PostInTx(ctx, balanceRepo, movRepo, bal, inventory.MoveInput{
				ItemID:     line.ItemID,
				LocationID: in.LocationID,
				Type:       entity.MovementTypeIN,
				Quantity:   q,
				UserID:     in.UserID,
				Reference:  ref,
				Comment:    fmt.Sprintf("Devolución al cerrar ticket %s", ticketID),
			}, now)
			if err != nil {
				return err
			}
			res.Movements = append(res.Movements, mov)
		}

		t.Status = entity.TicketStatusDone
		t.ClosedAt = &now
		t.CloseComment = in.Comment
		t.UpdatedAt = now
		if err := ticketRepo.Update(ctx, t); err != nil {
			return err
		}
		res.Ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.engine.Publish(ctx, res.Movements...)
	uc.log.Info().Str("ticket_id", ticketID).Int("returns", len(res.Movements)).Msg("ticket cerrado")
	return res, nil
}
