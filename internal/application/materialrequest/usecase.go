package materialrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	dominv "github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// WorkflowUseCase flujo de solicitudes de material: creación con folio, aprobación con salida de
// almacén, rechazo, cancelación y devoluciones. Cada operación es una sola unidad de trabajo.
type WorkflowUseCase struct {
	txRunner    WorkflowTxRunner
	requestRepo repository.MaterialRequestRepository
	ticketRepo  repository.TicketRepository
	catalog     repository.CatalogRepository
	engine      *inventory.StockEngine
	voucher     DeliveryVoucherGenerator
	log         *logger.Logger
	folioPrefix string
	now         func() time.Time
}

// NewWorkflowUseCase construye el caso de uso. voucher puede ser nil si no se expone el PDF.
func NewWorkflowUseCase(
	txRunner WorkflowTxRunner,
	requestRepo repository.MaterialRequestRepository,
	ticketRepo repository.TicketRepository,
	catalog repository.CatalogRepository,
	engine *inventory.StockEngine,
	voucher DeliveryVoucherGenerator,
	log *logger.Logger,
	folioPrefix string,
) *WorkflowUseCase {
	if folioPrefix == "" {
		folioPrefix = dominv.DefaultFolioPrefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WorkflowUseCase{
		txRunner:    txRunner,
		requestRepo: requestRepo,
		ticketRepo:  ticketRepo,
		catalog:     catalog,
		engine:      engine,
		voucher:     voucher,
		log:         log.Component("material_requests"),
		folioPrefix: folioPrefix,
		now:         time.Now,
	}
}

// Create registra la solicitud en PENDING con folio MR-YYYYMMDD-NNN. La asignación del folio
// se serializa por día dentro de la misma transacción que inserta la solicitud.
func (uc *WorkflowUseCase) Create(ctx context.Context, in CreateInput) (*entity.MaterialRequest, error) {
	if in.TicketID == "" || in.RequestedBy == "" {
		return nil, fmt.Errorf("%w: ticket y solicitante son obligatorios", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: la solicitud debe tener al menos una línea", domain.ErrInvalidInput)
	}
	requested := make(map[string]decimal.Decimal, len(in.Lines))
	for _, l := range in.Lines {
		if l.ItemID == "" {
			return nil, fmt.Errorf("%w: item obligatorio en cada línea", domain.ErrInvalidInput)
		}
		q, ok := dominv.PositiveQuantity(l.QuantityRequested)
		if !ok {
			return nil, fmt.Errorf("%w: cantidad solicitada del item %s debe ser > 0 con %d decimales", domain.ErrInvalidInput, l.ItemID, dominv.Scale)
		}
		if _, dup := requested[l.ItemID]; dup {
			return nil, fmt.Errorf("%w: item %s repetido", domain.ErrInvalidInput, l.ItemID)
		}
		requested[l.ItemID] = q
	}

	ticket, err := uc.ticketRepo.GetByID(ctx, in.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, in.TicketID)
	}
	user, err := uc.catalog.GetUser(ctx, in.RequestedBy)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: usuario %s", domain.ErrNotFound, in.RequestedBy)
	}

	now := uc.now()
	req := &entity.MaterialRequest{
		ID:                uuid.New().String(),
		Status:            entity.MRStatusPending,
		TicketID:          in.TicketID,
		RequestedBy:       in.RequestedBy,
		PresetID:          in.PresetID,
		DiffersFromPreset: in.DiffersFromPreset,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, l := range in.Lines {
		item, err := uc.catalog.GetItem(ctx, l.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, l.ItemID)
		}
		req.Items = append(req.Items, &entity.MaterialRequestItem{
			ID:                uuid.New().String(),
			MaterialRequestID: req.ID,
			ItemID:            l.ItemID,
			ItemDescription:   item.Description,
			QuantityRequested: requested[l.ItemID],
			QuantityApproved:  decimal.Zero,
			QuantityDelivered: decimal.Zero,
			QuantityReturned:  decimal.Zero,
			Notes:             l.Notes,
		})
	}

	dayPrefix := dominv.FolioDayPrefix(uc.folioPrefix, now)
	err = uc.txRunner.RunWorkflow(ctx, func(requestRepo repository.MaterialRequestRepository, _ repository.BalanceRepository, _ repository.MovementRepository) error {
		if err := requestRepo.LockFolioDay(ctx, dayPrefix); err != nil {
			return err
		}
		maxFolio, err := requestRepo.MaxFolio(ctx, dayPrefix)
		if err != nil {
			return err
		}
		folio, err := dominv.NextFolio(dayPrefix, maxFolio)
		if err != nil {
			return err
		}
		req.Folio = folio
		return requestRepo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("folio", req.Folio).Str("ticket_id", req.TicketID).Int("lines", len(req.Items)).Msg("solicitud de material creada")
	return req, nil
}

// Approve aprueba y entrega la solicitud desde la ubicación indicada. Bloquea todos los saldos
// involucrados en orden global, valida todas las líneas (reportando cada faltante) y solo entonces
// descuenta. Si algo falla la solicitud queda en PENDING sin movimientos.
func (uc *WorkflowUseCase) Approve(ctx context.Context, requestID string, in ApproveInput) (*entity.MaterialRequest, error) {
	if in.LocationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: ubicación y usuario son obligatorios", domain.ErrInvalidInput)
	}
	approved := make(map[string]decimal.Decimal, len(in.Lines))
	for _, l := range in.Lines {
		if l.QuantityApproved.IsNegative() {
			return nil, fmt.Errorf("%w: cantidad aprobada del item %s no puede ser negativa", domain.ErrInvalidInput, l.ItemID)
		}
		if _, dup := approved[l.ItemID]; dup {
			return nil, fmt.Errorf("%w: item %s repetido", domain.ErrInvalidInput, l.ItemID)
		}
		approved[l.ItemID] = dominv.Round(l.QuantityApproved)
	}
	if err := uc.checkLocationAndUser(ctx, in.LocationID, in.UserID); err != nil {
		return nil, err
	}

	now := uc.now()
	var req *entity.MaterialRequest
	var movements []*entity.Movement
	err := uc.txRunner.RunWorkflow(ctx, func(requestRepo repository.MaterialRequestRepository, balanceRepo repository.BalanceRepository, movRepo repository.MovementRepository) error {
		var err error
		req, err = uc.lockPending(ctx, requestRepo, requestID)
		if err != nil {
			return err
		}
		for itemID, q := range approved {
			line := req.ItemByItemID(itemID)
			if line == nil {
				return fmt.Errorf("%w: el item %s no pertenece a la solicitud %s", domain.ErrInvalidInput, itemID, req.Folio)
			}
			if q.GreaterThan(line.QuantityRequested) {
				return fmt.Errorf("%w: item %s aprobado %s supera lo solicitado %s", domain.ErrInvalidInput,
					itemID, q.StringFixed(dominv.Scale), line.QuantityRequested.StringFixed(dominv.Scale))
			}
		}

		keys := make([]entity.BalanceKey, 0, len(req.Items))
		for _, line := range req.Items {
			if approved[line.ItemID].IsPositive() {
				keys = append(keys, entity.BalanceKey{ItemID: line.ItemID, LocationID: in.LocationID})
			}
		}
		locked, err := uc.engine.LockInTx(ctx, balanceRepo, keys...)
		if err != nil {
			return err
		}

		// Valida todas las líneas antes de mutar para reportar cada faltante
		var shortage *domain.InsufficientStockError
		for _, line := range req.Items {
			q := approved[line.ItemID]
			if !q.IsPositive() {
				continue
			}
			bal := locked[entity.BalanceKey{ItemID: line.ItemID, LocationID: in.LocationID}]
			if bal.Quantity.LessThan(q) {
				if shortage == nil {
					shortage = &domain.InsufficientStockError{}
				}
				shortage.Add(line.ItemID, in.LocationID, bal.Quantity, q)
			}
		}
		if shortage != nil {
			return shortage
		}

		complete := true
		comment := fmt.Sprintf("Material Request %s - Ticket %s", req.Folio, req.TicketID)
		ref := entity.NewReference(entity.RefMaterialRequest, req.ID)
		for _, line := range req.Items {
			q := approved[line.ItemID]
			if !q.Equal(line.QuantityRequested) {
				complete = false
			}
			line.QuantityApproved = q
			line.QuantityDelivered = q
			if !q.IsPositive() {
				continue
			}
			bal := locked[entity.BalanceKey{ItemID: line.ItemID, LocationID: in.LocationID}]
			mov, err := uc.engine.PostInTx(ctx, balanceRepo, movRepo, bal, inventory.MoveInput{
				ItemID:     line.ItemID,
				LocationID: in.LocationID,
				Type:       entity.MovementTypeOUT,
				Quantity:   q,
				UserID:     in.UserID,
				Reference:  ref,
				Comment:    comment,
			}, now)
			if err != nil {
				return err
			}
			movements = append(movements, mov)
		}

		req.Status = entity.MRStatusPartial
		if complete {
			req.Status = entity.MRStatusDelivered
		}
		approver := in.UserID
		req.ApprovedBy, req.DeliveredBy = &approver, &approver
		req.ApprovedAt, req.DeliveredAt = &now, &now
		if in.Notes != "" {
			req.Notes = in.Notes
		}
		req.UpdatedAt = now
		return requestRepo.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	uc.engine.Publish(ctx, movements...)
	uc.log.Info().Str("folio", req.Folio).Str("status", string(req.Status)).Int("movements", len(movements)).Msg("solicitud de material aprobada")
	return req, nil
}

// Reject rechaza una solicitud pendiente registrando el motivo.
func (uc *WorkflowUseCase) Reject(ctx context.Context, requestID, reason, userID string) (*entity.MaterialRequest, error) {
	if reason == "" || userID == "" {
		return nil, fmt.Errorf("%w: motivo y usuario son obligatorios", domain.ErrInvalidInput)
	}
	now := uc.now()
	var req *entity.MaterialRequest
	err := uc.txRunner.RunWorkflow(ctx, func(requestRepo repository.MaterialRequestRepository, _ repository.BalanceRepository, _ repository.MovementRepository) error {
		var err error
		req, err = uc.lockPending(ctx, requestRepo, requestID)
		if err != nil {
			return err
		}
		req.Status = entity.MRStatusRejected
		req.RejectionReason = &reason
		req.ApprovedBy = &userID
		req.ApprovedAt = &now
		req.UpdatedAt = now
		return requestRepo.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("folio", req.Folio).Msg("solicitud de material rechazada")
	return req, nil
}

// Cancel cancela una solicitud pendiente.
func (uc *WorkflowUseCase) Cancel(ctx context.Context, requestID, userID string) (*entity.MaterialRequest, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: usuario obligatorio", domain.ErrInvalidInput)
	}
	now := uc.now()
	var req *entity.MaterialRequest
	err := uc.txRunner.RunWorkflow(ctx, func(requestRepo repository.MaterialRequestRepository, _ repository.BalanceRepository, _ repository.MovementRepository) error {
		var err error
		req, err = uc.lockPending(ctx, requestRepo, requestID)
		if err != nil {
			return err
		}
		req.Status = entity.MRStatusCancelled
		req.UpdatedAt = now
		return requestRepo.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("folio", req.Folio).Str("user_id", userID).Msg("solicitud de material cancelada")
	return req, nil
}

// ProcessReturn registra devoluciones de material entregado: entrada al almacén por cada línea y
// acumulado devuelto, todo en la misma transacción.
func (uc *WorkflowUseCase) ProcessReturn(ctx context.Context, requestID string, in ReturnInput) (*entity.MaterialRequest, error) {
	if in.LocationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: ubicación y usuario son obligatorios", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: la devolución debe tener al menos una línea", domain.ErrInvalidInput)
	}
	returned := make(map[string]decimal.Decimal, len(in.Lines))
	for _, l := range in.Lines {
		q, ok := dominv.PositiveQuantity(l.QuantityReturned)
		if !ok {
			return nil, fmt.Errorf("%w: cantidad devuelta del item %s debe ser > 0 con %d decimales", domain.ErrInvalidInput, l.ItemID, dominv.Scale)
		}
		if _, dup := returned[l.ItemID]; dup {
			return nil, fmt.Errorf("%w: item %s repetido", domain.ErrInvalidInput, l.ItemID)
		}
		returned[l.ItemID] = q
	}
	if err := uc.checkLocationAndUser(ctx, in.LocationID, in.UserID); err != nil {
		return nil, err
	}

	now := uc.now()
	var req *entity.MaterialRequest
	var movements []*entity.Movement
	err := uc.txRunner.RunWorkflow(ctx, func(requestRepo repository.MaterialRequestRepository, balanceRepo repository.BalanceRepository, movRepo repository.MovementRepository) error {
		var err error
		req, err = requestRepo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, requestID)
		}
		if !req.Status.Delivered() {
			return fmt.Errorf("%w: la solicitud %s está en %s, no tiene material entregado", domain.ErrInvalidState, req.Folio, req.Status)
		}

		keys := make([]entity.BalanceKey, 0, len(returned))
		for _, l := range in.Lines {
			line := req.ItemByItemID(l.ItemID)
			if line == nil {
				return fmt.Errorf("%w: el item %s no pertenece a la solicitud %s", domain.ErrInvalidInput, l.ItemID, req.Folio)
			}
			if returned[l.ItemID].GreaterThan(line.ReturnableQuantity()) {
				return fmt.Errorf("%w: item %s devuelve %s y solo quedan %s por devolver", domain.ErrInvalidInput,
					l.ItemID, returned[l.ItemID].StringFixed(dominv.Scale), line.ReturnableQuantity().StringFixed(dominv.Scale))
			}
			keys = append(keys, entity.BalanceKey{ItemID: l.ItemID, LocationID: in.LocationID})
		}
		locked, err := uc.engine.LockInTx(ctx, balanceRepo, keys...)
		if err != nil {
			return err
		}

		ref := entity.NewReference(entity.RefReturn, req.ID)
		comment := fmt.Sprintf("Devolución Material Request %s", req.Folio)
		for _, line := range req.Items {
			q, ok := returned[line.ItemID]
			if !ok {
				continue
			}
			line.QuantityReturned = line.QuantityReturned.Add(q)
			bal := locked[entity.BalanceKey{ItemID: line.ItemID, LocationID: in.LocationID}]
			mov, err := uc.engine.PostInTx(ctx, balanceRepo, movRepo, bal, inventory.MoveInput{
				ItemID:     line.ItemID,
				LocationID: in.LocationID,
				Type:       entity.MovementTypeIN,
				Quantity:   q,
				UserID:     in.UserID,
				Reference:  ref,
				Comment:    comment,
			}, now)
			if err != nil {
				return err
			}
			movements = append(movements, mov)
		}
		req.UpdatedAt = now
		return requestRepo.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	uc.engine.Publish(ctx, movements...)
	uc.log.Info().Str("folio", req.Folio).Int("lines", len(movements)).Msg("devolución registrada")
	return req, nil
}

// FindAll lista solicitudes (más recientes primero) con filtros opcionales.
func (uc *WorkflowUseCase) FindAll(ctx context.Context, f Filter) ([]*entity.MaterialRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, f.Status)
	}
	return uc.requestRepo.List(ctx, repository.MaterialRequestFilter{
		TicketID: f.TicketID,
		Status:   f.Status,
		UserID:   f.UserID,
	})
}

// FindOne devuelve la solicitud con sus líneas.
func (uc *WorkflowUseCase) FindOne(ctx context.Context, id string) (*entity.MaterialRequest, error) {
	req, err := uc.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, id)
	}
	return req, nil
}

// PresetUsage estadísticas de uso por plantilla en [from, to); cualquiera de los dos puede ser nil.
func (uc *WorkflowUseCase) PresetUsage(ctx context.Context, from, to *time.Time) ([]*entity.PresetUsage, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, fmt.Errorf("%w: el rango de fechas está vacío", domain.ErrInvalidInput)
	}
	return uc.requestRepo.PresetUsage(ctx, repository.PresetUsageFilter{From: from, To: to})
}

// DeliveryVoucherPDF genera el vale de salida de una solicitud entregada (total o parcial).
func (uc *WorkflowUseCase) DeliveryVoucherPDF(ctx context.Context, id string) ([]byte, string, error) {
	if uc.voucher == nil {
		return nil, "", fmt.Errorf("%w: generador de vales no configurado", domain.ErrInvalidState)
	}
	req, err := uc.FindOne(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !req.Status.Delivered() {
		return nil, "", fmt.Errorf("%w: la solicitud %s está en %s, no hay vale de salida", domain.ErrInvalidState, req.Folio, req.Status)
	}
	pdfBytes, err := uc.voucher.GenerateDeliveryVoucher(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("generar vale de salida: %w", err)
	}
	return pdfBytes, "vale-" + req.Folio + ".pdf", nil
}

func (uc *WorkflowUseCase) lockPending(ctx context.Context, requestRepo repository.MaterialRequestRepository, id string) (*entity.MaterialRequest, error) {
	req, err := requestRepo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, id)
	}
	if req.Status != entity.MRStatusPending {
		return nil, fmt.Errorf("%w: la solicitud %s está en %s", domain.ErrInvalidState, req.Folio, req.Status)
	}
	return req, nil
}

func (uc *WorkflowUseCase) checkLocationAndUser(ctx context.Context, locationID, userID string) error {
	loc, err := uc.catalog.GetLocation(ctx, locationID)
	if err != nil {
		return err
	}
	if loc == nil {
		return fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, locationID)
	}
	user, err := uc.catalog.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: usuario %s", domain.ErrNotFound, userID)
	}
	return nil
}
