package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	dominv "github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// DefaultMovementsLimit tamaño por defecto del listado de kardex.
const DefaultMovementsLimit = 100

// DefaultPublishTimeout tope de la publicación posterior al commit; con el broker caído la
// petición no espera los reintentos del cliente.
const DefaultPublishTimeout = 2 * time.Second

// StockEngine registra movimientos de inventario de forma transaccional
// (IN, OUT, ADJUST, TRANSFER) con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
// Las lecturas (FindStock, FindMovements, CheckStock) no bloquean.
type StockEngine struct {
	txRunner     TxRunner
	balanceRepo  repository.BalanceRepository
	movRepo      repository.MovementRepository
	catalog      repository.CatalogRepository
	publisher    MovementPublisher
	log          *logger.Logger
	defaultLimit int
	publishWait  time.Duration
	now          func() time.Time
}

// NewStockEngine construye el motor. balanceRepo y movRepo se usan solo para lecturas fuera de transacción.
func NewStockEngine(
	txRunner TxRunner,
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
	catalog repository.CatalogRepository,
	publisher MovementPublisher,
	log *logger.Logger,
	defaultLimit int,
) *StockEngine {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultMovementsLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StockEngine{
		txRunner:     txRunner,
		balanceRepo:  balanceRepo,
		movRepo:      movRepo,
		catalog:      catalog,
		publisher:    publisher,
		log:          log.Component("stock_engine"),
		defaultLimit: defaultLimit,
		publishWait:  DefaultPublishTimeout,
		now:          time.Now,
	}
}

// MoveInput entrada de un movimiento simple sobre un par item+ubicación.
// Para ADJUST, Quantity es el saldo objetivo, no un delta.
type MoveInput struct {
	ItemID     string
	LocationID string
	Type       entity.MovementType
	Quantity   decimal.Decimal
	UserID     string
	Reference  *entity.Reference
	Comment    string
}

// TransferInput entrada de un traslado entre ubicaciones.
type TransferInput struct {
	ItemID         string
	FromLocationID string
	ToLocationID   string
	Quantity       decimal.Decimal
	UserID         string
	Comment        string
}

// TransferSide saldo de una ubicación antes y después del traslado.
type TransferSide struct {
	LocationID    string
	PreviousStock decimal.Decimal
	Balance       *entity.Balance
}

// TransferResult resultado de un traslado: saldos de ambos lados y el par de movimientos.
type TransferResult struct {
	TransferID  string
	From        TransferSide
	To          TransferSide
	OutMovement *entity.Movement
	InMovement  *entity.Movement
}

// normalizeMove valida la entrada y devuelve la cantidad ya redondeada a la escala del kardex.
func normalizeMove(in MoveInput) (MoveInput, error) {
	if in.ItemID == "" || in.LocationID == "" || in.UserID == "" {
		return in, fmt.Errorf("%w: item, ubicación y usuario son obligatorios", domain.ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return in, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, in.Type)
	}
	// ADJUST recibe el saldo objetivo: 0 es válido (baja total)
	if in.Type == entity.MovementTypeADJUST {
		if in.Quantity.IsNegative() {
			return in, fmt.Errorf("%w: el saldo objetivo no puede ser negativo", domain.ErrInvalidInput)
		}
		in.Quantity = dominv.Round(in.Quantity)
	} else {
		q, ok := dominv.PositiveQuantity(in.Quantity)
		if !ok {
			return in, fmt.Errorf("%w: la cantidad debe ser > 0 con %d decimales", domain.ErrInvalidInput, dominv.Scale)
		}
		in.Quantity = q
	}
	if in.Reference != nil && !in.Reference.Kind.Valid() {
		return in, fmt.Errorf("%w: tipo de referencia %q", domain.ErrInvalidInput, in.Reference.Kind)
	}
	return in, nil
}

// checkRefs valida que item, usuario y ubicaciones existan antes de abrir la transacción.
func (e *StockEngine) checkRefs(ctx context.Context, itemID, userID string, locationIDs ...string) error {
	item, err := e.catalog.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: item %s", domain.ErrNotFound, itemID)
	}
	for _, id := range locationIDs {
		loc, err := e.catalog.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if loc == nil {
			return fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, id)
		}
	}
	user, err := e.catalog.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: usuario %s", domain.ErrNotFound, userID)
	}
	return nil
}

// Move inicia una transacción, bloquea el saldo (lo crea en 0 si no existe), aplica IN/OUT/ADJUST,
// guarda el saldo y agrega el movimiento al kardex. Commit si todo ok, Rollback si algo falla.
func (e *StockEngine) Move(ctx context.Context, in MoveInput) (*entity.Movement, error) {
	in, err := normalizeMove(in)
	if err != nil {
		return nil, err
	}
	if err := e.checkRefs(ctx, in.ItemID, in.UserID, in.LocationID); err != nil {
		return nil, err
	}

	now := e.now()
	var mov *entity.Movement
	err = e.txRunner.Run(ctx, func(balanceRepo repository.BalanceRepository, movRepo repository.MovementRepository) error {
		var err error
		mov, err = e.MoveInTx(ctx, balanceRepo, movRepo, in, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Publish(ctx, mov)
	return mov, nil
}

// MoveInTx ejecuta el movimiento usando los repositorios proporcionados (misma transacción del caller).
// Lo usan el flujo de solicitudes de material y el cierre de tickets para componer varios movimientos
// en una sola unidad de trabajo. No valida referencias de catálogo; eso es responsabilidad del caller.
func (e *StockEngine) MoveInTx(
	ctx context.Context,
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
	in MoveInput,
	now time.Time,
) (*entity.Movement, error) {
	in, err := normalizeMove(in)
	if err != nil {
		return nil, err
	}
	// Bloquea la fila del saldo (SELECT FOR UPDATE) para evitar sobreventa entre salidas concurrentes
	bal, err := balanceRepo.GetForUpdate(ctx, in.ItemID, in.LocationID)
	if err != nil {
		return nil, err
	}
	return e.PostInTx(ctx, balanceRepo, movRepo, bal, in, now)
}

// LockInTx bloquea los saldos indicados en orden global (item, ubicación) y los devuelve por llave.
// Quien toca más de un saldo en la misma transacción debe bloquear con este método antes de leer.
func (e *StockEngine) LockInTx(
	ctx context.Context,
	balanceRepo repository.BalanceRepository,
	keys ...entity.BalanceKey,
) (map[entity.BalanceKey]*entity.Balance, error) {
	locked := make(map[entity.BalanceKey]*entity.Balance, len(keys))
	for _, k := range dominv.LockOrder(keys...) {
		bal, err := balanceRepo.GetForUpdate(ctx, k.ItemID, k.LocationID)
		if err != nil {
			return nil, err
		}
		locked[k] = bal
	}
	return locked, nil
}

// PostInTx aplica el movimiento sobre un saldo ya bloqueado por el caller, lo guarda y agrega el
// registro al kardex. bal se actualiza en sitio.
func (e *StockEngine) PostInTx(
	ctx context.Context,
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
	bal *entity.Balance,
	in MoveInput,
	now time.Time,
) (*entity.Movement, error) {
	newQty, ledgerQty, err := dominv.Apply(bal.Key(), bal.Quantity, in.Type, in.Quantity)
	if err != nil {
		return nil, err
	}
	ref := in.Reference
	if ref == nil && in.Type == entity.MovementTypeADJUST {
		ref = entity.NewReference(entity.RefAdjustment, "")
	}

	bal.Quantity = newQty
	bal.UpdatedAt = now
	if err := balanceRepo.Save(ctx, bal); err != nil {
		return nil, err
	}
	mov := &entity.Movement{
		ID:           uuid.New().String(),
		ItemID:       in.ItemID,
		LocationID:   in.LocationID,
		Type:         in.Type,
		Quantity:     ledgerQty,
		BalanceAfter: newQty,
		Reference:    ref,
		Comment:      in.Comment,
		UserID:       in.UserID,
		CreatedAt:    now,
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	e.log.Debug().
		Str("item_id", mov.ItemID).
		Str("location_id", mov.LocationID).
		Str("type", string(mov.Type)).
		Str("quantity", mov.Quantity.StringFixed(dominv.Scale)).
		Str("balance_after", mov.BalanceAfter.StringFixed(dominv.Scale)).
		Msg("movimiento registrado")
	return mov, nil
}

// Transfer resta de la ubicación origen y suma en la destino en la misma transacción;
// guarda dos registros en el kardex (OUT en origen, IN en destino) con referencia TRANSFER.
func (e *StockEngine) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.ItemID == "" || in.FromLocationID == "" || in.ToLocationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: item, ubicaciones y usuario son obligatorios", domain.ErrInvalidInput)
	}
	qty, ok := dominv.PositiveQuantity(in.Quantity)
	if !ok {
		return nil, fmt.Errorf("%w: la cantidad debe ser > 0 con %d decimales", domain.ErrInvalidInput, dominv.Scale)
	}
	in.Quantity = qty
	if in.FromLocationID == in.ToLocationID {
		return nil, fmt.Errorf("%w: las ubicaciones de origen y destino deben ser diferentes", domain.ErrInvalidInput)
	}
	if err := e.checkRefs(ctx, in.ItemID, in.UserID, in.FromLocationID, in.ToLocationID); err != nil {
		return nil, err
	}

	now := e.now()
	res := &TransferResult{TransferID: uuid.New().String()}
	ref := entity.NewReference(entity.RefTransfer, res.TransferID)
	fromKey := entity.BalanceKey{ItemID: in.ItemID, LocationID: in.FromLocationID}
	toKey := entity.BalanceKey{ItemID: in.ItemID, LocationID: in.ToLocationID}

	err := e.txRunner.Run(ctx, func(balanceRepo repository.BalanceRepository, movRepo repository.MovementRepository) error {
		locked, err := e.LockInTx(ctx, balanceRepo, fromKey, toKey)
		if err != nil {
			return err
		}
		from, to := locked[fromKey], locked[toKey]
		if from.Quantity.LessThan(in.Quantity) {
			return domain.NewInsufficientStock(in.ItemID, in.FromLocationID, from.Quantity, in.Quantity)
		}
		res.From = TransferSide{LocationID: in.FromLocationID, PreviousStock: from.Quantity}
		res.To = TransferSide{LocationID: in.ToLocationID, PreviousStock: to.Quantity}

		outComment, inComment := in.Comment, in.Comment
		if in.Comment == "" {
			outComment = "Transferencia a ubicación destino"
			inComment = "Transferencia desde ubicación origen"
		}
		res.OutMovement, err = e.PostInTx(ctx, balanceRepo, movRepo, from, MoveInput{
			ItemID: in.ItemID, LocationID: in.FromLocationID, Type: entity.MovementTypeOUT,
			Quantity: in.Quantity, UserID: in.UserID, Reference: ref, Comment: outComment,
		}, now)
		if err != nil {
			return err
		}
		res.InMovement, err = e.PostInTx(ctx, balanceRepo, movRepo, to, MoveInput{
			ItemID: in.ItemID, LocationID: in.ToLocationID, Type: entity.MovementTypeIN,
			Quantity: in.Quantity, UserID: in.UserID, Reference: ref, Comment: inComment,
		}, now)
		if err != nil {
			return err
		}
		res.From.Balance, res.To.Balance = from, to
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("transfer_id", res.TransferID).
		Str("item_id", in.ItemID).
		Str("from", in.FromLocationID).
		Str("to", in.ToLocationID).
		Str("quantity", in.Quantity.StringFixed(dominv.Scale)).
		Msg("transferencia completada")
	e.Publish(ctx, res.OutMovement, res.InMovement)
	return res, nil
}

// SetPublishTimeout cambia el tope de Publish; d <= 0 deja el valor por defecto.
func (e *StockEngine) SetPublishTimeout(d time.Duration) {
	if d > 0 {
		e.publishWait = d
	}
}

// Publish entrega movimientos ya confirmados al publicador. Un fallo solo se registra:
// el kardex en BD es la fuente de verdad. El commit ya ocurrió, así que la publicación no se
// cancela con la petición pero sí queda acotada por publishWait.
func (e *StockEngine) Publish(ctx context.Context, movements ...*entity.Movement) {
	if len(movements) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishWait)
	defer cancel()
	if err := e.publisher.Publish(ctx, movements...); err != nil {
		e.log.Warn().Err(err).Int("movements", len(movements)).Msg("publicar movimientos")
	}
}

// CheckStock devuelve la existencia actual del par (0 si nunca tuvo movimientos).
func (e *StockEngine) CheckStock(ctx context.Context, itemID, locationID string) (decimal.Decimal, error) {
	if itemID == "" || locationID == "" {
		return decimal.Zero, fmt.Errorf("%w: item y ubicación son obligatorios", domain.ErrInvalidInput)
	}
	bal, err := e.balanceRepo.Get(ctx, itemID, locationID)
	if err != nil {
		return decimal.Zero, err
	}
	return bal.Quantity, nil
}

// FindStock lista saldos filtrando opcionalmente por item y/o ubicación (más recientes primero).
func (e *StockEngine) FindStock(ctx context.Context, filter repository.BalanceFilter) ([]*entity.Balance, error) {
	return e.balanceRepo.List(ctx, filter)
}

// FindMovements kardex del item, del más reciente al más antiguo. limit <= 0 usa el límite por defecto.
func (e *StockEngine) FindMovements(ctx context.Context, itemID string, limit int) ([]*entity.Movement, error) {
	return e.FindMovementsAt(ctx, itemID, "", limit, 0)
}

// FindMovementsAt como FindMovements, filtrando opcionalmente por ubicación y con desplazamiento.
func (e *StockEngine) FindMovementsAt(ctx context.Context, itemID, locationID string, limit, offset int) ([]*entity.Movement, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item obligatorio", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = e.defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if locationID != "" {
		return e.movRepo.ListByItemAndLocation(ctx, itemID, locationID, limit, offset)
	}
	return e.movRepo.ListByItem(ctx, itemID, limit, offset)
}

// KardexReport resultado de reconstruir el saldo de un par desde su kardex.
type KardexReport struct {
	ItemID     string
	LocationID string
	Movements  int
	Replayed   decimal.Decimal
	Stored     decimal.Decimal
	Consistent bool
	Divergence *dominv.Divergence
}

// VerifyKardex reproduce todos los movimientos del par desde 0 y los compara con los saldos
// registrados y con el saldo actual.
func (e *StockEngine) VerifyKardex(ctx context.Context, itemID, locationID string) (*KardexReport, error) {
	if itemID == "" || locationID == "" {
		return nil, fmt.Errorf("%w: item y ubicación son obligatorios", domain.ErrInvalidInput)
	}
	history, err := e.movRepo.History(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	bal, err := e.balanceRepo.Get(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	replayed, div := dominv.Replay(history)
	rep := &KardexReport{
		ItemID:     itemID,
		LocationID: locationID,
		Movements:  len(history),
		Replayed:   replayed,
		Stored:     bal.Quantity,
		Divergence: div,
	}
	rep.Consistent = div == nil && replayed.Equal(bal.Quantity)
	if !rep.Consistent {
		e.log.Warn().Str("item_id", itemID).Str("location_id", locationID).Msg("kardex inconsistente")
	}
	return rep, nil
}
