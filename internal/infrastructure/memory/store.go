// Package memory implementa los puertos de persistencia sobre go-memdb.
// Las transacciones de escritura de memdb son exclusivas, así que cada unidad de trabajo
// se serializa completa; las lecturas usan snapshots sin bloqueo.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/materialrequest"
	"github.com/jhoicas/kardex-api/internal/application/ticket"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner                   = (*Store)(nil)
	_ materialrequest.WorkflowTxRunner     = (*Store)(nil)
	_ ticket.CloseTxRunner                 = (*Store)(nil)
	_ repository.CatalogRepository         = (*catalogRepo)(nil)
	_ repository.BalanceRepository         = (*balanceRepo)(nil)
	_ repository.MovementRepository        = (*movementRepo)(nil)
	_ repository.MaterialRequestRepository = (*materialRequestRepo)(nil)
	_ repository.TicketRepository          = (*ticketRepo)(nil)
)

const (
	tableBalance  = "balance"
	tableMovement = "movement"
	tableRequest  = "material_request"
	tableTicket   = "ticket"
	tableItem     = "item"
	tableLocation = "location"
	tableUser     = "user"
)

func idIndex(field string) *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: field}}
}

func schema() *memdb.DBSchema {
	pair := &memdb.CompoundIndex{Indexes: []memdb.Indexer{
		&memdb.StringFieldIndex{Field: "ItemID"},
		&memdb.StringFieldIndex{Field: "LocationID"},
	}}
	return &memdb.DBSchema{Tables: map[string]*memdb.TableSchema{
		tableBalance: {
			Name: tableBalance,
			Indexes: map[string]*memdb.IndexSchema{
				"id":       {Name: "id", Unique: true, Indexer: pair},
				"item":     {Name: "item", Indexer: &memdb.StringFieldIndex{Field: "ItemID"}},
				"location": {Name: "location", Indexer: &memdb.StringFieldIndex{Field: "LocationID"}},
			},
		},
		tableMovement: {
			Name: tableMovement,
			Indexes: map[string]*memdb.IndexSchema{
				"id":   idIndex("ID"),
				"item": {Name: "item", Indexer: &memdb.StringFieldIndex{Field: "ItemID"}},
				"pair": {Name: "pair", Indexer: pair},
			},
		},
		tableRequest: {
			Name: tableRequest,
			Indexes: map[string]*memdb.IndexSchema{
				"id":     idIndex("ID"),
				"folio":  {Name: "folio", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Folio"}},
				"ticket": {Name: "ticket", Indexer: &memdb.StringFieldIndex{Field: "TicketID"}},
			},
		},
		tableTicket:   {Name: tableTicket, Indexes: map[string]*memdb.IndexSchema{"id": idIndex("ID")}},
		tableItem:     {Name: tableItem, Indexes: map[string]*memdb.IndexSchema{"id": idIndex("ID")}},
		tableLocation: {Name: tableLocation, Indexes: map[string]*memdb.IndexSchema{"id": idIndex("ID")}},
		tableUser:     {Name: tableUser, Indexes: map[string]*memdb.IndexSchema{"id": idIndex("ID")}},
	}}
}

// Store base de datos en memoria. Implementa los TxRunner de la aplicación.
type Store struct {
	db  *memdb.MemDB
	seq atomic.Int64
}

// NewStore crea la base vacía.
func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("memdb schema: %w", err)
	}
	return &Store{db: db}, nil
}

// run abre una transacción de escritura, ejecuta fn y hace Commit; cualquier error descarta todo.
func (s *Store) run(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Run implementa inventory.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
) error) error {
	return s.run(ctx, func(txn *memdb.Txn) error {
		return fn(&balanceRepo{s: s, txn: txn}, &movementRepo{s: s, txn: txn})
	})
}

// RunWorkflow implementa materialrequest.WorkflowTxRunner.
func (s *Store) RunWorkflow(ctx context.Context, fn func(
	requestRepo repository.MaterialRequestRepository,
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
) error) error {
	return s.run(ctx, func(txn *memdb.Txn) error {
		return fn(&materialRequestRepo{s: s, txn: txn}, &balanceRepo{s: s, txn: txn}, &movementRepo{s: s, txn: txn})
	})
}

// RunTicketClose implementa ticket.CloseTxRunner.
func (s *Store) RunTicketClose(ctx context.Context, fn func(
	ticketRepo repository.TicketRepository,
	requestRepo repository.MaterialRequestRepository,
	balanceRepo repository.BalanceRepository,
	movRepo repository.MovementRepository,
) error) error {
	return s.run(ctx, func(txn *memdb.Txn) error {
		return fn(&ticketRepo{s: s, txn: txn}, &materialRequestRepo{s: s, txn: txn},
			&balanceRepo{s: s, txn: txn}, &movementRepo{s: s, txn: txn})
	})
}

// Repositorios de solo lectura (snapshot por llamada).

func (s *Store) Balances() repository.BalanceRepository { return &balanceRepo{s: s} }

func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s} }

func (s *Store) MaterialRequests() repository.MaterialRequestRepository {
	return &materialRequestRepo{s: s}
}

func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s: s} }

func (s *Store) Catalog() repository.CatalogRepository { return &catalogRepo{s: s} }

// reader devuelve la tx atada o un snapshot nuevo.
func (s *Store) reader(txn *memdb.Txn) *memdb.Txn {
	if txn != nil {
		return txn
	}
	return s.db.Txn(false)
}

// writer exige una tx de escritura: las mutaciones fuera de una unidad de trabajo no se permiten.
func writer(txn *memdb.Txn) (*memdb.Txn, error) {
	if txn == nil {
		return nil, fmt.Errorf("memory: escritura fuera de transacción")
	}
	return txn, nil
}

// ── Seed del catálogo (datos externos al ledger) ─────────────────────────────

func (s *Store) insert(table string, obj interface{}) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(table, obj); err != nil {
		return fmt.Errorf("memory: insert %s: %w", table, err)
	}
	txn.Commit()
	return nil
}

// AddItem registra un item del catálogo.
func (s *Store) AddItem(item *entity.Item) error {
	c := *item
	return s.insert(tableItem, &c)
}

// AddLocation registra una ubicación.
func (s *Store) AddLocation(loc *entity.Location) error {
	c := *loc
	return s.insert(tableLocation, &c)
}

// AddUser registra un usuario.
func (s *Store) AddUser(user *entity.User) error {
	c := *user
	return s.insert(tableUser, &c)
}

// AddTicket registra un ticket.
func (s *Store) AddTicket(t *entity.Ticket) error {
	return s.insert(tableTicket, cloneTicket(t))
}
