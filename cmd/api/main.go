package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/materialrequest"
	"github.com/jhoicas/kardex-api/internal/application/ticket"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/internal/infrastructure/catalogseed"
	"github.com/jhoicas/kardex-api/internal/infrastructure/memory"
	"github.com/jhoicas/kardex-api/internal/infrastructure/messaging"
	infrapdf "github.com/jhoicas/kardex-api/internal/infrastructure/pdf"
	"github.com/jhoicas/kardex-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/kardex-api/internal/interfaces/http"
	"github.com/jhoicas/kardex-api/pkg/config"
	"github.com/jhoicas/kardex-api/pkg/jwt"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// stores agrupa los puertos que dependen del driver de almacenamiento.
type stores struct {
	inventoryTx inventory.TxRunner
	workflowTx  materialrequest.WorkflowTxRunner
	closeTx     ticket.CloseTxRunner
	balances    repository.BalanceRepository
	movements   repository.MovementRepository
	requests    repository.MaterialRequestRepository
	tickets     repository.TicketRepository
	catalog     repository.CatalogRepository
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	// Publicación de movimientos confirmados (Kafka opcional)
	var publisher inventory.MovementPublisher = inventory.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp := messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic))
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn().Err(err).Msg("cerrar writer kafka")
			}
		}()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.MovementsTopic).Msg("publicación de movimientos habilitada")
	}

	engine := inventory.NewStockEngine(st.inventoryTx, st.balances, st.movements, st.catalog,
		publisher, log, cfg.Inventory.MovementsDefaultLimit)
	engine.SetPublishTimeout(cfg.Kafka.PublishTimeout())
	workflowUC := materialrequest.NewWorkflowUseCase(st.workflowTx, st.requests, st.tickets, st.catalog,
		engine, infrapdf.NewMarotoVoucherGenerator(), log, cfg.Inventory.FolioPrefix)
	closeTicketUC := ticket.NewCloseTicketUseCase(st.closeTx, st.catalog, engine, log)

	verifier, err := jwt.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_SECRET requerido")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))
	app.Use("/api", httpRouter.RateLimiter(cfg.HTTP.RateLimit))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:      engine,
		Workflow:    workflowUC,
		CloseTicket: closeTicketUC,
		Verifier:    verifier,
		Users:       st.catalog,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.App.StoreDriver == config.StoreDriverMemory {
		store, err := memory.NewStore()
		if err != nil {
			return nil, err
		}
		if cfg.Inventory.SeedFile != "" {
			cat, err := catalogseed.ReadFile(cfg.Inventory.SeedFile, cfg.Inventory.SeedCharset)
			if err != nil {
				return nil, err
			}
			if err := cat.LoadInto(store); err != nil {
				return nil, err
			}
			log.Info().Int("items", len(cat.Items)).Int("locations", len(cat.Locations)).Msg("catálogo cargado en memoria")
		} else {
			log.Warn().Msg("STORE_DRIVER=memory sin SEED_FILE: el catálogo está vacío")
		}
		return &stores{
			inventoryTx: store,
			workflowTx:  store,
			closeTx:     store,
			balances:    store.Balances(),
			movements:   store.Movements(),
			requests:    store.MaterialRequests(),
			tickets:     store.Tickets(),
			catalog:     store.Catalog(),
			close:       func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema verificado")
	}
	txRunner := postgres.NewTxRunner(pool, cfg.DB.LockTimeout())
	return &stores{
		inventoryTx: txRunner,
		workflowTx:  txRunner,
		closeTx:     txRunner,
		balances:    postgres.NewBalanceRepository(pool),
		movements:   postgres.NewMovementRepository(pool),
		requests:    postgres.NewMaterialRequestRepository(pool),
		tickets:     postgres.NewTicketRepository(pool),
		catalog:     postgres.NewCatalogRepository(pool),
		close:       pool.Close,
	}, nil
}
