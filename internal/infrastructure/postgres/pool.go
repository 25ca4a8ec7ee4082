package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/kardex-api/pkg/config"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

const (
	applicationName = "kardex-api"
	pingAttempts    = 5
	pingBackoff     = 500 * time.Millisecond
)

// NewPool abre el pool del ledger. Las sesiones trabajan en UTC para que created_at y el día
// del folio no dependan del servidor. Reintenta el ping mientras la base arranca.
func NewPool(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	dsn := cfg.DSN()
	if cfg.DatabaseURL != "" {
		dsn = preferIPv4(cfg.DatabaseURL)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	// cantidades y saldos son NUMERIC(18,2)
	poolConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}

	wait := pingBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == pingAttempts {
			pool.Close()
			return nil, fmt.Errorf("ping DB tras %d intentos: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("base de datos no disponible")
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	log.Info().Int32("max_conns", poolConfig.MaxConns).Msg("pool PostgreSQL listo")
	return pool, nil
}

// preferIPv4 reemplaza el hostname por su IPv4 si existe (contenedores sin IPv6).
func preferIPv4(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return databaseURL
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	ips, err := net.LookupIP(u.Hostname())
	if err != nil {
		return databaseURL
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			u.Host = net.JoinHostPort(ip4.String(), port)
			return u.String()
		}
	}
	return databaseURL
}
