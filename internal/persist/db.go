package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l1jgo/scenecore/internal/config"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// DB is the frame stats sink's connection pool.
type DB struct {
	Pool *pgxpool.Pool
	// ServerVersion is the PostgreSQL version reported at connect time.
	ServerVersion string
	log           *zap.Logger
}

// NewDB opens the pool and confirms the server answers a version query
// before any migration runs against it.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "scenecore"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open stats pool: %w", err)
	}

	qctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	var version string
	if err := pool.QueryRow(qctx, "SHOW server_version").Scan(&version); err != nil {
		pool.Close()
		return nil, fmt.Errorf("query server version: %w", err)
	}

	log.Info("frame stats sink connected",
		zap.String("server_version", version),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return &DB{Pool: pool, ServerVersion: version, log: log}, nil
}

// Close logs pool usage for the run and closes every connection.
func (db *DB) Close() {
	st := db.Pool.Stat()
	db.log.Debug("frame stats sink closed",
		zap.Int64("acquires", st.AcquireCount()),
		zap.Duration("acquire_wait", st.AcquireDuration()))
	db.Pool.Close()
}
