package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("client: not found")

type repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) Repo {
	return &repo{db: db}
}

func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS client_configs (
			client_id TEXT PRIMARY KEY,
			shop_name TEXT NOT NULL DEFAULT '',
			greeting  TEXT NOT NULL DEFAULT '',
			channels  JSONB NOT NULL DEFAULT '[]'
		)
	`)
	return err
}

func (r *repo) Get(ctx context.Context, clientID string) (*Config, error) {
	var row struct {
		ClientID string `db:"client_id"`
		ShopName string `db:"shop_name"`
		Greeting string `db:"greeting"`
		Channels []byte `db:"channels"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT client_id, shop_name, greeting, channels
		FROM client_configs WHERE client_id = $1
	`, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ClientID: row.ClientID,
		Branding: Branding{ShopName: row.ShopName, Greeting: row.Greeting},
	}
	if err := json.Unmarshal(row.Channels, &cfg.Channels); err != nil {
		return nil, fmt.Errorf("client: decode channels for %s: %w", clientID, err)
	}
	return cfg, nil
}

const cacheTTL = 5 * time.Minute

// CachedRepo is a cache-aside wrapper over another Repo. Cache trouble is
// logged and bypassed, never returned.
type CachedRepo struct {
	inner Repo
	rdb   *redis.Client
	log   *zap.Logger
}

func NewCachedRepo(inner Repo, rdb *redis.Client, log *zap.Logger) *CachedRepo {
	return &CachedRepo{inner: inner, rdb: rdb, log: log}
}

func cacheKey(clientID string) string {
	return fmt.Sprintf("tintbot|client_config|client_id:%s", clientID)
}

func (c *CachedRepo) Get(ctx context.Context, clientID string) (*Config, error) {
	key := cacheKey(clientID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cfg Config
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return &cfg, nil
		}
		c.log.Warn("client config cache entry corrupt", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("client config cache read failed", zap.Error(err))
	}

	cfg, err := c.inner.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(cfg); err == nil {
		if err := c.rdb.Set(ctx, key, b, cacheTTL).Err(); err != nil {
			c.log.Warn("client config cache write failed", zap.Error(err))
		}
	}
	return cfg, nil
}
