// Package cache provides an optional SQLite-backed response cache that wraps
// any adapter. Chat and Embedding results are stored by request digest;
// streaming always passes through.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists cached responses in SQLite.
type Store struct {
	db     *sql.DB
	cron   *cron.Cron
	logger zerolog.Logger
}

// Open opens (or creates) the cache database at path and applies pending
// migrations. Use ":memory:" for an ephemeral cache.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger.With().Str("component", "cache").Logger()}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite3 migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Get returns the cached payload for a digest, if present and not expired.
func (s *Store) Get(ctx context.Context, digest string) (string, bool, error) {
	query := sq.Select("payload").
		From("llm_cache").
		Where(sq.Eq{"digest": digest}).
		Where(sq.Gt{"expires_at": time.Now().Unix()})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var payload string
	err = s.db.QueryRowContext(ctx, queryStr, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payload, true, nil
}

// Put stores a payload under a digest with the given TTL, replacing any
// previous entry.
func (s *Store) Put(ctx context.Context, digest, kind, provider, payload string, ttl time.Duration) error {
	now := time.Now()
	query := sq.Replace("llm_cache").
		Columns("digest", "kind", "provider", "payload", "created_at", "expires_at").
		Values(digest, kind, provider, payload, now.Unix(), now.Add(ttl).Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// DeleteExpired removes entries whose TTL has elapsed and returns the number
// removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	query := sq.Delete("llm_cache").Where(sq.LtOrEq{"expires_at": time.Now().Unix()})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StartJanitor schedules periodic TTL eviction on the given cron spec
// (e.g. "@every 10m"). Stop is handled by Close.
func (s *Store) StartJanitor(spec string) error {
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.DeleteExpired(context.Background())
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache eviction failed")
			return
		}
		if n > 0 {
			s.logger.Debug().Int64("evicted", n).Msg("cache eviction complete")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache janitor: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Close stops the janitor and closes the database.
func (s *Store) Close() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	return s.db.Close()
}
