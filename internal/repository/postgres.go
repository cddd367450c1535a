// Package repository хранит корзины посетителей и сессии персонала в PostgreSQL или в памяти.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrCartNotFound возвращается, если корзины с таким идентификатором нет.
	ErrCartNotFound = errors.New("cart not found")
	// ErrSessionNotFound возвращается, если сессии нет или она удалена.
	ErrSessionNotFound = errors.New("session not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil || !retryable(err) || i == len(retryDelays) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelays[i]):
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetCart возвращает корзину по идентификатору.
func (r *PostgresRepository) GetCart(ctx context.Context, id string) (*model.Cart, error) {
	var (
		c     model.Cart
		items []byte
	)
	err := withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, table_number, items, updated_at FROM carts WHERE id = $1`,
			id,
		).Scan(&c.ID, &c.TableNumber, &items, &c.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return &c, nil
}

// SaveCart создаёт или заменяет корзину и возвращает её с проставленным временем изменения.
func (r *PostgresRepository) SaveCart(ctx context.Context, c model.Cart) (*model.Cart, error) {
	if c.Items == nil {
		c.Items = []model.CartItem{}
	}
	items, err := json.Marshal(c.Items)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}

	err = withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO carts (id, table_number, items, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (id) DO UPDATE
			 SET table_number = EXCLUDED.table_number, items = EXCLUDED.items, updated_at = now()
			 RETURNING updated_at`,
			c.ID, c.TableNumber, items,
		).Scan(&c.UpdatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return &c, nil
}

// DeleteCart удаляет корзину.
func (r *PostgresRepository) DeleteCart(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := withRetry(ctx, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

// SaveSession сохраняет сессию персонала под идентификатором id.
func (r *PostgresRepository) SaveSession(ctx context.Context, id string, s *apiclient.Session) error {
	var expires *time.Time
	if !s.ExpiresAt.IsZero() {
		expires = &s.ExpiresAt
	}
	err := withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO staff_sessions (id, role, token, subject, expires_at) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, token = EXCLUDED.token,
			 subject = EXCLUDED.subject, expires_at = EXCLUDED.expires_at`,
			id, s.Role, s.Token, s.Subject, expires,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession возвращает сессию персонала. Истёкшие сессии не возвращаются.
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*apiclient.Session, error) {
	var (
		s       apiclient.Session
		expires *time.Time
	)
	err := withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT role, token, subject, expires_at FROM staff_sessions WHERE id = $1`,
			id,
		).Scan(&s.Role, &s.Token, &s.Subject, &expires)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if expires != nil {
		s.ExpiresAt = *expires
	}
	if s.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// DeleteSession удаляет сессию персонала.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id string) error {
	err := withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM staff_sessions WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
