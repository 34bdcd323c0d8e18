// Package storage は user.Store の永続化バックエンド（PostgreSQL, Redis）を提供します。
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/authgate/internal/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgreSQL の unique_violation
const uniqueViolation = "23505"

// PgxPool は PostgresUserStore が利用するコネクションプールの操作です。
// *pgxpool.Pool と pgxmock のプールの両方が満たします。
type PgxPool interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresUserStore は PostgreSQL にユーザーを保存します。
type PostgresUserStore struct {
	pool PgxPool
}

// NewPostgresUserStore は PostgresUserStore を作成します。
func NewPostgresUserStore(pool PgxPool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

// NewPostgresPool は接続確認済みのコネクションプールを作成します。
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate は埋め込みのマイグレーションを適用します。
func Migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Create はユーザーを INSERT します。メールアドレス重複時は user.ErrDuplicateKey を返します。
func (s *PostgresUserStore) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	user.Prepare(u)

	query := `
		INSERT INTO users (id, email, nickname, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, query, u.ID, u.Email, u.Nickname, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID は ID でユーザーを取得します。
func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, email, nickname, password_hash, created_at
		FROM users
		WHERE id = $1
	`
	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapFindError("id", err)
	}
	return u, nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, email, nickname, password_hash, created_at
		FROM users
		WHERE email = $1
	`
	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, wrapFindError("email", err)
	}
	return u, nil
}

// Ping は DB への疎通を確認します。
func (s *PostgresUserStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func wrapFindError(by string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	return fmt.Errorf("failed to get user by %s: %w", by, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
