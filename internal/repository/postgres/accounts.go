package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/repository"
)

const uniqueViolationCode = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := r.builder.Insert("iam.accounts").
		Columns(
			"id",
			"email",
			"nickname",
			"password_hash",
			"status",
			"created_at",
			"updated_at",
		).
		Values(
			account.ID,
			account.Email,
			account.Nickname,
			account.PasswordHash,
			account.Status,
			account.CreatedAt,
			account.UpdatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an account by its unique address.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

func (r *AccountRepository) getOne(ctx context.Context, pred squirrel.Eq) (*domain.Account, error) {
	query := r.builder.Select(
		"id",
		"email",
		"nickname",
		"password_hash",
		"status",
		"created_at",
		"updated_at",
	).From("iam.accounts").Where(pred)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	var account domain.Account
	row := r.exec.QueryRow(ctx, sql, args...)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Nickname,
		&account.PasswordHash,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &account, nil
}

// Update persists nickname, password hash, and status changes and bumps updated_at.
func (r *AccountRepository) Update(ctx context.Context, account domain.Account) error {
	query := r.builder.Update("iam.accounts").
		Set("nickname", account.Nickname).
		Set("password_hash", account.PasswordHash).
		Set("status", account.Status).
		Set("updated_at", account.UpdatedAt).
		Where(squirrel.Eq{"id": account.ID})

	return r.execUpdate(ctx, query, "update account")
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	query := r.builder.Update("iam.accounts").
		Set("password_hash", passwordHash).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id})

	return r.execUpdate(ctx, query, "update account password")
}

// UpdateStatus transitions the account lifecycle state. The updated_at bump is
// what the reactivation cooldown is measured from.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus, changedAt time.Time) error {
	query := r.builder.Update("iam.accounts").
		Set("status", status).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id})

	return r.execUpdate(ctx, query, "update account status")
}

func (r *AccountRepository) execUpdate(ctx context.Context, query squirrel.UpdateBuilder, op string) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
