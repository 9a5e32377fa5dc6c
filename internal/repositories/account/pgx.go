package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/repositories"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"

	sq "github.com/Masterminds/squirrel"
)

type PgxRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPgxRepository(pool *pgxpool.Pool, logger logger.Logger) *PgxRepository {
	return &PgxRepository{
		pool:   pool,
		logger: logger.WithComponent("AccountRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

func (r *PgxRepository) Upsert(ctx context.Context, account domain.Account) error {
	now := time.Now()
	query, args, err := repositories.SqBuilder.
		Insert("social_accounts").
		Columns("user_id", "platform", "nickname", "username", "created_at", "updated_at").
		Values(account.UserID, account.Platform, account.Nickname, account.Username, now, now).
		Suffix("ON CONFLICT (user_id, platform, nickname) DO UPDATE SET username = EXCLUDED.username, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (r *PgxRepository) Delete(ctx context.Context, userID int64, platform domain.Platform, nickname string) error {
	query, args, err := repositories.SqBuilder.
		Delete("social_accounts").
		Where(sq.Eq{"user_id": userID, "platform": platform, "nickname": nickname}).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgxRepository) GetByOwner(ctx context.Context, userID int64, platform domain.Platform, nickname string) (*domain.Account, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "user_id", "platform", "nickname", "username", "created_at", "updated_at").
		From("social_accounts").
		Where(sq.Eq{"user_id": userID, "platform": platform, "nickname": nickname}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	var account domain.Account
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&account.ID,
		&account.UserID,
		&account.Platform,
		&account.Nickname,
		&account.Username,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *PgxRepository) ListByUserAndPlatform(ctx context.Context, userID int64, platform domain.Platform) ([]*domain.Account, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "user_id", "platform", "nickname", "username", "created_at", "updated_at").
		From("social_accounts").
		Where(sq.Eq{"user_id": userID, "platform": platform}).
		OrderBy("nickname ASC").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Platform,
			&account.Nickname,
			&account.Username,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}
