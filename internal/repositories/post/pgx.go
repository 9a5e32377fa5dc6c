package post

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/repositories"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"

	sq "github.com/Masterminds/squirrel"
)

type PgxRepository struct {
	pg     *pgxpool.Pool
	logger logger.Logger
}

func NewPgxRepository(pg *pgxpool.Pool, logger logger.Logger) *PgxRepository {
	return &PgxRepository{
		pg:     pg,
		logger: logger.WithComponent("PostRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

var postColumns = []string{
	"id", "user_id", "platform", "ig_nickname", "tt_nickname",
	"media_ref", "caption", "hashtags",
	"schedule_kind", "schedule_at", "every_hours",
	"status", "retry_count", "claimed_until", "created_at",
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID, &p.UserID, &p.Platform, &p.IgNickname, &p.TtNickname,
		&p.MediaRef, &p.Caption, &p.Hashtags,
		&p.ScheduleKind, &p.ScheduleAt, &p.EveryHours,
		&p.Status, &p.RetryCount, &p.ClaimedUntil, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create adds a new scheduled post
func (p *PgxRepository) Create(ctx context.Context, post domain.Post) error {
	query, args, err := repositories.SqBuilder.
		Insert("scheduled_posts").
		Columns(
			"id", "user_id", "platform", "ig_nickname", "tt_nickname",
			"media_ref", "caption", "hashtags",
			"schedule_kind", "schedule_at", "every_hours",
			"status", "retry_count", "created_at",
		).
		Values(
			post.ID, post.UserID, post.Platform, post.IgNickname, post.TtNickname,
			post.MediaRef, post.Caption, post.Hashtags,
			post.ScheduleKind, post.ScheduleAt, post.EveryHours,
			post.Status, post.RetryCount, time.Now(),
		).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	_, err = p.pg.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID returns a single post by its id
func (p *PgxRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	query, args, err := repositories.SqBuilder.
		Select(postColumns...).
		From("scheduled_posts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	post, err := scanPost(p.pg.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

// fetchDueQuery selects queued, due, unclaimed (or claim-expired) rows,
// oldest schedule first with insertion order breaking ties. Locked rows
// belong to another instance and are skipped, not waited on.
func fetchDueQuery(now time.Time) (string, []interface{}, error) {
	return repositories.SqBuilder.
		Select(postColumns...).
		From("scheduled_posts").
		Where(sq.Eq{"status": domain.StatusQueued}).
		Where(sq.LtOrEq{"schedule_at": now}).
		Where(sq.Or{
			sq.Eq{"claimed_until": nil},
			sq.LtOrEq{"claimed_until": now},
		}).
		OrderBy("schedule_at ASC", "created_at ASC", "id ASC").
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
}

func claimQuery(ids []string, until time.Time) (string, []interface{}, error) {
	return repositories.SqBuilder.
		Update("scheduled_posts").
		Set("claimed_until", until).
		Where(sq.Eq{"id": ids}).
		ToSql()
}

func markStatusQuery(id string, status domain.PostStatus) (string, []interface{}, error) {
	return repositories.SqBuilder.
		Update("scheduled_posts").
		Set("status", status).
		Set("claimed_until", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func rescheduleQuery(id string, at time.Time) (string, []interface{}, error) {
	return repositories.SqBuilder.
		Update("scheduled_posts").
		Set("schedule_at", at).
		Set("claimed_until", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
}

// FetchDue claims queued posts whose schedule time has passed. The select
// and the lease extension run in one transaction so two scheduler
// instances never hand the same post to their workers.
func (p *PgxRepository) FetchDue(ctx context.Context, now time.Time, lease time.Duration) ([]*domain.Post, error) {
	query, args, err := fetchDueQuery(now)
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var posts []*domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		posts = append(posts, post)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(posts) > 0 {
		ids := make([]string, 0, len(posts))
		for _, post := range posts {
			ids = append(ids, post.ID)
		}

		claim, claimArgs, err := claimQuery(ids, now.Add(lease))
		if err != nil {
			return nil, repositories.ErrBadQuery
		}
		if _, err := tx.Exec(ctx, claim, claimArgs...); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return posts, nil
}

// MarkStatus moves a post to the given lifecycle status and releases its claim
func (p *PgxRepository) MarkStatus(ctx context.Context, id string, status domain.PostStatus) error {
	query, args, err := markStatusQuery(id, status)
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementRetry bumps the business retry counter and returns the new count
func (p *PgxRepository) IncrementRetry(ctx context.Context, id string) (int, error) {
	query, args, err := repositories.SqBuilder.
		Update("scheduled_posts").
		Set("retry_count", sq.Expr("retry_count + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING retry_count").
		ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	var count int
	err = p.pg.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

// RescheduleAt moves the post's schedule time and releases its claim
func (p *PgxRepository) RescheduleAt(ctx context.Context, id string, at time.Time) error {
	query, args, err := rescheduleQuery(id, at)
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCompleted removes all completed posts and reports how many
func (p *PgxRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	query, args, err := repositories.SqBuilder.
		Delete("scheduled_posts").
		Where(sq.Eq{"status": domain.StatusCompleted}).
		ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// CountByStatus counts posts in the given lifecycle status
func (p *PgxRepository) CountByStatus(ctx context.Context, status domain.PostStatus) (int, error) {
	query, args, err := repositories.SqBuilder.
		Select("COUNT(*)").
		From("scheduled_posts").
		Where(sq.Eq{"status": status}).
		ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	var count int
	if err := p.pg.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
