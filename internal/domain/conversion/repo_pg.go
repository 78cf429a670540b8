package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type recordRepoPG struct{ db queryable }

// NewRecordRepoPG stores history in the conversion_history table. db is
// usually a *pgxpool.Pool.
func NewRecordRepoPG(db queryable) RecordRepository {
	return &recordRepoPG{db: db}
}

const recordCols = `id, expression, result, error_code, error_message, leaf_count, user_id, created_at`

func (r *recordRepoPG) scanRow(row pgx.Row) (*Record, error) {
	var rec Record
	var result []byte
	var code, msg, user *string
	if err := row.Scan(&rec.ID, &rec.Expression, &result, &code, &msg, &rec.LeafCount, &user, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Result = result
	rec.ErrorCode = deref(code)
	rec.ErrorMessage = deref(msg)
	rec.UserID = deref(user)
	return &rec, nil
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var result []byte
	if len(rec.Result) > 0 {
		result = rec.Result
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO conversion_history (id, expression, result, error_code, error_message, leaf_count, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.Expression, result, nullable(rec.ErrorCode), nullable(rec.ErrorMessage),
		rec.LeafCount, nullable(rec.UserID), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := r.scanRow(r.db.QueryRow(ctx, `SELECT `+recordCols+` FROM conversion_history WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion %s: %w", id, err)
	}
	return rec, nil
}

func (r *recordRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Record, int, error) {
	where, args := filterClause(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM conversion_history`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversions: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM conversion_history%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		recordCols, where, n+1, n+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	items := []*Record{}
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conversion: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversions: %w", err)
	}
	return items, total, nil
}

func filterClause(f ListFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	var args []interface{}
	switch f.Outcome {
	case OutcomeSucceeded:
		where += ` AND error_code IS NULL`
	case OutcomeFailed:
		where += ` AND error_code IS NOT NULL`
	}
	if f.ErrorCode != "" {
		args = append(args, f.ErrorCode)
		where += fmt.Sprintf(` AND error_code = $%d`, len(args))
	}
	return where, args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
