package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const recordsTable = "analysis_records"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGRepo implements Recorder using Postgres. The full record is kept as a
// JSONB document next to the columns used for lookups and retention.
type PGRepo struct {
	DB *sql.DB
}

// Insert writes the record in one statement.
func (r *PGRepo) Insert(ctx context.Context, rec Record) (string, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	query, args, err := psql.Insert(recordsTable).
		Columns(
			"resume_id", "request_id", "content_hash", "score", "provider", "model",
			"raw_text", "document", "received_at", "completed_at", "expires_at",
		).
		Values(
			rec.ResumeID, rec.RequestID, rec.ContentHash, rec.Score, rec.Provider, rec.Model,
			rec.Text.Content, doc, rec.ReceivedAt, rec.CompletedAt, rec.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert record %s: %w", rec.ResumeID, err)
	}
	return rec.ResumeID, nil
}

// PurgeExpired deletes records whose expiry is at or before now.
func (r *PGRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := psql.Delete(recordsTable).
		Where(sq.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
