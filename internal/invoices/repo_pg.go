package invoices

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres with JSONB document columns.
type PGRepo struct {
	DB *sql.DB
}

const invoiceColumns = `id, user_id, extracted_data, canonical_data, confidence_scores, status, original_filename, metadata, approved_by, created_at, updated_at, approved_at`

// Save inserts a new invoice.
func (r *PGRepo) Save(ctx context.Context, inv Invoice) (string, error) {
	const query = `
INSERT INTO invoices (
    id,
    user_id,
    extracted_data,
    canonical_data,
    confidence_scores,
    status,
    original_filename,
    metadata,
    approved_by,
    created_at,
    updated_at,
    approved_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	extracted, err := marshalJSONB(inv.ExtractedData)
	if err != nil {
		return "", fmt.Errorf("marshal extracted_data: %w", err)
	}
	canonicalData, err := marshalJSONB(inv.CanonicalData)
	if err != nil {
		return "", fmt.Errorf("marshal canonical_data: %w", err)
	}
	scores, err := marshalJSONB(inv.ConfidenceScores)
	if err != nil {
		return "", fmt.Errorf("marshal confidence_scores: %w", err)
	}
	metadata, err := marshalJSONB(inv.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		inv.ID,
		inv.UserID,
		extracted,
		canonicalData,
		scores,
		inv.Status,
		inv.OriginalFilename,
		metadata,
		nullString(inv.ApprovedBy),
		inv.CreatedAt,
		inv.UpdatedAt,
		nullTime(inv.ApprovedAt),
	)
	if err != nil {
		return "", err
	}
	return inv.ID, nil
}

// UpdateStatus sets both status views, the approver and timestamps in one
// statement. updated_at never moves backwards.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, update StatusUpdate) (int64, error) {
	const query = `
UPDATE invoices
SET status = $2,
    confidence_scores = jsonb_set(confidence_scores, '{status}', to_jsonb($2::text), true),
    approved_by = $3,
    approved_at = $4,
    updated_at = GREATEST(updated_at, $4)
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, id, update.Status, nullString(update.ApprovedBy), update.At)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindByUser lists a user's invoices ordered newest-first.
func (r *PGRepo) FindByUser(ctx context.Context, userID string, limit int) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
FROM invoices
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	return r.query(ctx, query, userID, limit)
}

// FindReviewQueue lists invoices awaiting review, oldest first.
func (r *PGRepo) FindReviewQueue(ctx context.Context, limit int) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
FROM invoices
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2`
	return r.query(ctx, query, StatusNeedsReview, limit)
}

// AggregateAnalytics summarizes invoices per status.
func (r *PGRepo) AggregateAnalytics(ctx context.Context) (Analytics, error) {
	const query = `
SELECT status,
       COUNT(*),
       COALESCE(SUM((confidence_scores->>'overall')::float8), 0),
       COALESCE(SUM((canonical_data->>'total')::float8), 0)
FROM invoices
GROUP BY status
ORDER BY status`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return Analytics{}, err
	}
	defer rows.Close()

	var aggs []statusAggregate
	for rows.Next() {
		var agg statusAggregate
		if err := rows.Scan(&agg.Status, &agg.Count, &agg.ConfidenceSum, &agg.AmountSum); err != nil {
			return Analytics{}, err
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return Analytics{}, err
	}
	return buildAnalytics(aggs), nil
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (Invoice, error) {
	var inv Invoice
	var extracted, canonicalData, scores, metadata []byte
	var approvedBy sql.NullString
	var approvedAt sql.NullTime
	if err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&extracted,
		&canonicalData,
		&scores,
		&inv.Status,
		&inv.OriginalFilename,
		&metadata,
		&approvedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
		&approvedAt,
	); err != nil {
		return Invoice{}, err
	}
	if err := unmarshalJSONB(extracted, &inv.ExtractedData); err != nil {
		return Invoice{}, fmt.Errorf("decode extracted_data id=%s: %w", inv.ID, err)
	}
	if err := unmarshalJSONB(canonicalData, &inv.CanonicalData); err != nil {
		return Invoice{}, fmt.Errorf("decode canonical_data id=%s: %w", inv.ID, err)
	}
	if err := unmarshalJSONB(scores, &inv.ConfidenceScores); err != nil {
		return Invoice{}, fmt.Errorf("decode confidence_scores id=%s: %w", inv.ID, err)
	}
	if err := unmarshalJSONB(metadata, &inv.Metadata); err != nil {
		return Invoice{}, fmt.Errorf("decode metadata id=%s: %w", inv.ID, err)
	}
	if approvedBy.Valid {
		v := approvedBy.String
		inv.ApprovedBy = &v
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		inv.ApprovedAt = &t
	}
	return inv, nil
}

func marshalJSONB(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("{}"), nil
	case map[string]any:
		if v == nil {
			return []byte("{}"), nil
		}
	}
	return json.Marshal(value)
}

func unmarshalJSONB(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
