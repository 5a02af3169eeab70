package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

const parseRecordColumns = `
	id, clause_text, category, result,
	amount_type, max_count, interval_days,
	is_grouped, is_repeatable, premium_waived,
	overall_confidence, status, created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// ParseRecordRepository
// ─────────────────────────────────────────────────────────────────────────────

// ParseRecordRepository stores parse invocations. The full result is kept as
// JSONB; the scalar filter columns are refreshed from the result on every
// write so that listing never has to unpack the JSON.
type ParseRecordRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewParseRecordRepository constructs a ready-to-use ParseRecordRepository.
func NewParseRecordRepository(pool *pgxpool.Pool, logger logging.Logger) *ParseRecordRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ParseRecordRepository{pool: pool, logger: logger}
}

// Save persists a new parse record.
func (r *ParseRecordRepository) Save(ctx context.Context, rec *types.ParseRecord) error {
	r.logger.Debug("ParseRecordRepository.Save", logging.String("record_id", string(rec.ID)))

	rec.Denormalize()
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode parse result")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO parse_records (
			id, clause_text, category, result,
			amount_type, max_count, interval_days,
			is_grouped, is_repeatable, premium_waived,
			overall_confidence, status, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,
			$5,$6,$7,
			$8,$9,$10,
			$11,$12,$13,$14
		)`,
		rec.ID, rec.ClauseText, rec.Category, resultJSON,
		rec.AmountType, rec.MaxCount, rec.IntervalDays,
		rec.IsGrouped, rec.IsRepeatable, rec.PremiumWaived,
		rec.OverallConfidence, rec.Status, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.New(appErrors.ErrCodeRecordExists, "parse record already exists").
				WithDetail(fmt.Sprintf("id=%s", rec.ID))
		}
		r.logger.Error("ParseRecordRepository.Save: insert", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to insert parse record")
	}
	return nil
}

// FindByID loads one parse record by its primary key.
func (r *ParseRecordRepository) FindByID(ctx context.Context, id common.ID) (*types.ParseRecord, error) {
	r.logger.Debug("ParseRecordRepository.FindByID", logging.String("id", string(id)))

	rec, err := r.scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+parseRecordColumns+` FROM parse_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appErrors.New(appErrors.ErrCodeRecordNotFound, "parse record not found").
				WithDetail(fmt.Sprintf("id=%s", id))
		}
		r.logger.Error("ParseRecordRepository.FindByID", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query parse record")
	}
	return rec, nil
}

// List returns records matching the filter, newest first, along with the
// total count across all pages.
func (r *ParseRecordRepository) List(ctx context.Context, filter types.RecordFilter) ([]*types.ParseRecord, int64, error) {
	var (
		conditions []string
		args       []interface{}
		argIdx     int
	)
	nextArg := func(v interface{}) string {
		argIdx++
		args = append(args, v)
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = %s", nextArg(filter.Category)))
	}
	if filter.AmountType != "" {
		conditions = append(conditions, fmt.Sprintf("amount_type = %s", nextArg(filter.AmountType)))
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = %s", nextArg(filter.Status)))
	}
	if filter.MinConfidence > 0 {
		conditions = append(conditions, fmt.Sprintf("overall_confidence >= %s", nextArg(filter.MinConfidence)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM parse_records %s", whereClause)
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		r.logger.Error("ParseRecordRepository.List: count", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to count parse records")
	}

	phLimit := nextArg(filter.Pagination.Limit())
	phOffset := nextArg(filter.Pagination.Offset())

	dataSQL := fmt.Sprintf(`SELECT %s FROM parse_records %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		parseRecordColumns, whereClause, phLimit, phOffset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		r.logger.Error("ParseRecordRepository.List: query", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list parse records")
	}
	defer rows.Close()

	var records []*types.ParseRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan parse record")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate parse records")
	}
	return records, total, nil
}

// UpdateStatus moves a record through the review workflow.
func (r *ParseRecordRepository) UpdateStatus(ctx context.Context, id common.ID, status types.ReviewStatus) error {
	r.logger.Debug("ParseRecordRepository.UpdateStatus",
		logging.String("id", string(id)), logging.String("status", string(status)))

	tag, err := r.pool.Exec(ctx,
		`UPDATE parse_records SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("ParseRecordRepository.UpdateStatus", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to update record status")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeRecordNotFound, "parse record not found").
			WithDetail(fmt.Sprintf("id=%s", id))
	}
	return nil
}

// Delete removes a record and, via cascade, its corrections.
func (r *ParseRecordRepository) Delete(ctx context.Context, id common.ID) error {
	r.logger.Debug("ParseRecordRepository.Delete", logging.String("id", string(id)))

	tag, err := r.pool.Exec(ctx, `DELETE FROM parse_records WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("ParseRecordRepository.Delete", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to delete parse record")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeRecordNotFound, "parse record not found").
			WithDetail(fmt.Sprintf("id=%s", id))
	}
	return nil
}

func (r *ParseRecordRepository) scanRecord(sc rowScanner) (*types.ParseRecord, error) {
	var (
		rec        types.ParseRecord
		resultJSON []byte
	)
	if err := sc.Scan(
		&rec.ID, &rec.ClauseText, &rec.Category, &resultJSON,
		&rec.AmountType, &rec.MaxCount, &rec.IntervalDays,
		&rec.IsGrouped, &rec.IsRepeatable, &rec.PremiumWaived,
		&rec.OverallConfidence, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to decode stored parse result")
	}
	return &rec, nil
}
