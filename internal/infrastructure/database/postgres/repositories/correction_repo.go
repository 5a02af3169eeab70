package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

const correctionColumns = `
	id, record_id, field, category, confirmed,
	corrected_text, corrected_result, template, reviewer, created_at`

// ─────────────────────────────────────────────────────────────────────────────
// CorrectionRepository
// ─────────────────────────────────────────────────────────────────────────────

// CorrectionRepository stores human review corrections. Rows are written by
// the worker after it consumes the correction topic, so the review API stays
// fast even when the database is slow.
type CorrectionRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCorrectionRepository constructs a ready-to-use CorrectionRepository.
func NewCorrectionRepository(pool *pgxpool.Pool, logger logging.Logger) *CorrectionRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CorrectionRepository{pool: pool, logger: logger}
}

// Save persists one correction. The referenced parse record must exist; a
// missing record surfaces as a rejected correction rather than a database
// error so the worker can drop the message instead of retrying it.
func (r *CorrectionRepository) Save(ctx context.Context, c *types.Correction) error {
	r.logger.Debug("CorrectionRepository.Save",
		logging.String("correction_id", string(c.ID)),
		logging.String("record_id", string(c.RecordID)))

	var tmplJSON []byte
	if c.Template != nil {
		var err error
		tmplJSON, err = json.Marshal(c.Template)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode extraction template")
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO corrections (
			id, record_id, field, category, confirmed,
			corrected_text, corrected_result, template, reviewer, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.RecordID, c.Field, c.Category, c.Confirmed,
		c.CorrectedText, []byte(c.CorrectedResult), tmplJSON, c.Reviewer, c.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return appErrors.New(appErrors.ErrCodeCorrectionRejected, "correction references unknown parse record").
				WithDetail(fmt.Sprintf("record_id=%s", c.RecordID))
		}
		if isUniqueViolation(err) {
			return appErrors.New(appErrors.ErrCodeConflict, "correction already stored").
				WithDetail(fmt.Sprintf("id=%s", c.ID))
		}
		r.logger.Error("CorrectionRepository.Save", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to insert correction")
	}
	return nil
}

// ListByRecord returns every correction filed against one parse record,
// oldest first.
func (r *CorrectionRepository) ListByRecord(ctx context.Context, recordID common.ID) ([]types.Correction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+correctionColumns+`
		 FROM corrections WHERE record_id = $1 ORDER BY created_at ASC`, recordID)
	if err != nil {
		r.logger.Error("CorrectionRepository.ListByRecord", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query corrections")
	}
	defer rows.Close()

	return r.scanCorrections(rows)
}

// ListByField returns corrections for one field and category across all
// records, newest first. The worker uses this to find reinforcement signals
// for an existing learned rule.
func (r *CorrectionRepository) ListByField(ctx context.Context, field types.Field, category types.CoverageCategory, page common.Pagination) ([]types.Correction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+correctionColumns+`
		 FROM corrections WHERE field = $1 AND category = $2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		field, category, page.Limit(), page.Offset())
	if err != nil {
		r.logger.Error("CorrectionRepository.ListByField", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query corrections")
	}
	defer rows.Close()

	return r.scanCorrections(rows)
}

func (r *CorrectionRepository) scanCorrections(rows pgx.Rows) ([]types.Correction, error) {
	var corrections []types.Correction
	for rows.Next() {
		var (
			c          types.Correction
			resultJSON []byte
			tmplJSON   []byte
		)
		if err := rows.Scan(
			&c.ID, &c.RecordID, &c.Field, &c.Category, &c.Confirmed,
			&c.CorrectedText, &resultJSON, &tmplJSON, &c.Reviewer, &c.CreatedAt,
		); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan correction")
		}
		c.CorrectedResult = json.RawMessage(resultJSON)
		if len(tmplJSON) > 0 {
			var tmpl types.ExtractionTemplate
			if err := json.Unmarshal(tmplJSON, &tmpl); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to decode extraction template")
			}
			c.Template = &tmpl
		}
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate corrections")
	}
	return corrections, nil
}
