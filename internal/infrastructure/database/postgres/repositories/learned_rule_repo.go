package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

const learnedRuleColumns = `
	id, field, category, pattern, template,
	priority, usage_count, success_rate, enabled,
	created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// LearnedRuleRepository
// ─────────────────────────────────────────────────────────────────────────────

// LearnedRuleRepository stores rules distilled from human corrections. It is
// the persistence side of the engine's RuleSource: RulesByField feeds the
// coordinator's refresh cycle.
type LearnedRuleRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewLearnedRuleRepository constructs a ready-to-use LearnedRuleRepository.
func NewLearnedRuleRepository(pool *pgxpool.Pool, logger logging.Logger) *LearnedRuleRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LearnedRuleRepository{pool: pool, logger: logger}
}

// RulesByField returns the enabled rules for one field and category, highest
// priority first. Satisfies clause_engine.RuleSource.
func (r *LearnedRuleRepository) RulesByField(ctx context.Context, field types.Field, category types.CoverageCategory) ([]types.LearnedRule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+learnedRuleColumns+`
		 FROM learned_rules
		 WHERE field = $1 AND category = $2 AND enabled
		 ORDER BY priority DESC, created_at ASC`,
		field, category)
	if err != nil {
		r.logger.Error("LearnedRuleRepository.RulesByField", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeRuleStoreDown, "failed to query learned rules")
	}
	defer rows.Close()

	return r.scanRules(rows)
}

// Save persists a new learned rule. A pattern already stored for the same
// field and category is a conflict; the worker treats that as reinforcement
// and calls RecordOutcome instead.
func (r *LearnedRuleRepository) Save(ctx context.Context, rule *types.LearnedRule) error {
	r.logger.Debug("LearnedRuleRepository.Save",
		logging.String("rule_id", string(rule.ID)),
		logging.String("field", string(rule.Field)))

	tmplJSON, err := json.Marshal(rule.Template)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode extraction template")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO learned_rules (
			id, field, category, pattern, template,
			priority, usage_count, success_rate, enabled,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rule.ID, rule.Field, rule.Category, rule.Pattern, tmplJSON,
		rule.Priority, rule.UsageCount, rule.SuccessRate, rule.Enabled,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.New(appErrors.ErrCodeConflict, "learned rule pattern already exists").
				WithDetail(fmt.Sprintf("field=%s category=%s", rule.Field, rule.Category))
		}
		r.logger.Error("LearnedRuleRepository.Save", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to insert learned rule")
	}
	return nil
}

// FindByID loads one learned rule.
func (r *LearnedRuleRepository) FindByID(ctx context.Context, id common.ID) (*types.LearnedRule, error) {
	rule, err := r.scanRule(r.pool.QueryRow(ctx,
		`SELECT `+learnedRuleColumns+` FROM learned_rules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appErrors.New(appErrors.ErrCodeRuleNotFound, "learned rule not found").
				WithDetail(fmt.Sprintf("id=%s", id))
		}
		r.logger.Error("LearnedRuleRepository.FindByID", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query learned rule")
	}
	return rule, nil
}

// FindByPattern locates a rule by its natural key.
func (r *LearnedRuleRepository) FindByPattern(ctx context.Context, field types.Field, category types.CoverageCategory, pattern string) (*types.LearnedRule, error) {
	rule, err := r.scanRule(r.pool.QueryRow(ctx,
		`SELECT `+learnedRuleColumns+`
		 FROM learned_rules WHERE field = $1 AND category = $2 AND pattern = $3`,
		field, category, pattern))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appErrors.New(appErrors.ErrCodeRuleNotFound, "learned rule not found")
		}
		r.logger.Error("LearnedRuleRepository.FindByPattern", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query learned rule")
	}
	return rule, nil
}

// List returns all rules, optionally narrowed to one field, newest first.
func (r *LearnedRuleRepository) List(ctx context.Context, field types.Field, page common.Pagination) ([]types.LearnedRule, int64, error) {
	where := ""
	args := []interface{}{}
	if field != "" {
		where = "WHERE field = $1"
		args = append(args, field)
	}

	var total int64
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM learned_rules %s", where), args...).Scan(&total); err != nil {
		r.logger.Error("LearnedRuleRepository.List: count", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to count learned rules")
	}

	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM learned_rules %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			learnedRuleColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		r.logger.Error("LearnedRuleRepository.List: query", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list learned rules")
	}
	defer rows.Close()

	rules, err := r.scanRules(rows)
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// SetEnabled flips a rule on or off without touching its statistics.
func (r *LearnedRuleRepository) SetEnabled(ctx context.Context, id common.ID, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE learned_rules SET enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("LearnedRuleRepository.SetEnabled", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to update learned rule")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeRuleNotFound, "learned rule not found").
			WithDetail(fmt.Sprintf("id=%s", id))
	}
	return nil
}

// RecordOutcome folds one replay outcome into the rule's running success
// rate and bumps its usage count, in a single statement so concurrent
// workers cannot lose updates.
func (r *LearnedRuleRepository) RecordOutcome(ctx context.Context, id common.ID, success bool) error {
	hit := 0.0
	if success {
		hit = 1.0
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE learned_rules SET
			success_rate = (success_rate * usage_count + $1) / (usage_count + 1),
			usage_count  = usage_count + 1,
			updated_at   = $2
		WHERE id = $3`,
		hit, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("LearnedRuleRepository.RecordOutcome", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to record rule outcome")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeRuleNotFound, "learned rule not found").
			WithDetail(fmt.Sprintf("id=%s", id))
	}
	return nil
}

// Delete removes a rule permanently. Prefer SetEnabled(false) so the rule's
// history survives.
func (r *LearnedRuleRepository) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM learned_rules WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("LearnedRuleRepository.Delete", logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to delete learned rule")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeRuleNotFound, "learned rule not found").
			WithDetail(fmt.Sprintf("id=%s", id))
	}
	return nil
}

func (r *LearnedRuleRepository) scanRule(sc rowScanner) (*types.LearnedRule, error) {
	var (
		rule     types.LearnedRule
		tmplJSON []byte
	)
	if err := sc.Scan(
		&rule.ID, &rule.Field, &rule.Category, &rule.Pattern, &tmplJSON,
		&rule.Priority, &rule.UsageCount, &rule.SuccessRate, &rule.Enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tmplJSON, &rule.Template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to decode extraction template")
	}
	return &rule, nil
}

func (r *LearnedRuleRepository) scanRules(rows pgx.Rows) ([]types.LearnedRule, error) {
	var rules []types.LearnedRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan learned rule")
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate learned rules")
	}
	return rules, nil
}
