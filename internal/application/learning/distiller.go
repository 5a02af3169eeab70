// Package learning is the worker side of the review loop. It consumes
// correction events, persists them, distills corrected evidence spans into
// learned rules, and periodically rebuilds the engine's rule bundle under a
// distributed lock so only one worker runs a cycle at a time.
package learning

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	segkafka "github.com/segmentio/kafka-go"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

// CorrectionStore persists consumed corrections.
type CorrectionStore interface {
	Save(ctx context.Context, c *types.Correction) error
}

// RuleStore persists distilled learned rules.
type RuleStore interface {
	Save(ctx context.Context, rule *types.LearnedRule) error
	FindByPattern(ctx context.Context, field types.Field, category types.CoverageCategory, pattern string) (*types.LearnedRule, error)
	RecordOutcome(ctx context.Context, id common.ID, success bool) error
}

// Refresher rebuilds the engine's rule bundle from the current learned rules.
type Refresher interface {
	Refresh(ctx context.Context)
}

// ResultFlusher drops cached parse results after a bundle rebuild.
type ResultFlusher interface {
	Flush(ctx context.Context)
}

// distillLockName serializes distillation cycles across worker instances.
const distillLockName = "distill"

// Distiller consumes corrections and maintains the learned-rule store.
type Distiller struct {
	corrections CorrectionStore
	rules       RuleStore
	refresher   Refresher
	flusher     ResultFlusher
	locks       redis.LockFactory
	metrics     *prometheus.AppMetrics
	logger      logging.Logger
}

// NewDistiller wires the distiller. locks, flusher, and metrics are optional;
// without a lock factory cycles run unguarded, which is fine for a single
// worker.
func NewDistiller(corrections CorrectionStore, rules RuleStore, refresher Refresher, flusher ResultFlusher, locks redis.LockFactory, metrics *prometheus.AppMetrics, logger logging.Logger) *Distiller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Distiller{
		corrections: corrections,
		rules:       rules,
		refresher:   refresher,
		flusher:     flusher,
		locks:       locks,
		metrics:     metrics,
		logger:      logger.Named("learning"),
	}
}

// HandleMessage is the kafka handler for the corrections topic.
func (d *Distiller) HandleMessage(ctx context.Context, msg segkafka.Message) error {
	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		// Malformed messages will never decode on redelivery either.
		d.logger.Warn("Dropping undecodable correction message",
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return nil
	}
	correction, err := kafka.DecodeCorrection(env)
	if err != nil {
		d.logger.Warn("Dropping non-correction message",
			logging.String("event_type", env.EventType),
			logging.Err(err))
		return nil
	}
	return d.Apply(ctx, correction)
}

// Apply persists one correction and distills it into the rule store. Safe to
// call twice with the same correction; the duplicate is detected and skipped.
func (d *Distiller) Apply(ctx context.Context, c *types.Correction) error {
	if err := d.corrections.Save(ctx, c); err != nil {
		switch errors.GetCode(err) {
		case errors.ErrCodeConflict:
			// Redelivered message, already processed.
			return nil
		case errors.ErrCodeCorrectionRejected:
			// The record was deleted after review; nothing to learn from.
			d.logger.Warn("Correction references missing record, dropping",
				logging.String("correction_id", c.ID.String()),
				logging.Err(err))
			return nil
		default:
			return err
		}
	}
	if d.metrics != nil {
		prometheus.RecordCorrection(d.metrics, string(c.Field), c.Confirmed)
	}
	if c.Confirmed {
		d.logger.Debug("Confirmation recorded",
			logging.String("record_id", c.RecordID.String()),
			logging.String("field", string(c.Field)))
		return nil
	}
	return d.distill(ctx, c)
}

// distill turns a corrected evidence span into a learned rule, or reinforces
// the rule that already carries the same pattern.
func (d *Distiller) distill(ctx context.Context, c *types.Correction) error {
	if c.CorrectedText == "" {
		d.logger.Debug("Correction has no evidence span, nothing to distill",
			logging.String("correction_id", c.ID.String()))
		return nil
	}
	pattern := DerivePattern(c.CorrectedText)
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		d.logger.Warn("Derived pattern does not compile, skipping",
			logging.String("pattern", pattern),
			logging.Err(err))
		return nil
	}
	template, ok := deriveTemplate(c, re.NumSubexp())
	if !ok {
		d.logger.Debug("Correction carries no usable template, skipping",
			logging.String("correction_id", c.ID.String()))
		return nil
	}

	existing, err := d.rules.FindByPattern(ctx, c.Field, c.Category, pattern)
	if err == nil {
		// Same span corrected the same way again: reinforce.
		if err := d.rules.RecordOutcome(ctx, existing.ID, true); err != nil {
			return err
		}
		d.logger.Debug("Existing learned rule reinforced",
			logging.String("rule_id", existing.ID.String()))
		return nil
	}
	if !errors.IsCode(err, errors.ErrCodeRuleNotFound) {
		return err
	}

	now := time.Now().UTC()
	rule := &types.LearnedRule{
		ID:          common.NewID(),
		Field:       c.Field,
		Category:    c.Category,
		Pattern:     pattern,
		Template:    template,
		UsageCount:  1,
		SuccessRate: 1,
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.rules.Save(ctx, rule); err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			// Lost a race with another worker; the pattern exists now.
			return nil
		}
		return err
	}
	if d.metrics != nil {
		d.metrics.RulesDistilledTotal.WithLabelValues(string(c.Field)).Inc()
	}
	d.logger.Info("Learned rule distilled",
		logging.String("rule_id", rule.ID.String()),
		logging.String("field", string(c.Field)),
		logging.String("category", string(c.Category)),
		logging.String("pattern", pattern))
	return nil
}

// RunCycle rebuilds the rule bundle and flushes the result cache, guarded by
// the distill lock. Returns without error when another worker holds the lock.
func (d *Distiller) RunCycle(ctx context.Context) error {
	release, acquired, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		d.logger.Debug("Distillation cycle already running elsewhere, skipping")
		return nil
	}
	defer release()

	start := time.Now()
	d.refresher.Refresh(ctx)
	if d.flusher != nil {
		d.flusher.Flush(ctx)
	}
	if d.metrics != nil {
		d.metrics.DistillCycleDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	}
	return nil
}

// Run executes RunCycle on the given interval until the context ends. An
// immediate first cycle warms the bundle before the consumer starts.
func (d *Distiller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if err := d.RunCycle(ctx); err != nil {
		d.logger.Error("Distillation cycle failed", logging.Err(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.RunCycle(ctx); err != nil {
				d.logger.Error("Distillation cycle failed", logging.Err(err))
			}
		}
	}
}

func (d *Distiller) acquire(ctx context.Context) (release func(), acquired bool, err error) {
	if d.locks == nil {
		return func() {}, true, nil
	}
	mutex := d.locks.NewMutex(distillLockName)
	ok, err := mutex.TryLock(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		if err := mutex.Unlock(context.WithoutCancel(ctx)); err != nil {
			d.logger.Warn("Distill lock release failed", logging.Err(err))
		}
	}, true, nil
}

// digitRun matches integer or decimal literals inside an evidence span.
var digitRun = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// DerivePattern generalizes a reviewer-marked evidence span into a reusable
// regular expression: the literal text is escaped and every numeric literal
// becomes a capture group, so the rule replays on clauses that differ only in
// their numbers. The first group feeds the template's ValueGroup.
func DerivePattern(span string) string {
	span = types.NormalizePattern(span)
	if span == "" {
		return ""
	}
	quoted := regexp.QuoteMeta(span)
	return digitRun.ReplaceAllString(quoted, `([0-9]+(?:\.[0-9]+)?)`)
}

// deriveTemplate picks the extraction template for a distilled rule: the
// reviewer-supplied one when present, otherwise inferred from the corrected
// result's wire shape.
func deriveTemplate(c *types.Correction, groups int) (types.ExtractionTemplate, bool) {
	if c.Template != nil {
		return *c.Template, true
	}
	if len(c.CorrectedResult) == 0 {
		return types.ExtractionTemplate{}, false
	}
	var probe struct {
		Type         string `json:"type"`
		IsGrouped    bool   `json:"isGrouped"`
		IsRepeatable bool   `json:"isRepeatable"`
		IsWaived     bool   `json:"isWaived"`
		HasInterval  bool   `json:"hasInterval"`
		HasWaiting   bool   `json:"hasWaiting"`
	}
	if err := json.Unmarshal(c.CorrectedResult, &probe); err != nil || probe.Type == "" {
		return types.ExtractionTemplate{}, false
	}
	template := types.ExtractionTemplate{
		ResultType: probe.Type,
		BoolValue:  probe.IsGrouped || probe.IsRepeatable || probe.IsWaived || probe.HasInterval || probe.HasWaiting,
	}
	if groups > 0 {
		template.ValueGroup = 1
	}
	return template, true
}
