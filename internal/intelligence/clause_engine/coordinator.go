package clause_engine

import (
	"context"
	"sync/atomic"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	errs "github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// Coordinator
//
// The coordinator owns the per-category rule bundles and runs one clause
// through every field applicable to its coverage category.  Bundles are
// immutable once published; a learned-rule refresh builds a whole new bundle
// and swaps it in atomically, so in-flight parses keep the bundle they
// started with.
// ─────────────────────────────────────────────────────────────────────────────

// fieldApplicability maps each coverage category to the fields its clauses
// can meaningfully carry.  Conditions apply everywhere.
var fieldApplicability = map[types.CoverageCategory][]types.Field{
	types.CategoryDisease: {
		types.FieldPayoutAmount, types.FieldPayoutCount, types.FieldIntervalPeriod,
		types.FieldWaitingPeriod, types.FieldGrouping, types.FieldRepeatablePayout,
		types.FieldPremiumWaiver, types.FieldConditions,
	},
	types.CategoryDeath: {
		types.FieldPayoutAmount, types.FieldWaitingPeriod, types.FieldConditions,
	},
	types.CategoryAccident: {
		types.FieldPayoutAmount, types.FieldWaitingPeriod, types.FieldConditions,
	},
	types.CategoryAnnuity: {
		types.FieldPayoutAmount, types.FieldIntervalPeriod, types.FieldConditions,
	},
	types.CategorySurvival: {
		types.FieldPayoutAmount, types.FieldIntervalPeriod, types.FieldWaitingPeriod,
		types.FieldConditions,
	},
}

// FieldsFor returns the fields applicable to a category.
func FieldsFor(cat types.CoverageCategory) []types.Field {
	return fieldApplicability[cat]
}

// ruleBundle is one immutable generation of rule sets.
type ruleBundle struct {
	sets map[types.CoverageCategory]map[types.Field]*RuleSet
}

func (b *ruleBundle) get(cat types.CoverageCategory, f types.Field) *RuleSet {
	if m, ok := b.sets[cat]; ok {
		return m[f]
	}
	return nil
}

// newRuleSet builds the hand-authored rule set for one field and category.
func newRuleSet(f types.Field, cat types.CoverageCategory) *RuleSet {
	switch f {
	case types.FieldPayoutAmount:
		return NewPayoutAmountRuleSet(cat)
	case types.FieldPayoutCount:
		return NewPayoutCountRuleSet(cat)
	case types.FieldIntervalPeriod:
		return NewIntervalPeriodRuleSet(cat)
	case types.FieldWaitingPeriod:
		return NewWaitingPeriodRuleSet(cat)
	case types.FieldGrouping:
		return NewGroupingRuleSet(cat)
	case types.FieldRepeatablePayout:
		return NewRepeatablePayoutRuleSet(cat)
	case types.FieldPremiumWaiver:
		return NewPremiumWaiverRuleSet(cat)
	case types.FieldConditions:
		return NewConditionRuleSet(cat)
	}
	return nil
}

// baseBundle builds the hand-authored bundle for every category and field.
func baseBundle() *ruleBundle {
	sets := make(map[types.CoverageCategory]map[types.Field]*RuleSet, len(types.AllCategories))
	for _, cat := range types.AllCategories {
		byField := make(map[types.Field]*RuleSet)
		for _, f := range fieldApplicability[cat] {
			byField[f] = newRuleSet(f, cat)
		}
		sets[cat] = byField
	}
	return &ruleBundle{sets: sets}
}

// Coordinator runs clause parses against the current rule bundle.
type Coordinator struct {
	engine  *Engine
	adapter *LearnedRuleAdapter
	logger  logging.Logger
	bundle  atomic.Pointer[ruleBundle]
}

// NewCoordinator builds a coordinator with the hand-authored bundle active.
// adapter may be nil; learned rules are then never merged.
func NewCoordinator(adapter *LearnedRuleAdapter, logger logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Coordinator{
		engine:  NewEngine(logger),
		adapter: adapter,
		logger:  logger.Named("coordinator"),
	}
	c.bundle.Store(baseBundle())
	return c
}

// Refresh rebuilds the rule bundle, merging current learned rules after the
// hand-authored rules of each set, and publishes it atomically.  A refresh
// never disturbs parses already running on the previous bundle.
func (c *Coordinator) Refresh(ctx context.Context) {
	next := baseBundle()
	if c.adapter != nil {
		merged := 0
		for cat, byField := range next.sets {
			for f, rs := range byField {
				if f == types.FieldConditions {
					continue
				}
				extra := c.adapter.RulesFor(ctx, f, cat)
				if len(extra) > 0 {
					byField[f] = rs.merged(extra)
					merged += len(extra)
				}
			}
		}
		c.logger.Info("rule bundle refreshed", logging.Int("learned_rules", merged))
	}
	c.bundle.Store(next)
}

// Parse runs one clause through every field applicable to its category.
// Absent information is never an error: fields the clause does not speak to
// come back as sentinels, and a field whose rules panic degrades to its
// sentinel too.  The only errors are an empty clause and an unknown category.
func (c *Coordinator) Parse(ctx context.Context, clauseText string, category types.CoverageCategory) (*types.ParseResult, error) {
	if clauseText == "" {
		return nil, errs.New(errs.ErrCodeClauseEmpty, "clause text must not be empty")
	}
	if !category.Valid() {
		return nil, errs.New(errs.ErrCodeCategoryInvalid, "unknown coverage category").
			WithDetail(string(category))
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, errs.ErrCodeTimeout, "parse cancelled")
	}

	bundle := c.bundle.Load()
	result := &types.ParseResult{}

	var confSum float64
	var confN int
	for _, f := range fieldApplicability[category] {
		rs := bundle.get(category, f)
		if rs == nil {
			continue
		}
		if f == types.FieldConditions {
			result.Conditions = c.runConditions(clauseText, rs)
			continue
		}
		res := c.runField(clauseText, f, rs)
		confSum += res.Score()
		confN++
		c.assign(result, f, res)
	}
	if confN > 0 {
		result.OverallConfidence = confSum / float64(confN)
	}
	return result, nil
}

// runField applies one rule set with panic containment.  A panicking handler
// costs that field its result, not the whole parse.
func (c *Coordinator) runField(clauseText string, f types.Field, rs *RuleSet) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("field extraction panicked, degrading to sentinel",
				logging.String("field", string(f)),
				logging.Any("panic", r))
			res = rs.Sentinel()
		}
	}()
	return c.engine.Apply(clauseText, rs)
}

func (c *Coordinator) runConditions(clauseText string, rs *RuleSet) (conds []types.Condition) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("condition extraction panicked, returning none",
				logging.Any("panic", r))
			conds = nil
		}
	}()
	return c.engine.Conditions(clauseText, rs)
}

// assign places a field result into its slot on the aggregate.  A result of
// an unexpected concrete type falls back to the sentinel so the aggregate
// shape stays total.
func (c *Coordinator) assign(result *types.ParseResult, f types.Field, res Result) {
	switch f {
	case types.FieldPayoutAmount:
		if v, ok := res.(*types.PayoutAmountResult); ok {
			result.PayoutAmount = v
		} else {
			result.PayoutAmount = &types.PayoutAmountResult{FieldCore: types.SentinelCore()}
		}
	case types.FieldPayoutCount:
		if v, ok := res.(*types.PayoutCountResult); ok {
			result.PayoutCount = v
		} else {
			result.PayoutCount = &types.PayoutCountResult{FieldCore: types.SentinelCore()}
		}
	case types.FieldIntervalPeriod:
		if v, ok := res.(*types.IntervalPeriodResult); ok {
			result.IntervalPeriod = v
		} else {
			result.IntervalPeriod = &types.IntervalPeriodResult{FieldCore: types.SentinelCore()}
		}
	case types.FieldWaitingPeriod:
		if v, ok := res.(*types.WaitingPeriodResult); ok {
			result.WaitingPeriod = v
		} else {
			result.WaitingPeriod = &types.WaitingPeriodResult{FieldCore: types.SentinelCore()}
		}
	case types.FieldGrouping:
		if v, ok := res.(*types.GroupingResult); ok {
			result.Grouping = v
		} else {
			result.Grouping = &types.GroupingResult{FieldCore: types.SentinelCore()}
		}
	case types.FieldRepeatablePayout:
		if v, ok := res.(*types.RepeatablePayoutResult); ok {
			result.RepeatablePayout = v
		} else {
			result.RepeatablePayout = &types.RepeatablePayoutResult{FieldCore: types.SentinelCore()}
		}
	case types.FieldPremiumWaiver:
		if v, ok := res.(*types.PremiumWaiverResult); ok {
			result.PremiumWaiver = v
		} else {
			result.PremiumWaiver = &types.PremiumWaiverResult{FieldCore: types.SentinelCore()}
		}
	}
}
