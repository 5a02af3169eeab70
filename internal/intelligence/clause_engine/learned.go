package clause_engine

import (
	"context"
	"regexp"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// Learned rule adapter
//
// Learned rules come from human corrections distilled by the worker.  The
// adapter compiles them into ordinary Rules, appended after the hand-authored
// rules of the same set.  Their confidence is mapped into a band strictly
// below the hand-calibrated one, so a learned rule can only win where no
// hand-authored rule fires at all.
// ─────────────────────────────────────────────────────────────────────────────

const (
	learnedConfFloor = 0.40
	learnedConfSpan  = 0.39 // ceiling 0.79, below every hand-authored rule
)

// RuleSource supplies enabled learned rules for one field and category.
type RuleSource interface {
	RulesByField(ctx context.Context, field types.Field, category types.CoverageCategory) ([]types.LearnedRule, error)
}

// LearnedRuleAdapter compiles stored learned rules into engine rules.
type LearnedRuleAdapter struct {
	source RuleSource
	logger logging.Logger
}

// NewLearnedRuleAdapter wires the adapter to a rule source.
func NewLearnedRuleAdapter(source RuleSource, logger logging.Logger) *LearnedRuleAdapter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LearnedRuleAdapter{source: source, logger: logger.Named("learned_rules")}
}

// learnedConfidence maps a rule's observed success rate into the learned
// band: 0.40 at zero history, 0.79 at a perfect record.
func learnedConfidence(successRate float64) float64 {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return learnedConfFloor + learnedConfSpan*successRate
}

// RulesFor fetches, compiles, and orders the learned rules for one field and
// category.  Rules whose pattern fails to compile or whose template does not
// fit the field are logged and skipped; a source failure degrades to no
// learned rules rather than an error, the hand-authored set stands alone.
func (a *LearnedRuleAdapter) RulesFor(ctx context.Context, field types.Field, category types.CoverageCategory) []Rule {
	if a.source == nil {
		return nil
	}
	stored, err := a.source.RulesByField(ctx, field, category)
	if err != nil {
		a.logger.Warn("learned rule fetch failed, continuing with hand-authored rules only",
			logging.String("field", string(field)),
			logging.String("category", string(category)),
			logging.Err(err))
		return nil
	}

	rules := make([]Rule, 0, len(stored))
	for _, lr := range stored {
		if !lr.Enabled {
			continue
		}
		re, err := regexp.Compile(lr.Pattern)
		if err != nil {
			a.logger.Warn("learned rule pattern does not compile, skipping",
				logging.String("rule_id", lr.ID.String()),
				logging.String("pattern", lr.Pattern),
				logging.Err(err))
			continue
		}
		h := a.compileHandler(field, lr)
		if h == nil {
			a.logger.Warn("learned rule template does not fit field, skipping",
				logging.String("rule_id", lr.ID.String()),
				logging.String("field", string(field)))
			continue
		}
		rules = append(rules, Rule{
			Name:    "learned_" + lr.ID.String(),
			Pattern: re,
			Handler: h,
			Learned: true,
		})
	}
	return rules
}

// compileHandler builds the field-appropriate handler for one learned rule,
// or nil when the template cannot express the field.
func (a *LearnedRuleAdapter) compileHandler(field types.Field, lr types.LearnedRule) Handler {
	conf := learnedConfidence(lr.SuccessRate)
	tpl := lr.Template

	core := func(m Match, typ string) types.FieldCore {
		return types.FieldCore{
			Type:          typ,
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		}
	}
	value := func(m Match) (float64, bool) {
		if tpl.ValueGroup <= 0 {
			return 0, true
		}
		return ParseDecimal(m.Group(tpl.ValueGroup))
	}
	count := func(m Match) (int, bool) {
		if tpl.ValueGroup <= 0 {
			return 0, true
		}
		return ParseCount(m.Group(tpl.ValueGroup))
	}
	days := func(m Match) (int, bool) {
		n, ok := count(m)
		if !ok {
			return 0, false
		}
		unit := "日"
		if tpl.UnitGroup > 0 {
			unit = m.Group(tpl.UnitGroup)
		}
		return PeriodToDays(n, unit), true
	}

	switch field {
	case types.FieldPayoutAmount:
		switch tpl.ResultType {
		case types.AmountTypePercentage, types.AmountTypeFixed, types.AmountTypePaidPremium:
		default:
			return nil
		}
		return func(m Match) Result {
			v, ok := value(m)
			c := core(m, tpl.ResultType)
			if !ok {
				c.Confidence = degrade(c.Confidence)
			}
			var base types.AmountBase
			switch tpl.ResultType {
			case types.AmountTypePercentage:
				base = types.BaseBasicSumInsured
			case types.AmountTypePaidPremium:
				base = types.BasePaidPremium
			}
			return &types.PayoutAmountResult{FieldCore: c, Details: &types.AmountDetails{Value: v, Base: base}}
		}

	case types.FieldPayoutCount:
		return func(m Match) Result {
			n, ok := count(m)
			c := core(m, types.CountTypeMultiple)
			if !ok {
				c.Confidence = degrade(c.Confidence)
			}
			r := &types.PayoutCountResult{FieldCore: c, MaxCount: n}
			if n == 1 {
				r.Type = types.CountTypeSingle
				r.TerminateAfterPayout = true
			}
			return r
		}

	case types.FieldIntervalPeriod:
		return func(m Match) Result {
			d, ok := days(m)
			c := core(m, "interval")
			if !ok {
				c.Confidence = degrade(c.Confidence)
			}
			has := tpl.BoolValue || tpl.ValueGroup > 0
			if !has {
				d = 0
			}
			return &types.IntervalPeriodResult{FieldCore: c, HasInterval: has, Days: d}
		}

	case types.FieldWaitingPeriod:
		return func(m Match) Result {
			d, ok := days(m)
			c := core(m, "waiting")
			if !ok {
				c.Confidence = degrade(c.Confidence)
			}
			has := tpl.BoolValue || tpl.ValueGroup > 0
			if !has {
				d = 0
			}
			return &types.WaitingPeriodResult{FieldCore: c, HasWaiting: has, Days: d}
		}

	case types.FieldGrouping:
		return func(m Match) Result {
			n, ok := count(m)
			c := core(m, "grouping")
			if !ok {
				c.Confidence = degrade(c.Confidence)
			}
			return &types.GroupingResult{FieldCore: c, IsGrouped: tpl.BoolValue, GroupCount: n}
		}

	case types.FieldRepeatablePayout:
		return func(m Match) Result {
			return &types.RepeatablePayoutResult{FieldCore: core(m, "repeatable"), IsRepeatable: tpl.BoolValue}
		}

	case types.FieldPremiumWaiver:
		return func(m Match) Result {
			return &types.PremiumWaiverResult{FieldCore: core(m, "waiver"), IsWaived: tpl.BoolValue}
		}
	}
	return nil
}
