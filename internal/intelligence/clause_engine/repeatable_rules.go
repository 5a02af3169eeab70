package clause_engine

import (
	"regexp"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// Repeatable payout rules: whether the same disease (or group) can trigger
// the benefit more than once.  Per-disease-once language outranks an
// aggregate multi-payout ceiling, so a clause carrying both resolves to
// not repeatable.

var (
	perDiseaseOnceRe = regexp.MustCompile(
		`每(?:种|项|组)(?:重大)?疾病(?:仅|只)(?:限)?(?:给付|赔付)(?:一|1|１)次`)

	repeatLimitRe = regexp.MustCompile(
		`以(` + numCls + `)次为限`)

	repeatableRe = regexp.MustCompile(
		`(?:可|能够)(?:多次|再次|重复)(?:给付|赔付|申请)`)
)

func repeatableSentinel() Result {
	return &types.RepeatablePayoutResult{FieldCore: types.SentinelCore()}
}

// NewRepeatablePayoutRuleSet builds the repeatable-payout rule set.
func NewRepeatablePayoutRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:    types.FieldRepeatablePayout,
		Category: cat,
		Sentinel: repeatableSentinel,
		Rules: []Rule{
			{Name: "repeatable_per_disease_once", Pattern: perDiseaseOnceRe, Handler: perDiseaseOnceHandler},
			{Name: "repeatable_count_limit", Pattern: repeatLimitRe, Handler: repeatLimitHandler},
			{Name: "repeatable_explicit", Pattern: repeatableRe, Handler: repeatableHandler},
		},
	}
}

func repeatableResult(m Match, repeatable bool, conf float64) Result {
	return &types.RepeatablePayoutResult{
		FieldCore: types.FieldCore{
			Type:          "repeatable",
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, true)},
		},
		IsRepeatable: repeatable,
	}
}

func perDiseaseOnceHandler(m Match) Result {
	return repeatableResult(m, false, 0.99)
}

// repeatLimitHandler infers repeatability from the aggregate ceiling: a
// ceiling above one means the benefit can be claimed again, a ceiling of one
// means it cannot.
func repeatLimitHandler(m Match) Result {
	conf := 0.95
	n, ok := ParseCount(m.Group(1))
	if !ok {
		return repeatableResult(m, false, degrade(conf))
	}
	return repeatableResult(m, n > 1, conf)
}

func repeatableHandler(m Match) Result {
	return repeatableResult(m, true, 0.93)
}
