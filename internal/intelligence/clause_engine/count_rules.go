package clause_engine

import (
	"regexp"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// Payout count rules
//
// How many times the benefit can be claimed.  A ceiling of one collapses to
// the single type with termination after the payout.
// ─────────────────────────────────────────────────────────────────────────────

var (
	countLimitRe = regexp.MustCompile(
		`(?:给付|赔付|累计给付)?以(` + numCls + `)次为限`)

	countOnceRe = regexp.MustCompile(
		`(?:仅|只)(?:给付|赔付|能申请|可给付)(?:一|1|１)次`)

	countMostRe = regexp.MustCompile(
		`最多(?:给付|赔付|可给付|累计给付)?(` + numCls + `)次`)
)

func countSentinel() Result {
	return &types.PayoutCountResult{FieldCore: types.SentinelCore()}
}

// NewPayoutCountRuleSet builds the payout-count rule set.
func NewPayoutCountRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:    types.FieldPayoutCount,
		Category: cat,
		Sentinel: countSentinel,
		Rules: []Rule{
			{Name: "count_limit", Pattern: countLimitRe, Handler: countLimitHandler},
			{Name: "count_once", Pattern: countOnceRe, Handler: countOnceHandler},
			{Name: "count_most", Pattern: countMostRe, Handler: countMostHandler},
		},
	}
}

// countResult folds a ceiling of n into the result shape.  n == 1 means a
// single payout and the contract terminates once it is made.
func countResult(m Match, n int, conf float64) Result {
	r := &types.PayoutCountResult{
		FieldCore: types.FieldCore{
			Type:          types.CountTypeMultiple,
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, true)},
		},
		MaxCount: n,
	}
	if n == 1 {
		r.Type = types.CountTypeSingle
		r.TerminateAfterPayout = true
	}
	return r
}

func countLimitHandler(m Match) Result {
	conf := 0.99
	n, ok := ParseCount(m.Group(1))
	if !ok {
		conf = degrade(conf)
		n = 0
	}
	return countResult(m, n, conf)
}

func countOnceHandler(m Match) Result {
	return countResult(m, 1, 0.98)
}

func countMostHandler(m Match) Result {
	conf := 0.97
	n, ok := ParseCount(m.Group(1))
	if !ok {
		conf = degrade(conf)
		n = 0
	}
	return countResult(m, n, conf)
}
