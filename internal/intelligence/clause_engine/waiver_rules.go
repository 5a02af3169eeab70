package clause_engine

import (
	"regexp"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// Premium waiver rules.  RE2 has no lookaround, so the negated form carries
// its own higher-confidence rule instead of a negative lookbehind on the
// positive one.

var (
	waiverNegatedRe = regexp.MustCompile(
		`不(?:予|能|可)?豁免[^，。；]{0,10}?保险费|无(?:保险费)?豁免`)

	waiverPositiveRe = regexp.MustCompile(
		`豁免[^，。；]{0,15}?保险费`)

	waiverExemptRe = regexp.MustCompile(
		`免(?:交|缴)[^，。；]{0,15}?保险费`)
)

func waiverSentinel() Result {
	return &types.PremiumWaiverResult{FieldCore: types.SentinelCore()}
}

// NewPremiumWaiverRuleSet builds the premium-waiver rule set.
func NewPremiumWaiverRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:    types.FieldPremiumWaiver,
		Category: cat,
		Sentinel: waiverSentinel,
		Rules: []Rule{
			{Name: "waiver_negated", Pattern: waiverNegatedRe, Handler: waiverNegatedHandler},
			{Name: "waiver_positive", Pattern: waiverPositiveRe, Handler: waiverPositiveHandler},
			{Name: "waiver_exempt", Pattern: waiverExemptRe, Handler: waiverExemptHandler},
		},
	}
}

func waiverResult(m Match, waived bool, conf float64) Result {
	return &types.PremiumWaiverResult{
		FieldCore: types.FieldCore{
			Type:          "waiver",
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		IsWaived: waived,
	}
}

func waiverNegatedHandler(m Match) Result  { return waiverResult(m, false, 0.97) }
func waiverPositiveHandler(m Match) Result { return waiverResult(m, true, 0.95) }
func waiverExemptHandler(m Match) Result   { return waiverResult(m, true, 0.93) }
