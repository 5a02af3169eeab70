package clause_engine

import (
	"regexp"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// Grouping rules: whether covered diseases are partitioned into groups with
// per-group payout limits.

var (
	groupedNRe = regexp.MustCompile(
		`(?:分为|共分|分成)(` + numCls + `)(?:组|类)`)

	ungroupedRe = regexp.MustCompile(
		`不(?:进行)?分组`)

	perGroupRe = regexp.MustCompile(
		`每组(?:疾病)?(?:仅|只)?(?:给付|赔付|限给付)`)
)

func groupingSentinel() Result {
	return &types.GroupingResult{FieldCore: types.SentinelCore()}
}

// NewGroupingRuleSet builds the disease-grouping rule set.
func NewGroupingRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:    types.FieldGrouping,
		Category: cat,
		Sentinel: groupingSentinel,
		Rules: []Rule{
			{Name: "grouping_n_groups", Pattern: groupedNRe, Handler: groupedNHandler},
			{Name: "grouping_none", Pattern: ungroupedRe, Handler: ungroupedHandler},
			{Name: "grouping_per_group", Pattern: perGroupRe, Handler: perGroupHandler},
		},
	}
}

func groupedNHandler(m Match) Result {
	conf := 0.96
	n, ok := ParseCount(m.Group(1))
	if !ok {
		conf = degrade(conf)
		n = 0
	}
	return &types.GroupingResult{
		FieldCore: types.FieldCore{
			Type:          "grouping",
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		IsGrouped:  true,
		GroupCount: n,
	}
}

func ungroupedHandler(m Match) Result {
	return &types.GroupingResult{
		FieldCore: types.FieldCore{
			Type:          "grouping",
			Confidence:    0.95,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		IsGrouped: false,
	}
}

// perGroupHandler sees per-group payout language, which implies grouping even
// when the group count is never stated.
func perGroupHandler(m Match) Result {
	return &types.GroupingResult{
		FieldCore: types.FieldCore{
			Type:          "grouping",
			Confidence:    0.85,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		IsGrouped: true,
	}
}
