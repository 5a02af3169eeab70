package clause_engine

import (
	"regexp"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// Interval period and waiting period rules
//
// Both fields normalize durations to days: years by 365, months by 30.
// ─────────────────────────────────────────────────────────────────────────────

var (
	intervalNoneRe = regexp.MustCompile(
		`(?:无|没有|不受)(?:给付)?(?:间隔|间隔期)(?:限制)?`)

	intervalNRe = regexp.MustCompile(
		`间隔(?:期)?(?:为|须达|不少于|应达到)?(` + numCls + `)(个月|月|年|日|天)`)

	intervalBetweenRe = regexp.MustCompile(
		`(?:两次|前后两次|相邻两次)[^，。；]{0,15}?(?:给付|赔付|确诊)[^，。；]{0,15}?(?:间隔|相隔)[^，。；]{0,10}?(` + numCls + `)(个月|月|年|日|天)`)

	waitingNoneRe = regexp.MustCompile(
		`(?:无|没有|不设)等待期`)

	waitingNRe = regexp.MustCompile(
		`等待期(?:为|是)?(` + numCls + `)(个月|月|年|日|天)`)

	waitingEffectiveRe = regexp.MustCompile(
		`(?:本合同|合同)?(?:生效|复效)(?:之)?日起(` + numCls + `)(个月|月|年|日|天)(?:内|后)`)
)

func intervalSentinel() Result {
	return &types.IntervalPeriodResult{FieldCore: types.SentinelCore()}
}

func waitingSentinel() Result {
	return &types.WaitingPeriodResult{FieldCore: types.SentinelCore()}
}

// NewIntervalPeriodRuleSet builds the interval-period rule set.
func NewIntervalPeriodRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:    types.FieldIntervalPeriod,
		Category: cat,
		Sentinel: intervalSentinel,
		Rules: []Rule{
			{Name: "interval_none", Pattern: intervalNoneRe, Handler: intervalNoneHandler},
			{Name: "interval_duration", Pattern: intervalNRe, Handler: intervalDurationHandler},
			{Name: "interval_between_payouts", Pattern: intervalBetweenRe, Handler: intervalBetweenHandler},
		},
	}
}

// NewWaitingPeriodRuleSet builds the waiting-period rule set.
func NewWaitingPeriodRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:    types.FieldWaitingPeriod,
		Category: cat,
		Sentinel: waitingSentinel,
		Rules: []Rule{
			{Name: "waiting_duration", Pattern: waitingNRe, Handler: waitingDurationHandler},
			{Name: "waiting_none", Pattern: waitingNoneRe, Handler: waitingNoneHandler},
			{Name: "waiting_from_effective", Pattern: waitingEffectiveRe, Handler: waitingEffectiveHandler},
		},
	}
}

func intervalNoneHandler(m Match) Result {
	return &types.IntervalPeriodResult{
		FieldCore: types.FieldCore{
			Type:          "interval",
			Confidence:    0.97,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		HasInterval: false,
	}
}

func intervalDuration(m Match, conf float64) Result {
	n, ok := ParseCount(m.Group(1))
	if !ok {
		conf = degrade(conf)
	}
	return &types.IntervalPeriodResult{
		FieldCore: types.FieldCore{
			Type:          "interval",
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		HasInterval: true,
		Days:        PeriodToDays(n, m.Group(2)),
	}
}

func intervalDurationHandler(m Match) Result { return intervalDuration(m, 0.95) }
func intervalBetweenHandler(m Match) Result  { return intervalDuration(m, 0.93) }

func waitingNoneHandler(m Match) Result {
	return &types.WaitingPeriodResult{
		FieldCore: types.FieldCore{
			Type:          "waiting",
			Confidence:    0.95,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		HasWaiting: false,
	}
}

func waitingDuration(m Match, conf float64) Result {
	n, ok := ParseCount(m.Group(1))
	if !ok {
		conf = degrade(conf)
	}
	return &types.WaitingPeriodResult{
		FieldCore: types.FieldCore{
			Type:          "waiting",
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		HasWaiting: true,
		Days:       PeriodToDays(n, m.Group(2)),
	}
}

func waitingDurationHandler(m Match) Result  { return waitingDuration(m, 0.96) }
func waitingEffectiveHandler(m Match) Result { return waitingDuration(m, 0.90) }
