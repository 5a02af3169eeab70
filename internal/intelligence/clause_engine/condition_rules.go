package clause_engine

import (
	"regexp"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// Condition rules
//
// Conditions are not winner-takes-all: every matching rule contributes, and
// the collected set is deduplicated by condition type and evidence span.
// ─────────────────────────────────────────────────────────────────────────────

var (
	condDiagnosisRe = regexp.MustCompile(
		`(?:经|由)(?:本公司认可的)?(?:专科)?医院(?:的专科医生)?(?:确诊|初次确诊|诊断确定)|确诊(?:患有|罹患)`)

	condFirstOccurrenceRe = regexp.MustCompile(
		`(?:初次|首次)(?:发生|确诊|罹患|患)`)

	condSurvivalRe = regexp.MustCompile(
		`(?:确诊|手术|赔付)(?:之日)?起(?:生存|存活)(?:满)?(` + numCls + `)?(日|天|个月|月|年)?|生存至`)

	condAgeRe = regexp.MustCompile(
		`(?:年满|未满|达到)(` + numCls + `)周?岁|(` + numCls + `)周?岁(?:前|后|之前|之后|以前|以后)`)

	condWithinTermRe = regexp.MustCompile(
		`(?:在)?(?:本合同)?保险期间(?:内|届满前)|合同有效期内`)
)

// conditionHit is one condition-rule match before deduplication.
type conditionHit struct {
	cond types.Condition
	pos  int
}

func (c *conditionHit) Kind() string    { return string(c.cond.Type) }
func (c *conditionHit) Score() float64  { return c.cond.Confidence }
func (c *conditionHit) Spans() []string { return []string{c.cond.ExtractedText} }

func conditionHandler(ct types.ConditionType, desc string, conf float64) Handler {
	return func(m Match) Result {
		return &conditionHit{
			cond: types.Condition{
				Type:          ct,
				Description:   desc,
				Confidence:    conf,
				ExtractedText: ExtractCompleteSentence(m.Start, m.End, m.Clause, false),
			},
			pos: m.Start,
		}
	}
}

// NewConditionRuleSet builds the condition rule set.  Unlike the scalar
// fields this set is evaluated with CollectAll.
func NewConditionRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:    types.FieldConditions,
		Category: cat,
		Sentinel: func() Result { return nil },
		Rules: []Rule{
			{Name: "condition_first_occurrence", Pattern: condFirstOccurrenceRe,
				Handler: conditionHandler(types.ConditionFirstOccurrence, "初次发生或确诊", 0.92)},
			{Name: "condition_diagnosis", Pattern: condDiagnosisRe,
				Handler: conditionHandler(types.ConditionDiagnosis, "经认可医院确诊", 0.90)},
			{Name: "condition_age", Pattern: condAgeRe,
				Handler: conditionHandler(types.ConditionAge, "年龄要求", 0.90)},
			{Name: "condition_survival", Pattern: condSurvivalRe,
				Handler: conditionHandler(types.ConditionSurvival, "生存要求", 0.88)},
			{Name: "condition_within_term", Pattern: condWithinTermRe,
				Handler: conditionHandler(types.ConditionWithinTerm, "保险期间内", 0.85)},
		},
	}
}

// Conditions runs the condition rule set over a clause and returns the
// deduplicated condition list in order of first appearance.
func (e *Engine) Conditions(clause string, rs *RuleSet) []types.Condition {
	type dedupKey struct {
		ct   types.ConditionType
		text string
	}
	seen := make(map[dedupKey]bool)

	var out []types.Condition
	for _, res := range e.CollectAll(clause, rs) {
		hit, ok := res.(*conditionHit)
		if !ok {
			continue
		}
		k := dedupKey{hit.cond.Type, hit.cond.ExtractedText}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, hit.cond)
	}
	return out
}
