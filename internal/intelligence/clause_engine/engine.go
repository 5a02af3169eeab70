package clause_engine

import (
	"sort"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// RuleEngine
// ─────────────────────────────────────────────────────────────────────────────

// Engine applies a RuleSet to a clause, collects every successful
// interpretation, and resolves one winner.  A clause often satisfies multiple
// rules (e.g. a tiered-percentage pattern and a generic single-percentage
// pattern both match); the engine never stops at the first hit.
type Engine struct {
	logger logging.Logger
}

// NewEngine constructs an Engine.  A nil logger falls back to the nop logger.
func NewEngine(logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{logger: logger.Named("rule_engine")}
}

// candidate is one successful (rule, result, matchPosition) triple.
type candidate struct {
	ruleIdx int
	rule    *Rule
	result  Result
	pos     int // byte offset of the match start
}

// Apply runs every rule of rs against clauseText and resolves one winner.
//
// Selection policy:
//  1. Zero matches resolves to the rule set's sentinel — a normal, not
//     exceptional, outcome.
//  2. When SkipLeadingPaidPremium is set (payout amount): candidates are
//     ordered by match start; if the earliest is a non-tiered paid_premium
//     result it is passed over, and the highest-confidence candidate among
//     the remainder wins, falling back to the skipped one if nothing else
//     qualifies.
//  3. Otherwise the strictly highest-confidence candidate wins; ties keep
//     the first rule evaluated.
func (e *Engine) Apply(clauseText string, rs *RuleSet) Result {
	if rs == nil || clauseText == "" {
		if rs != nil {
			return rs.Sentinel()
		}
		return nil
	}

	cands := e.collect(clauseText, rs)
	if len(cands) == 0 {
		return rs.Sentinel()
	}

	if rs.SkipLeadingPaidPremium {
		return pickAmount(cands)
	}
	return pickHighest(cands).result
}

// collect gathers the first match of every rule, invoking its handler.
func (e *Engine) collect(clauseText string, rs *RuleSet) []candidate {
	var cands []candidate
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		idx := rule.Pattern.FindStringSubmatchIndex(clauseText)
		if idx == nil {
			continue
		}
		m := Match{Clause: clauseText, Start: idx[0], End: idx[1], Index: idx}
		res := rule.Handler(m)
		if res == nil {
			continue
		}
		cands = append(cands, candidate{ruleIdx: i, rule: rule, result: res, pos: idx[0]})
	}
	return cands
}

// pickHighest returns the strictly highest-confidence candidate; at equal
// confidence the earlier rule wins, so rule-set order stays meaningful.
func pickHighest(cands []candidate) candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.result.Score() > best.result.Score() {
			best = c
		}
	}
	return best
}

// pickAmount implements the payout-amount positional policy.  Clauses
// commonly state a waiting-window premium refund before the substantive
// payout; a leading non-tiered paid_premium interpretation therefore yields
// to any later candidate, but remains the answer of last resort.
func pickAmount(cands []candidate) Result {
	ordered := make([]candidate, len(cands))
	copy(ordered, cands)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].pos < ordered[j].pos })

	first := ordered[0]
	if first.result.Kind() != types.AmountTypePaidPremium {
		return pickHighest(cands).result
	}

	rest := make([]candidate, 0, len(cands)-1)
	for _, c := range cands {
		if c.ruleIdx != first.ruleIdx {
			rest = append(rest, c)
		}
	}
	if len(rest) == 0 {
		return first.result
	}
	return pickHighest(rest).result
}

// CollectAll runs every rule against every match position and returns all
// results in match order.  Used by the conditions field, where the output is
// the full list of qualifying conditions rather than a single winner.
func (e *Engine) CollectAll(clauseText string, rs *RuleSet) []Result {
	if rs == nil || clauseText == "" {
		return nil
	}
	type hit struct {
		pos int
		res Result
	}
	var hits []hit
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		for _, idx := range rule.Pattern.FindAllStringSubmatchIndex(clauseText, -1) {
			m := Match{Clause: clauseText, Start: idx[0], End: idx[1], Index: idx}
			res := rule.Handler(m)
			if res == nil {
				continue
			}
			hits = append(hits, hit{pos: idx[0], res: res})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.res)
	}
	return out
}
