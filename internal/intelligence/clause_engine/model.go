// Package clause_engine implements the rule-based extraction engine that turns
// free-form Chinese insurance-policy clause text into a structured description
// of a coverage's payout terms.
//
// The engine is synchronous and stateless per call: rule sets are immutable
// once built, every handler is a pure function from a regex match to a typed
// field result, and conflict resolution between overlapping interpretations is
// confined to the RuleEngine's selection policy.  All patterns are Go RE2,
// which rules out catastrophic backtracking by construction.
package clause_engine

import (
	"regexp"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// Result — the common face of every typed field result
// ─────────────────────────────────────────────────────────────────────────────

// Result is the engine-facing view of a field result.  The concrete values
// are the tagged variant types of pkg/types/clause (PayoutAmountResult,
// PayoutCountResult, ...), all of which embed clause.FieldCore.
type Result interface {
	// Kind returns the variant tag ("tiered", "single", "unknown", ...).
	Kind() string
	// Score returns the hand-calibrated confidence in [0,1].
	Score() float64
	// Spans returns the literal evidence span(s) backing the result.
	Spans() []string
}

// ─────────────────────────────────────────────────────────────────────────────
// Match — what a handler sees
// ─────────────────────────────────────────────────────────────────────────────

// Match carries one regex match against the clause.  Start/End are byte
// offsets into Clause, as produced by regexp; the span extractor converts to
// rune positions internally.
type Match struct {
	Clause string
	Start  int
	End    int
	// Index is the raw submatch index slice (pairs of byte offsets, -1 for
	// unmatched groups), as returned by FindStringSubmatchIndex.
	Index []int
}

// Group returns the text of the i-th capture group (0 = whole match).
// Unmatched groups yield "".
func (m Match) Group(i int) string {
	lo, hi := 2*i, 2*i+1
	if hi >= len(m.Index) || m.Index[lo] < 0 || m.Index[hi] < 0 {
		return ""
	}
	return m.Clause[m.Index[lo]:m.Index[hi]]
}

// Text returns the whole matched text.
func (m Match) Text() string {
	return m.Clause[m.Start:m.End]
}

// Handler converts a match into a typed field result.  Handlers are pure and
// deterministic; returning nil means "this match carries no information",
// which removes the rule from the candidate set for this clause.
type Handler func(m Match) Result

// ─────────────────────────────────────────────────────────────────────────────
// Rule and RuleSet
// ─────────────────────────────────────────────────────────────────────────────

// Rule is one (pattern, handler) pair of a field rule set.  Confidence is not
// a Rule member: each handler stamps it on the result it builds, which lets a
// single rule grade its confidence by what it actually captured.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Handler Handler
	// Learned marks rules merged in by the LearnedRuleAdapter.  Learned rules
	// always follow hand-authored rules in Rules, so the engine's first-rule
	// tie-break keeps hand-authored rules ahead at equal confidence.
	Learned bool
}

// RuleSet is the ordered rule list for one field × category.  Rule-set order
// is a meaningful, preserved tie-break: at equal confidence the earlier rule
// wins.  A RuleSet is immutable after construction; the LearnedRuleAdapter
// merges by copy, never in place.
type RuleSet struct {
	Field    types.Field
	Category types.CoverageCategory

	Rules []Rule

	// Sentinel builds this field's typed "no information" result.
	Sentinel func() Result

	// SkipLeadingPaidPremium enables the payout-amount positional policy:
	// clauses commonly state a waiting-window premium refund before the
	// substantive payout, so a leading non-tiered paid_premium candidate is
	// passed over when any other candidate exists.  Carried as a per-set flag
	// rather than engine behaviour: it is a clause-authoring convention, not
	// a structural law.
	SkipLeadingPaidPremium bool
}

// merged returns a copy of rs with extra rules appended.  The receiver is
// never mutated.
func (rs *RuleSet) merged(extra []Rule) *RuleSet {
	if len(extra) == 0 {
		return rs
	}
	out := &RuleSet{
		Field:                  rs.Field,
		Category:               rs.Category,
		Sentinel:               rs.Sentinel,
		SkipLeadingPaidPremium: rs.SkipLeadingPaidPremium,
	}
	out.Rules = make([]Rule, 0, len(rs.Rules)+len(extra))
	out.Rules = append(out.Rules, rs.Rules...)
	out.Rules = append(out.Rules, extra...)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared regex fragments
// ─────────────────────────────────────────────────────────────────────────────

// numCls matches an Arabic (half- or full-width) or Chinese numeral run.
const numCls = `[0-9０-９零〇一二两三四五六七八九十百]+`

// decCls additionally allows a decimal fraction, for percentages and amounts.
const decCls = numCls + `(?:\.[0-9]+)?`

// sumBase matches the supported percentage bases.
const sumBase = `(基本保险金额|保险金额|累计已交保险费|已交保险费|所交保险费)`

// degrade lowers a confidence after a malformed numeric capture.  The handler
// still returns a result — a bad number is information about the clause, just
// weaker — never an error.
func degrade(confidence float64) float64 {
	c := confidence - 0.10
	if c < 0 {
		return 0
	}
	return c
}
