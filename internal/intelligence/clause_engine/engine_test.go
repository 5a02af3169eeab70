package clause_engine

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// fakeResult is a minimal Result for selection-policy tests.
type fakeResult struct {
	kind string
	conf float64
	tag  string
}

func (f *fakeResult) Kind() string    { return f.kind }
func (f *fakeResult) Score() float64  { return f.conf }
func (f *fakeResult) Spans() []string { return []string{f.tag} }

func staticRule(name, pattern, kind string, conf float64) Rule {
	return Rule{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Handler: func(m Match) Result {
			return &fakeResult{kind: kind, conf: conf, tag: name}
		},
	}
}

func fakeSentinel() Result {
	return &fakeResult{kind: types.TypeUnknown, conf: 0, tag: "sentinel"}
}

func TestApply_NoMatchReturnsSentinel(t *testing.T) {
	e := NewEngine(nil)
	rs := &RuleSet{
		Field:    types.FieldPayoutCount,
		Sentinel: fakeSentinel,
		Rules:    []Rule{staticRule("a", "zzz", "x", 0.9)},
	}

	res := e.Apply("条款文本", rs)
	require.NotNil(t, res)
	assert.Equal(t, "sentinel", res.Spans()[0])
	assert.Zero(t, res.Score())
}

func TestApply_EmptyClauseReturnsSentinel(t *testing.T) {
	e := NewEngine(nil)
	rs := &RuleSet{Sentinel: fakeSentinel}
	res := e.Apply("", rs)
	assert.Equal(t, "sentinel", res.Spans()[0])
}

func TestApply_HighestConfidenceWins(t *testing.T) {
	e := NewEngine(nil)
	rs := &RuleSet{
		Sentinel: fakeSentinel,
		Rules: []Rule{
			staticRule("low", "甲", "x", 0.80),
			staticRule("high", "乙", "x", 0.95),
		},
	}
	res := e.Apply("甲乙", rs)
	assert.Equal(t, "high", res.Spans()[0])
}

func TestApply_TieKeepsEarlierRule(t *testing.T) {
	e := NewEngine(nil)
	rs := &RuleSet{
		Sentinel: fakeSentinel,
		Rules: []Rule{
			staticRule("first", "甲", "x", 0.90),
			staticRule("second", "乙", "x", 0.90),
		},
	}
	res := e.Apply("乙甲", rs) // match position does not break scalar ties
	assert.Equal(t, "first", res.Spans()[0])
}

func TestApply_NilHandlerResultIsNotACandidate(t *testing.T) {
	e := NewEngine(nil)
	withdraw := Rule{
		Name:    "withdraw",
		Pattern: regexp.MustCompile("甲"),
		Handler: func(m Match) Result { return nil },
	}
	rs := &RuleSet{Sentinel: fakeSentinel, Rules: []Rule{withdraw}}
	res := e.Apply("甲", rs)
	assert.Equal(t, "sentinel", res.Spans()[0])
}

func TestApply_SkipLeadingPaidPremium(t *testing.T) {
	e := NewEngine(nil)
	rs := &RuleSet{
		Sentinel:               fakeSentinel,
		SkipLeadingPaidPremium: true,
		Rules: []Rule{
			staticRule("refund", "返还保险费", types.AmountTypePaidPremium, 0.88),
			staticRule("pct", "按50%给付", types.AmountTypePercentage, 0.85),
		},
	}

	// The refund comes first in the clause; it yields to the later
	// percentage even though its confidence is higher.
	res := e.Apply("先返还保险费，其后按50%给付。", rs)
	assert.Equal(t, "pct", res.Spans()[0])

	// With nothing after it, the refund is the answer of last resort.
	res = e.Apply("仅返还保险费。", rs)
	assert.Equal(t, "refund", res.Spans()[0])
}

func TestApply_SkipPolicyLeavesNonPaidPremiumLeaderAlone(t *testing.T) {
	e := NewEngine(nil)
	rs := &RuleSet{
		Sentinel:               fakeSentinel,
		SkipLeadingPaidPremium: true,
		Rules: []Rule{
			staticRule("tiered", "前3个保单年度", types.AmountTypeTiered, 0.98),
			staticRule("pct", "按50%给付", types.AmountTypePercentage, 0.85),
		},
	}
	res := e.Apply("前3个保单年度按50%给付。", rs)
	assert.Equal(t, "tiered", res.Spans()[0])
}

func TestCollectAll_ReturnsAllMatchesInOrder(t *testing.T) {
	e := NewEngine(nil)
	rs := &RuleSet{
		Sentinel: fakeSentinel,
		Rules: []Rule{
			staticRule("b", "乙", "x", 0.5),
			staticRule("a", "甲", "x", 0.5),
		},
	}
	out := e.CollectAll("甲乙甲", rs)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Spans()[0])
	assert.Equal(t, "b", out[1].Spans()[0])
	assert.Equal(t, "a", out[2].Spans()[0])
}

func TestCollectAll_EmptyInputs(t *testing.T) {
	e := NewEngine(nil)
	assert.Nil(t, e.CollectAll("", &RuleSet{}))
	assert.Nil(t, e.CollectAll("x", nil))
}
