package clause_engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// stubRuleSource serves a fixed learned-rule list or a fixed error.
type stubRuleSource struct {
	rules []types.LearnedRule
	err   error
}

func (s *stubRuleSource) RulesByField(_ context.Context, _ types.Field, _ types.CoverageCategory) ([]types.LearnedRule, error) {
	return s.rules, s.err
}

func learnedFixedRule(pattern string, successRate float64, enabled bool) types.LearnedRule {
	return types.LearnedRule{
		ID:          common.NewID(),
		Field:       types.FieldPayoutAmount,
		Category:    types.CategoryDisease,
		Pattern:     pattern,
		Template:    types.ExtractionTemplate{ResultType: types.AmountTypeFixed, ValueGroup: 1},
		SuccessRate: successRate,
		Enabled:     enabled,
	}
}

func TestLearnedConfidence_Band(t *testing.T) {
	assert.InDelta(t, 0.40, learnedConfidence(0), 1e-9)
	assert.InDelta(t, 0.79, learnedConfidence(1), 1e-9)
	assert.InDelta(t, 0.595, learnedConfidence(0.5), 1e-9)
	assert.InDelta(t, 0.40, learnedConfidence(-3), 1e-9)
	assert.InDelta(t, 0.79, learnedConfidence(7), 1e-9)
}

func TestLearnedAdapter_CompilesEnabledRules(t *testing.T) {
	src := &stubRuleSource{rules: []types.LearnedRule{
		learnedFixedRule(`特别金额([0-9]+)元`, 1, true),
		learnedFixedRule(`停用规则`, 1, false),
	}}
	a := NewLearnedRuleAdapter(src, nil)

	rules := a.RulesFor(context.Background(), types.FieldPayoutAmount, types.CategoryDisease)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Learned)
}

func TestLearnedAdapter_SkipsBrokenPattern(t *testing.T) {
	src := &stubRuleSource{rules: []types.LearnedRule{
		learnedFixedRule(`([不闭合`, 1, true),
		learnedFixedRule(`正常([0-9]+)元`, 1, true),
	}}
	a := NewLearnedRuleAdapter(src, nil)

	rules := a.RulesFor(context.Background(), types.FieldPayoutAmount, types.CategoryDisease)
	assert.Len(t, rules, 1)
}

func TestLearnedAdapter_SkipsUnfitTemplate(t *testing.T) {
	bad := learnedFixedRule(`金额([0-9]+)元`, 1, true)
	bad.Template.ResultType = types.AmountTypeTiered // not expressible by template
	src := &stubRuleSource{rules: []types.LearnedRule{bad}}
	a := NewLearnedRuleAdapter(src, nil)

	rules := a.RulesFor(context.Background(), types.FieldPayoutAmount, types.CategoryDisease)
	assert.Empty(t, rules)
}

func TestLearnedAdapter_SourceErrorDegradesToNone(t *testing.T) {
	a := NewLearnedRuleAdapter(&stubRuleSource{err: errors.New("store down")}, nil)
	assert.Nil(t, a.RulesFor(context.Background(), types.FieldPayoutAmount, types.CategoryDisease))
}

func TestLearnedRule_FillsGapLeftByHandRules(t *testing.T) {
	src := &stubRuleSource{rules: []types.LearnedRule{
		learnedFixedRule(`特别约定金额([0-9]+)元`, 1, true),
	}}
	a := NewLearnedRuleAdapter(src, nil)
	rs := NewPayoutAmountRuleSet(types.CategoryDisease).
		merged(a.RulesFor(context.Background(), types.FieldPayoutAmount, types.CategoryDisease))

	res := NewEngine(nil).Apply("特别约定金额5000元。", rs)
	out, ok := res.(*types.PayoutAmountResult)
	require.True(t, ok)
	assert.Equal(t, types.AmountTypeFixed, out.Type)
	assert.InDelta(t, 0.79, out.Confidence, 1e-9)
	require.NotNil(t, out.Details)
	assert.InDelta(t, 5000, out.Details.Value, 1e-9)
}

func TestLearnedRule_NeverOutranksHandRule(t *testing.T) {
	lr := types.LearnedRule{
		ID:       common.NewID(),
		Field:    types.FieldPayoutAmount,
		Category: types.CategoryDisease,
		Pattern:  `基本保险金额的([0-9]+)[%％]`,
		Template: types.ExtractionTemplate{
			ResultType: types.AmountTypePercentage,
			ValueGroup: 1,
		},
		SuccessRate: 1,
		Enabled:     true,
	}
	a := NewLearnedRuleAdapter(&stubRuleSource{rules: []types.LearnedRule{lr}}, nil)
	rs := NewPayoutAmountRuleSet(types.CategoryDisease).
		merged(a.RulesFor(context.Background(), types.FieldPayoutAmount, types.CategoryDisease))

	res := NewEngine(nil).Apply("我们按基本保险金额的150%给付。", rs)
	out, ok := res.(*types.PayoutAmountResult)
	require.True(t, ok)
	// The hand-authored percentage rule wins at 0.90; the learned twin tops
	// out at 0.79.
	assert.InDelta(t, 0.90, out.Confidence, 1e-9)
}
