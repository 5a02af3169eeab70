package clause_engine

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

func TestCoordinator_RejectsEmptyClause(t *testing.T) {
	c := NewCoordinator(nil, nil)
	_, err := c.Parse(context.Background(), "", types.CategoryDisease)
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeClauseEmpty, errs.GetCode(err))
}

func TestCoordinator_RejectsUnknownCategory(t *testing.T) {
	c := NewCoordinator(nil, nil)
	_, err := c.Parse(context.Background(), "条款", types.CoverageCategory("pet"))
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeCategoryInvalid, errs.GetCode(err))
}

func TestCoordinator_DiseasePopulatesEveryField(t *testing.T) {
	clause := "被保险人在保险期间内经医院确诊初次发生重大疾病，我们按基本保险金额的150%给付，给付以3次为限，" +
		"两次给付间隔须达1年，等待期为90天，重大疾病分为6组，每种重大疾病仅限给付一次，并豁免后续各期保险费。"
	c := NewCoordinator(nil, nil)

	res, err := c.Parse(context.Background(), clause, types.CategoryDisease)
	require.NoError(t, err)

	require.NotNil(t, res.PayoutAmount)
	assert.Equal(t, types.AmountTypePercentage, res.PayoutAmount.Type)

	require.NotNil(t, res.PayoutCount)
	assert.Equal(t, 3, res.PayoutCount.MaxCount)

	require.NotNil(t, res.IntervalPeriod)
	assert.Equal(t, 365, res.IntervalPeriod.Days)

	require.NotNil(t, res.WaitingPeriod)
	assert.Equal(t, 90, res.WaitingPeriod.Days)

	require.NotNil(t, res.Grouping)
	assert.True(t, res.Grouping.IsGrouped)
	assert.Equal(t, 6, res.Grouping.GroupCount)

	require.NotNil(t, res.RepeatablePayout)
	assert.False(t, res.RepeatablePayout.IsRepeatable)

	require.NotNil(t, res.PremiumWaiver)
	assert.True(t, res.PremiumWaiver.IsWaived)

	assert.NotEmpty(t, res.Conditions)
	assert.Greater(t, res.OverallConfidence, 0.9)
}

func TestCoordinator_CategoryLimitsFields(t *testing.T) {
	clause := "我们按基本保险金额的100%给付身故保险金。"
	c := NewCoordinator(nil, nil)

	res, err := c.Parse(context.Background(), clause, types.CategoryDeath)
	require.NoError(t, err)

	assert.NotNil(t, res.PayoutAmount)
	assert.NotNil(t, res.WaitingPeriod)
	assert.Nil(t, res.PayoutCount)
	assert.Nil(t, res.IntervalPeriod)
	assert.Nil(t, res.Grouping)
	assert.Nil(t, res.RepeatablePayout)
	assert.Nil(t, res.PremiumWaiver)
}

func TestCoordinator_AnnuityFields(t *testing.T) {
	clause := "自约定给付日起，我们每年给付年金，按基本保险金额的10%给付。"
	c := NewCoordinator(nil, nil)

	res, err := c.Parse(context.Background(), clause, types.CategoryAnnuity)
	require.NoError(t, err)

	assert.NotNil(t, res.PayoutAmount)
	assert.NotNil(t, res.IntervalPeriod)
	assert.Nil(t, res.WaitingPeriod)
	assert.Nil(t, res.PayoutCount)
}

func TestCoordinator_OverallConfidenceIsMeanOfScalars(t *testing.T) {
	// Death applies amount and waiting period: 0.90 and sentinel 0.
	clause := "我们按基本保险金额的150%给付身故保险金。"
	c := NewCoordinator(nil, nil)

	res, err := c.Parse(context.Background(), clause, types.CategoryDeath)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, res.OverallConfidence, 1e-9)
}

func TestCoordinator_AbsentInformationIsSentinelNotError(t *testing.T) {
	c := NewCoordinator(nil, nil)
	res, err := c.Parse(context.Background(), "本合同的犹豫期为15天。", types.CategoryDisease)
	require.NoError(t, err)

	require.NotNil(t, res.PayoutAmount)
	assert.True(t, res.PayoutAmount.IsSentinel())
	assert.Zero(t, res.OverallConfidence)
	assert.Empty(t, res.Conditions)
}

func TestCoordinator_CancelledContext(t *testing.T) {
	c := NewCoordinator(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Parse(ctx, "条款", types.CategoryDisease)
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeTimeout, errs.GetCode(err))
}

func TestCoordinator_PanickingRuleDegradesToSentinel(t *testing.T) {
	c := NewCoordinator(nil, nil)
	rs := &RuleSet{
		Field:    types.FieldPayoutCount,
		Sentinel: countSentinel,
		Rules: []Rule{{
			Name:    "explode",
			Pattern: regexp.MustCompile("次"),
			Handler: func(m Match) Result { panic("boom") },
		}},
	}

	res := c.runField("给付3次", types.FieldPayoutCount, rs)
	out, ok := res.(*types.PayoutCountResult)
	require.True(t, ok)
	assert.True(t, out.IsSentinel())
}

func TestCoordinator_RefreshMergesLearnedRules(t *testing.T) {
	lr := types.LearnedRule{
		ID:          common.NewID(),
		Field:       types.FieldPayoutAmount,
		Category:    types.CategoryDisease,
		Pattern:     `特别约定金额([0-9]+)元`,
		Template:    types.ExtractionTemplate{ResultType: types.AmountTypeFixed, ValueGroup: 1},
		SuccessRate: 1,
		Enabled:     true,
	}
	adapter := NewLearnedRuleAdapter(&stubRuleSource{rules: []types.LearnedRule{lr}}, nil)
	c := NewCoordinator(adapter, nil)

	clause := "特别约定金额5000元。"

	// Before refresh only hand-authored rules are active.
	res, err := c.Parse(context.Background(), clause, types.CategoryDisease)
	require.NoError(t, err)
	assert.True(t, res.PayoutAmount.IsSentinel())

	c.Refresh(context.Background())

	res, err = c.Parse(context.Background(), clause, types.CategoryDisease)
	require.NoError(t, err)
	assert.Equal(t, types.AmountTypeFixed, res.PayoutAmount.Type)
	assert.InDelta(t, 0.79, res.PayoutAmount.Confidence, 1e-9)
}

func TestFieldsFor(t *testing.T) {
	assert.Len(t, FieldsFor(types.CategoryDisease), 8)
	assert.Len(t, FieldsFor(types.CategoryDeath), 3)
	assert.Len(t, FieldsFor(types.CategoryAccident), 3)
	assert.Len(t, FieldsFor(types.CategoryAnnuity), 3)
	assert.Len(t, FieldsFor(types.CategorySurvival), 4)
	assert.Empty(t, FieldsFor(types.CoverageCategory("pet")))
}
