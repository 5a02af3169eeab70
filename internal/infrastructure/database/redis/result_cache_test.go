package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

func newTestResultCache(t *testing.T) *ResultCache {
	t.Helper()
	return NewResultCache(newTestCache(t), time.Minute, nil)
}

func TestResultCache_Key(t *testing.T) {
	rc := newTestResultCache(t)

	k1 := rc.Key(types.CategoryDisease, "条款甲")
	k2 := rc.Key(types.CategoryDisease, "条款甲")
	k3 := rc.Key(types.CategoryDeath, "条款甲")
	k4 := rc.Key(types.CategoryDisease, "条款乙")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3, "category is part of the key")
	assert.NotEqual(t, k1, k4)
}

func TestResultCache_PutGet(t *testing.T) {
	rc := newTestResultCache(t)
	ctx := context.Background()
	clause := "按基本保险金额的150%给付重大疾病保险金。"

	result := &types.ParseResult{
		PayoutAmount: &types.PayoutAmountResult{
			FieldCore: types.FieldCore{
				Type:          types.AmountTypePercentage,
				Confidence:    0.9,
				ExtractedText: types.ExtractedText{clause},
			},
			Details: &types.AmountDetails{Value: 150, Base: types.BaseBasicSumInsured},
		},
		OverallConfidence: 0.9,
	}
	rc.Put(ctx, types.CategoryDisease, clause, result)

	got := rc.Get(ctx, types.CategoryDisease, clause)
	require.NotNil(t, got)
	require.NotNil(t, got.PayoutAmount)
	assert.Equal(t, types.AmountTypePercentage, got.PayoutAmount.Type)
	assert.InDelta(t, 150, got.PayoutAmount.Details.Value, 0.001)

	assert.Nil(t, rc.Get(ctx, types.CategoryDeath, clause), "other categories do not hit")
}

func TestResultCache_Get_Miss(t *testing.T) {
	rc := newTestResultCache(t)
	assert.Nil(t, rc.Get(context.Background(), types.CategoryDisease, "未缓存的条款"))
}

func TestResultCache_Flush(t *testing.T) {
	rc := newTestResultCache(t)
	ctx := context.Background()

	rc.Put(ctx, types.CategoryDisease, "条款甲", &types.ParseResult{OverallConfidence: 0.5})
	rc.Put(ctx, types.CategoryDeath, "条款乙", &types.ParseResult{OverallConfidence: 0.6})
	rc.Flush(ctx)

	assert.Nil(t, rc.Get(ctx, types.CategoryDisease, "条款甲"))
	assert.Nil(t, rc.Get(ctx, types.CategoryDeath, "条款乙"))
}
