package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

type fakeRuleStore struct {
	rules   []types.LearnedRule
	field   types.Field
	toggled map[common.ID]bool
}

func (s *fakeRuleStore) FindByID(_ context.Context, id common.ID) (*types.LearnedRule, error) {
	for i := range s.rules {
		if s.rules[i].ID == id {
			return &s.rules[i], nil
		}
	}
	return nil, errors.New(errors.ErrCodeRuleNotFound, "learned rule not found")
}

func (s *fakeRuleStore) List(_ context.Context, field types.Field, _ common.Pagination) ([]types.LearnedRule, int64, error) {
	s.field = field
	return s.rules, int64(len(s.rules)), nil
}

func (s *fakeRuleStore) SetEnabled(_ context.Context, id common.ID, enabled bool) error {
	if s.toggled == nil {
		s.toggled = map[common.ID]bool{}
	}
	s.toggled[id] = enabled
	return nil
}

func TestList_FiltersByField(t *testing.T) {
	store := &fakeRuleStore{rules: []types.LearnedRule{{ID: common.ID("r-1")}}}
	svc := NewService(store, nil)

	out, err := svc.List(context.Background(), &ListInput{Field: string(types.FieldPayoutAmount)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, types.FieldPayoutAmount, store.field)
}

func TestList_UnknownField(t *testing.T) {
	svc := NewService(&fakeRuleStore{}, nil)
	_, err := svc.List(context.Background(), &ListInput{Field: "premium"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestGet(t *testing.T) {
	store := &fakeRuleStore{rules: []types.LearnedRule{{ID: common.ID("r-1"), Pattern: "按([0-9]+)%"}}}
	svc := NewService(store, nil)

	rule, err := svc.Get(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "按([0-9]+)%", rule.Pattern)

	_, err = svc.Get(context.Background(), "missing")
	assert.Equal(t, errors.ErrCodeRuleNotFound, errors.GetCode(err))

	_, err = svc.Get(context.Background(), "")
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestSetEnabled(t *testing.T) {
	store := &fakeRuleStore{}
	svc := NewService(store, nil)

	require.NoError(t, svc.SetEnabled(context.Background(), "r-1", false))
	assert.False(t, store.toggled[common.ID("r-1")])

	err := svc.SetEnabled(context.Background(), "", true)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}
