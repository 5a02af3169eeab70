package learning

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

type fakeCorrectionStore struct {
	saved   []*types.Correction
	saveErr error
}

func (s *fakeCorrectionStore) Save(_ context.Context, c *types.Correction) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, c)
	return nil
}

type fakeRuleStore struct {
	byPattern map[string]*types.LearnedRule
	saved     []*types.LearnedRule
	outcomes  []common.ID
	saveErr   error
}

func (s *fakeRuleStore) Save(_ context.Context, rule *types.LearnedRule) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, rule)
	return nil
}

func (s *fakeRuleStore) FindByPattern(_ context.Context, _ types.Field, _ types.CoverageCategory, pattern string) (*types.LearnedRule, error) {
	if rule, ok := s.byPattern[pattern]; ok {
		return rule, nil
	}
	return nil, errors.New(errors.ErrCodeRuleNotFound, "learned rule not found")
}

func (s *fakeRuleStore) RecordOutcome(_ context.Context, id common.ID, _ bool) error {
	s.outcomes = append(s.outcomes, id)
	return nil
}

type fakeRefresher struct{ calls int }

func (r *fakeRefresher) Refresh(_ context.Context) { r.calls++ }

type fakeFlusher struct{ calls int }

func (f *fakeFlusher) Flush(_ context.Context) { f.calls++ }

func newTestDistiller(corrections *fakeCorrectionStore, rules *fakeRuleStore) *Distiller {
	return NewDistiller(corrections, rules, &fakeRefresher{}, nil, nil, nil, nil)
}

func correctedAmount(text string) *types.Correction {
	return &types.Correction{
		ID:            common.NewID(),
		RecordID:      common.ID("rec-1"),
		Field:         types.FieldPayoutAmount,
		Category:      types.CategoryDisease,
		CorrectedText: text,
		CorrectedResult: json.RawMessage(
			`{"type":"percentage","confidence":1,"extractedText":"x"}`),
	}
}

func TestDerivePattern_GeneralizesNumbers(t *testing.T) {
	pattern := DerivePattern("按基本保险金额的150%给付")
	re, err := regexp.Compile(pattern)
	require.NoError(t, err)

	m := re.FindStringSubmatch("按基本保险金额的200%给付")
	require.Len(t, m, 2)
	assert.Equal(t, "200", m[1])

	m = re.FindStringSubmatch("按基本保险金额的87.5%给付")
	require.Len(t, m, 2)
	assert.Equal(t, "87.5", m[1])
}

func TestDerivePattern_EscapesMetaCharacters(t *testing.T) {
	pattern := DerivePattern("给付（含利息）保险金")
	re, err := regexp.Compile(pattern)
	require.NoError(t, err)
	assert.True(t, re.MatchString("给付（含利息）保险金"))
	assert.Equal(t, "", DerivePattern("   "))
}

func TestApply_DistillsNewRule(t *testing.T) {
	corrections := &fakeCorrectionStore{}
	rules := &fakeRuleStore{}
	d := newTestDistiller(corrections, rules)

	require.NoError(t, d.Apply(context.Background(), correctedAmount("按基本保险金额的150%给付")))

	require.Len(t, corrections.saved, 1)
	require.Len(t, rules.saved, 1)
	rule := rules.saved[0]
	assert.Equal(t, types.FieldPayoutAmount, rule.Field)
	assert.Equal(t, types.CategoryDisease, rule.Category)
	assert.Equal(t, "percentage", rule.Template.ResultType)
	assert.Equal(t, 1, rule.Template.ValueGroup)
	assert.True(t, rule.Enabled)
	assert.Equal(t, 1, rule.UsageCount)
	assert.InDelta(t, 1.0, rule.SuccessRate, 1e-9)
	assert.False(t, rule.CreatedAt.IsZero())
	assert.Equal(t, rule.CreatedAt, rule.UpdatedAt)
}

func TestApply_ReinforcesExistingRule(t *testing.T) {
	pattern := DerivePattern("按基本保险金额的150%给付")
	existing := &types.LearnedRule{ID: common.ID("rule-1"), Pattern: pattern}
	rules := &fakeRuleStore{byPattern: map[string]*types.LearnedRule{pattern: existing}}
	d := newTestDistiller(&fakeCorrectionStore{}, rules)

	require.NoError(t, d.Apply(context.Background(), correctedAmount("按基本保险金额的150%给付")))

	assert.Empty(t, rules.saved)
	require.Len(t, rules.outcomes, 1)
	assert.Equal(t, common.ID("rule-1"), rules.outcomes[0])
}

func TestApply_ConfirmationDoesNotDistill(t *testing.T) {
	corrections := &fakeCorrectionStore{}
	rules := &fakeRuleStore{}
	d := newTestDistiller(corrections, rules)

	c := &types.Correction{
		ID:        common.NewID(),
		RecordID:  common.ID("rec-1"),
		Field:     types.FieldPayoutCount,
		Category:  types.CategoryDisease,
		Confirmed: true,
	}
	require.NoError(t, d.Apply(context.Background(), c))
	require.Len(t, corrections.saved, 1)
	assert.Empty(t, rules.saved)
}

func TestApply_DuplicateCorrectionIsIdempotent(t *testing.T) {
	corrections := &fakeCorrectionStore{saveErr: errors.New(errors.ErrCodeConflict, "duplicate")}
	rules := &fakeRuleStore{}
	d := newTestDistiller(corrections, rules)

	require.NoError(t, d.Apply(context.Background(), correctedAmount("按150%给付")))
	assert.Empty(t, rules.saved)
}

func TestApply_MissingRecordIsDropped(t *testing.T) {
	corrections := &fakeCorrectionStore{saveErr: errors.New(errors.ErrCodeCorrectionRejected, "unknown record")}
	d := newTestDistiller(corrections, &fakeRuleStore{})
	require.NoError(t, d.Apply(context.Background(), correctedAmount("按150%给付")))
}

func TestApply_StoreErrorPropagates(t *testing.T) {
	corrections := &fakeCorrectionStore{saveErr: errors.New(errors.ErrCodeDatabaseError, "down")}
	d := newTestDistiller(corrections, &fakeRuleStore{})
	err := d.Apply(context.Background(), correctedAmount("按150%给付"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.GetCode(err))
}

func kafkaMessage(value string) segkafka.Message {
	return segkafka.Message{Topic: kafka.TopicCorrections, Value: []byte(value)}
}

func TestHandleMessage_DropsMalformed(t *testing.T) {
	d := newTestDistiller(&fakeCorrectionStore{}, &fakeRuleStore{})
	require.NoError(t, d.HandleMessage(context.Background(), kafkaMessage(`not json`)))
}

func TestHandleMessage_AppliesCorrection(t *testing.T) {
	corrections := &fakeCorrectionStore{}
	rules := &fakeRuleStore{}
	d := newTestDistiller(corrections, rules)

	env, err := kafka.NewCorrectionEnvelope("apiserver", correctedAmount("按基本保险金额的150%给付"))
	require.NoError(t, err)
	msg, err := env.ToMessage(kafka.TopicCorrections, "rec-1")
	require.NoError(t, err)

	require.NoError(t, d.HandleMessage(context.Background(), msg))
	assert.Len(t, corrections.saved, 1)
	assert.Len(t, rules.saved, 1)
}

func TestRunCycle_RefreshesAndFlushes(t *testing.T) {
	refresher := &fakeRefresher{}
	flusher := &fakeFlusher{}
	d := NewDistiller(&fakeCorrectionStore{}, &fakeRuleStore{}, refresher, flusher, nil, nil, nil)

	require.NoError(t, d.RunCycle(context.Background()))
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 1, flusher.calls)
}
