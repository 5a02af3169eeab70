package parsing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/config"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

type fakeParser struct {
	calls  int
	result *types.ParseResult
	err    error
}

func (p *fakeParser) Parse(_ context.Context, _ string, _ types.CoverageCategory) (*types.ParseResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type fakeRecordStore struct {
	saved   []*types.ParseRecord
	byID    map[common.ID]*types.ParseRecord
	listed  []*types.ParseRecord
	filter  types.RecordFilter
	saveErr error
}

func (s *fakeRecordStore) Save(_ context.Context, rec *types.ParseRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, rec)
	return nil
}

func (s *fakeRecordStore) FindByID(_ context.Context, id common.ID) (*types.ParseRecord, error) {
	if rec, ok := s.byID[id]; ok {
		return rec, nil
	}
	return nil, errors.New(errors.ErrCodeRecordNotFound, "parse record not found")
}

func (s *fakeRecordStore) List(_ context.Context, filter types.RecordFilter) ([]*types.ParseRecord, int64, error) {
	s.filter = filter
	return s.listed, int64(len(s.listed)), nil
}

func (s *fakeRecordStore) Delete(_ context.Context, _ common.ID) error { return nil }

type fakeResultCache struct {
	entries map[string]*types.ParseResult
	puts    int
}

func (c *fakeResultCache) key(cat types.CoverageCategory, text string) string {
	return string(cat) + "|" + text
}

func (c *fakeResultCache) Get(_ context.Context, cat types.CoverageCategory, text string) *types.ParseResult {
	return c.entries[c.key(cat, text)]
}

func (c *fakeResultCache) Put(_ context.Context, cat types.CoverageCategory, text string, result *types.ParseResult) {
	c.puts++
	if c.entries == nil {
		c.entries = map[string]*types.ParseResult{}
	}
	c.entries[c.key(cat, text)] = result
}

type fakePublisher struct {
	topics []string
	keys   []string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic, key, _ string, _ interface{}) error {
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return p.err
}

func sampleResult(confidence float64) *types.ParseResult {
	return &types.ParseResult{
		PayoutAmount: &types.PayoutAmountResult{
			FieldCore: types.FieldCore{Type: types.AmountTypePercentage, Confidence: confidence},
			Details:   &types.AmountDetails{Value: 150, Base: types.BaseBasicSumInsured},
		},
		OverallConfidence: confidence,
	}
}

func TestParse_EmptyClause(t *testing.T) {
	svc := NewService(&fakeParser{}, nil, nil, nil, nil, config.EngineConfig{}, nil)
	_, err := svc.Parse(context.Background(), &ParseInput{Category: "disease"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeClauseEmpty, errors.GetCode(err))
}

func TestParse_InvalidCategory(t *testing.T) {
	svc := NewService(&fakeParser{}, nil, nil, nil, nil, config.EngineConfig{}, nil)
	_, err := svc.Parse(context.Background(), &ParseInput{ClauseText: "条款", Category: "pet"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCategoryInvalid, errors.GetCode(err))
}

func TestParse_ClauseTooLarge(t *testing.T) {
	svc := NewService(&fakeParser{}, nil, nil, nil, nil, config.EngineConfig{MaxClauseBytes: 4}, nil)
	_, err := svc.Parse(context.Background(), &ParseInput{ClauseText: "确诊重大疾病", Category: "disease"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestParse_WithoutStore(t *testing.T) {
	parser := &fakeParser{result: sampleResult(0.9)}
	svc := NewService(parser, nil, nil, nil, nil, config.EngineConfig{}, nil)

	out, err := svc.Parse(context.Background(), &ParseInput{ClauseText: "确诊给付150%", Category: "disease"})
	require.NoError(t, err)
	assert.Empty(t, out.RecordID)
	assert.False(t, out.Cached)
	assert.InDelta(t, 0.9, out.Result.OverallConfidence, 1e-9)
	assert.Equal(t, 1, parser.calls)
}

func TestParse_StoresAndPublishes(t *testing.T) {
	parser := &fakeParser{result: sampleResult(0.85)}
	store := &fakeRecordStore{}
	pub := &fakePublisher{}
	svc := NewService(parser, store, nil, pub, nil, config.EngineConfig{}, nil)

	out, err := svc.Parse(context.Background(), &ParseInput{ClauseText: "确诊给付150%", Category: "disease", Store: true})
	require.NoError(t, err)
	require.Len(t, store.saved, 1)

	rec := store.saved[0]
	assert.Equal(t, out.RecordID, rec.ID.String())
	assert.Equal(t, types.ReviewPending, rec.Status)
	assert.Equal(t, types.CategoryDisease, rec.Category)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, kafka.TopicParseCompleted, pub.topics[0])
	assert.Equal(t, rec.ID.String(), pub.keys[0])
}

func TestParse_PublishFailureIsSwallowed(t *testing.T) {
	parser := &fakeParser{result: sampleResult(0.85)}
	store := &fakeRecordStore{}
	pub := &fakePublisher{err: errors.New(errors.ErrCodeExternalService, "broker down")}
	svc := NewService(parser, store, nil, pub, nil, config.EngineConfig{}, nil)

	out, err := svc.Parse(context.Background(), &ParseInput{ClauseText: "确诊给付150%", Category: "disease", Store: true})
	require.NoError(t, err)
	assert.NotEmpty(t, out.RecordID)
}

func TestParse_ServedFromCache(t *testing.T) {
	parser := &fakeParser{result: sampleResult(0.85)}
	cache := &fakeResultCache{}
	svc := NewService(parser, nil, cache, nil, nil, config.EngineConfig{}, nil)

	first, err := svc.Parse(context.Background(), &ParseInput{ClauseText: "确诊给付150%", Category: "disease"})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.puts)

	second, err := svc.Parse(context.Background(), &ParseInput{ClauseText: "确诊给付150%", Category: "disease"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, parser.calls)
}

func TestGetRecord(t *testing.T) {
	rec := &types.ParseRecord{ID: common.ID("rec-1"), Category: types.CategoryDisease}
	store := &fakeRecordStore{byID: map[common.ID]*types.ParseRecord{"rec-1": rec}}
	svc := NewService(&fakeParser{}, store, nil, nil, nil, config.EngineConfig{}, nil)

	got, err := svc.GetRecord(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = svc.GetRecord(context.Background(), "missing")
	assert.Equal(t, errors.ErrCodeRecordNotFound, errors.GetCode(err))

	_, err = svc.GetRecord(context.Background(), "")
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestListRecords_BuildsFilter(t *testing.T) {
	store := &fakeRecordStore{listed: []*types.ParseRecord{{ID: common.ID("rec-1")}}}
	svc := NewService(&fakeParser{}, store, nil, nil, nil, config.EngineConfig{}, nil)

	out, err := svc.ListRecords(context.Background(), &ListInput{
		Category:      "disease",
		Status:        "pending",
		MinConfidence: 0.5,
		Page:          2,
		PageSize:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, types.CategoryDisease, store.filter.Category)
	assert.Equal(t, types.ReviewPending, store.filter.Status)
	assert.InDelta(t, 0.5, store.filter.MinConfidence, 1e-9)
	assert.Equal(t, 2, store.filter.Pagination.Page)
}

func TestListRecords_InvalidStatus(t *testing.T) {
	svc := NewService(&fakeParser{}, &fakeRecordStore{}, nil, nil, nil, config.EngineConfig{}, nil)
	_, err := svc.ListRecords(context.Background(), &ListInput{Status: "archived"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}
