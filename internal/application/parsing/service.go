// Package parsing provides the application-level service for clause parsing.
// It fronts the rule engine with validation, result caching, persistence,
// and event publication; handlers and CLI commands talk to this service,
// never to the engine directly.
package parsing

import (
	"context"
	"time"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/config"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

// Parser runs one clause through the rule engine.
type Parser interface {
	Parse(ctx context.Context, clauseText string, category types.CoverageCategory) (*types.ParseResult, error)
}

// RecordStore persists parse records.
type RecordStore interface {
	Save(ctx context.Context, rec *types.ParseRecord) error
	FindByID(ctx context.Context, id common.ID) (*types.ParseRecord, error)
	List(ctx context.Context, filter types.RecordFilter) ([]*types.ParseRecord, int64, error)
	Delete(ctx context.Context, id common.ID) error
}

// ResultCache memoises parse results per (category, clause text) pair.
type ResultCache interface {
	Get(ctx context.Context, category types.CoverageCategory, clauseText string) *types.ParseResult
	Put(ctx context.Context, category types.CoverageCategory, clauseText string, result *types.ParseResult)
}

// EventPublisher announces stored parse records.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// ParseInput carries one parse request.
type ParseInput struct {
	ClauseText string
	Category   string
	// Store controls persistence; the CLI parses without storing.
	Store bool
}

// ParseOutput is the result of one parse request.
type ParseOutput struct {
	RecordID string             `json:"recordId,omitempty"`
	Category string             `json:"category"`
	Result   *types.ParseResult `json:"result"`
	Cached   bool               `json:"cached"`
}

// ListInput carries the record listing filters.
type ListInput struct {
	Category      string
	AmountType    string
	Status        string
	MinConfidence float64
	Page          int
	PageSize      int
}

// ListOutput is a paginated record listing.
type ListOutput struct {
	Records  []*types.ParseRecord `json:"records"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

// Service defines the parsing application operations.
type Service interface {
	Parse(ctx context.Context, input *ParseInput) (*ParseOutput, error)
	GetRecord(ctx context.Context, id string) (*types.ParseRecord, error)
	ListRecords(ctx context.Context, input *ListInput) (*ListOutput, error)
	DeleteRecord(ctx context.Context, id string) error
}

type serviceImpl struct {
	parser    Parser
	records   RecordStore
	cache     ResultCache
	publisher EventPublisher
	metrics   *prometheus.AppMetrics
	cfg       config.EngineConfig
	logger    logging.Logger
}

// NewService creates the parsing service. records, cache, publisher, and
// metrics are each optional; a nil dependency disables that concern.
func NewService(parser Parser, records RecordStore, cache ResultCache, publisher EventPublisher, metrics *prometheus.AppMetrics, cfg config.EngineConfig, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		parser:    parser,
		records:   records,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.Named("parsing"),
	}
}

func (s *serviceImpl) Parse(ctx context.Context, input *ParseInput) (*ParseOutput, error) {
	if input.ClauseText == "" {
		return nil, errors.New(errors.ErrCodeClauseEmpty, "clause text must not be empty")
	}
	if s.cfg.MaxClauseBytes > 0 && len(input.ClauseText) > s.cfg.MaxClauseBytes {
		return nil, errors.New(errors.ErrCodeValidation, "clause text exceeds size limit")
	}
	category := types.CoverageCategory(input.Category)
	if !category.Valid() {
		return nil, errors.New(errors.ErrCodeCategoryInvalid, "unknown coverage category").
			WithDetail(input.Category)
	}

	// The engine is pure, so identical inputs can be served from cache.
	if s.cache != nil {
		if cached := s.cache.Get(ctx, category, input.ClauseText); cached != nil {
			s.recordCache(category, true)
			s.recordParse(category, "cached", cached.OverallConfidence, 0)
			return s.finish(ctx, input, category, cached, true)
		}
		s.recordCache(category, false)
	}

	start := time.Now()
	result, err := s.parser.Parse(ctx, input.ClauseText, category)
	if err != nil {
		s.recordParse(category, "error", 0, 0)
		return nil, err
	}
	s.recordParse(category, "ok", result.OverallConfidence, time.Since(start))

	if s.cache != nil {
		s.cache.Put(ctx, category, input.ClauseText, result)
	}
	return s.finish(ctx, input, category, result, false)
}

// finish persists and announces the result when storage is requested.
func (s *serviceImpl) finish(ctx context.Context, input *ParseInput, category types.CoverageCategory, result *types.ParseResult, cached bool) (*ParseOutput, error) {
	out := &ParseOutput{Category: string(category), Result: result, Cached: cached}
	if !input.Store || s.records == nil {
		return out, nil
	}

	now := time.Now().UTC()
	rec := &types.ParseRecord{
		ID:         common.NewID(),
		ClauseText: input.ClauseText,
		Category:   category,
		Result:     *result,
		Status:     types.ReviewPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	out.RecordID = rec.ID.String()

	if s.publisher != nil {
		payload := kafka.ParseCompletedPayload{
			RecordID:          rec.ID.String(),
			Category:          string(category),
			OverallConfidence: result.OverallConfidence,
			Status:            string(rec.Status),
			ParsedAt:          time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, kafka.TopicParseCompleted, rec.ID.String(), kafka.EventParseCompleted, payload); err != nil {
			s.logger.Warn("Parse event publish failed",
				logging.String("record_id", rec.ID.String()),
				logging.Err(err))
		}
	}
	s.logger.Debug("Parse stored",
		logging.String("record_id", rec.ID.String()),
		logging.String("category", string(category)),
		logging.Float64("confidence", result.OverallConfidence))
	return out, nil
}

func (s *serviceImpl) GetRecord(ctx context.Context, id string) (*types.ParseRecord, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeValidation, "record id is required")
	}
	if s.records == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "record storage not configured")
	}
	return s.records.FindByID(ctx, common.ID(id))
}

func (s *serviceImpl) ListRecords(ctx context.Context, input *ListInput) (*ListOutput, error) {
	if s.records == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "record storage not configured")
	}
	filter := types.RecordFilter{
		AmountType:    input.AmountType,
		MinConfidence: input.MinConfidence,
		Pagination:    common.Pagination{Page: input.Page, PageSize: input.PageSize},
	}
	if input.Category != "" {
		category := types.CoverageCategory(input.Category)
		if !category.Valid() {
			return nil, errors.New(errors.ErrCodeCategoryInvalid, "unknown coverage category").
				WithDetail(input.Category)
		}
		filter.Category = category
	}
	if input.Status != "" {
		switch status := types.ReviewStatus(input.Status); status {
		case types.ReviewPending, types.ReviewConfirmed, types.ReviewCorrected:
			filter.Status = status
		default:
			return nil, errors.New(errors.ErrCodeValidation, "unknown review status").
				WithDetail(input.Status)
		}
	}

	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListOutput{
		Records:  records,
		Total:    total,
		Page:     filter.Pagination.Page,
		PageSize: filter.Pagination.PageSize,
	}, nil
}

func (s *serviceImpl) DeleteRecord(ctx context.Context, id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeValidation, "record id is required")
	}
	if s.records == nil {
		return errors.New(errors.ErrCodeNotImplemented, "record storage not configured")
	}
	return s.records.Delete(ctx, common.ID(id))
}

func (s *serviceImpl) recordParse(category types.CoverageCategory, status string, confidence float64, d time.Duration) {
	if s.metrics == nil {
		return
	}
	prometheus.RecordParse(s.metrics, string(category), status, confidence, d)
}

func (s *serviceImpl) recordCache(category types.CoverageCategory, hit bool) {
	if s.metrics == nil {
		return
	}
	prometheus.RecordCacheAccess(s.metrics, string(category), hit)
}
