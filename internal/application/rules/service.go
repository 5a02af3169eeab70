// Package rules provides the application-level service for inspecting and
// curating learned rules. Distillation writes rules on the worker; this
// service is the operator-facing read and enable/disable surface.
package rules

import (
	"context"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

// RuleStore is the learned-rule persistence surface this service needs.
type RuleStore interface {
	FindByID(ctx context.Context, id common.ID) (*types.LearnedRule, error)
	List(ctx context.Context, field types.Field, page common.Pagination) ([]types.LearnedRule, int64, error)
	SetEnabled(ctx context.Context, id common.ID, enabled bool) error
}

// ListInput carries the rule listing filters.
type ListInput struct {
	Field    string
	Page     int
	PageSize int
}

// ListOutput is a paginated rule listing.
type ListOutput struct {
	Rules    []types.LearnedRule `json:"rules"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// Service defines the learned-rule curation operations.
type Service interface {
	Get(ctx context.Context, id string) (*types.LearnedRule, error)
	List(ctx context.Context, input *ListInput) (*ListOutput, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

type serviceImpl struct {
	store  RuleStore
	logger logging.Logger
}

// NewService creates the rules service.
func NewService(store RuleStore, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{store: store, logger: logger.Named("rules")}
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*types.LearnedRule, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeValidation, "rule id is required")
	}
	return s.store.FindByID(ctx, common.ID(id))
}

func (s *serviceImpl) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	var field types.Field
	if input.Field != "" {
		field = types.Field(input.Field)
		if !field.Valid() {
			return nil, errors.New(errors.ErrCodeValidation, "unknown field").
				WithDetail(input.Field)
		}
	}
	page := common.Pagination{Page: input.Page, PageSize: input.PageSize}
	rules, total, err := s.store.List(ctx, field, page)
	if err != nil {
		return nil, err
	}
	return &ListOutput{Rules: rules, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (s *serviceImpl) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if id == "" {
		return errors.New(errors.ErrCodeValidation, "rule id is required")
	}
	if err := s.store.SetEnabled(ctx, common.ID(id), enabled); err != nil {
		return err
	}
	s.logger.Info("Learned rule toggled",
		logging.String("rule_id", id),
		logging.Bool("enabled", enabled))
	return nil
}
