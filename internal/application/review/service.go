// Package review provides the application-level service for the human review
// workflow: confirming or correcting stored parse records. Corrections are
// published fire-and-forget; the worker distills them into learned rules
// out-of-band, so a broker outage never blocks a reviewer.
package review

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/intelligence/clause_engine"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

// RecordStore looks up and transitions parse records under review.
type RecordStore interface {
	FindByID(ctx context.Context, id common.ID) (*types.ParseRecord, error)
	UpdateStatus(ctx context.Context, id common.ID, status types.ReviewStatus) error
}

// CorrectionStore reads back stored corrections. Writes happen on the worker
// side after the correction topic round-trip.
type CorrectionStore interface {
	ListByRecord(ctx context.Context, recordID common.ID) ([]types.Correction, error)
}

// EventPublisher carries correction events to the worker.
type EventPublisher interface {
	PublishEnvelope(ctx context.Context, topic, key string, env *kafka.EventEnvelope) error
}

// SubmitInput carries one reviewer verdict on a stored record's field.
type SubmitInput struct {
	RecordID        string
	Field           string
	Confirmed       bool
	CorrectedText   string
	CorrectedResult json.RawMessage
	Template        *types.ExtractionTemplate
	Reviewer        string
}

// Service defines the review application operations.
type Service interface {
	Submit(ctx context.Context, input *SubmitInput) (*types.Correction, error)
	ListByRecord(ctx context.Context, recordID string) ([]types.Correction, error)
}

type serviceImpl struct {
	records     RecordStore
	corrections CorrectionStore
	publisher   EventPublisher
	source      string
	logger      logging.Logger
}

// NewService creates the review service. source names the publishing service
// in correction envelopes.
func NewService(records RecordStore, corrections CorrectionStore, publisher EventPublisher, source string, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		records:     records,
		corrections: corrections,
		publisher:   publisher,
		source:      source,
		logger:      logger.Named("review"),
	}
}

func (s *serviceImpl) Submit(ctx context.Context, input *SubmitInput) (*types.Correction, error) {
	if input.RecordID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "record id is required")
	}
	field := types.Field(input.Field)
	if !field.Valid() || field == types.FieldConditions {
		return nil, errors.New(errors.ErrCodeValidation, "field is not correctable").
			WithDetail(input.Field)
	}
	if !input.Confirmed && input.CorrectedText == "" && len(input.CorrectedResult) == 0 {
		return nil, errors.New(errors.ErrCodeCorrectionRejected, "correction carries neither confirmation nor corrected content")
	}

	record, err := s.records.FindByID(ctx, common.ID(input.RecordID))
	if err != nil {
		return nil, err
	}
	if !fieldApplies(field, record.Category) {
		return nil, errors.New(errors.ErrCodeCorrectionRejected, "field does not apply to the record's category").
			WithDetail(input.Field)
	}

	correction := &types.Correction{
		ID:              common.NewID(),
		RecordID:        record.ID,
		Field:           field,
		Category:        record.Category,
		Confirmed:       input.Confirmed,
		CorrectedText:   input.CorrectedText,
		CorrectedResult: input.CorrectedResult,
		Template:        input.Template,
		Reviewer:        input.Reviewer,
		CreatedAt:       time.Now().UTC(),
	}

	// Fire-and-forget: a failed publish is logged, never surfaced. The
	// reviewer's verdict on the record itself still lands below.
	if s.publisher != nil {
		if env, err := kafka.NewCorrectionEnvelope(s.source, correction); err != nil {
			s.logger.Warn("Correction envelope build failed",
				logging.String("correction_id", correction.ID.String()),
				logging.Err(err))
		} else if err := s.publisher.PublishEnvelope(ctx, kafka.TopicCorrections, record.ID.String(), env); err != nil {
			s.logger.Warn("Correction publish failed",
				logging.String("correction_id", correction.ID.String()),
				logging.String("record_id", record.ID.String()),
				logging.Err(err))
		}
	}

	status := types.ReviewCorrected
	if input.Confirmed {
		status = types.ReviewConfirmed
	}
	if err := s.records.UpdateStatus(ctx, record.ID, status); err != nil {
		return nil, err
	}

	s.logger.Info("Correction submitted",
		logging.String("record_id", record.ID.String()),
		logging.String("field", string(field)),
		logging.Bool("confirmed", input.Confirmed))
	return correction, nil
}

func (s *serviceImpl) ListByRecord(ctx context.Context, recordID string) ([]types.Correction, error) {
	if recordID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "record id is required")
	}
	if s.corrections == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "correction storage not configured")
	}
	return s.corrections.ListByRecord(ctx, common.ID(recordID))
}

// fieldApplies reports whether the field is parsed for the category at all.
func fieldApplies(field types.Field, category types.CoverageCategory) bool {
	for _, f := range clause_engine.FieldsFor(category) {
		if f == field {
			return true
		}
	}
	return false
}
