// Package clause defines the data model of the clause parsing engine: the
// input clause, the per-field extraction results, the aggregate ParseResult
// returned verbatim over HTTP, and the learned-rule / correction records that
// flow between the review workflow and the rule store.
//
// These types are shared by the engine, the persistence layer, and the API
// layer; the JSON field names below are the wire contract.
package clause

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Coverage categories
// ─────────────────────────────────────────────────────────────────────────────

// CoverageCategory is the declared category of the coverage whose clause is
// being parsed.  Rule-set selection is keyed on it.
type CoverageCategory string

const (
	CategoryDisease  CoverageCategory = "disease"
	CategoryDeath    CoverageCategory = "death"
	CategoryAccident CoverageCategory = "accident"
	CategoryAnnuity  CoverageCategory = "annuity"
	CategorySurvival CoverageCategory = "survival"
)

// AllCategories lists every supported coverage category.
var AllCategories = []CoverageCategory{
	CategoryDisease, CategoryDeath, CategoryAccident, CategoryAnnuity, CategorySurvival,
}

// Valid reports whether c is a known coverage category.
func (c CoverageCategory) Valid() bool {
	switch c {
	case CategoryDisease, CategoryDeath, CategoryAccident, CategoryAnnuity, CategorySurvival:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Fields
// ─────────────────────────────────────────────────────────────────────────────

// Field identifies one extraction field of the engine.  Used as the rule-set
// key, the learned-rule scope, and the metrics label.
type Field string

const (
	FieldPayoutAmount     Field = "payout_amount"
	FieldPayoutCount      Field = "payout_count"
	FieldIntervalPeriod   Field = "interval_period"
	FieldWaitingPeriod    Field = "waiting_period"
	FieldGrouping         Field = "grouping"
	FieldRepeatablePayout Field = "repeatable_payout"
	FieldPremiumWaiver    Field = "premium_waiver"
	FieldConditions       Field = "conditions"
)

// AllFields lists every extraction field.
var AllFields = []Field{
	FieldPayoutAmount, FieldPayoutCount, FieldIntervalPeriod, FieldWaitingPeriod,
	FieldGrouping, FieldRepeatablePayout, FieldPremiumWaiver, FieldConditions,
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Extracted evidence text
// ─────────────────────────────────────────────────────────────────────────────

// SentinelText is the canonical evidence string of the "nothing matched" result.
const SentinelText = "未识别"

// ExtractedText is the literal clause span(s) backing a field result.  Most
// results carry a single span; tiered payout results carry one span per tier.
// It serializes as a plain JSON string when single-valued and as an array
// otherwise, matching the review UI's evidence contract.
type ExtractedText []string

// MarshalJSON emits a bare string for single spans and an array for multiple.
func (e ExtractedText) MarshalJSON() ([]byte, error) {
	switch len(e) {
	case 0:
		return json.Marshal("")
	case 1:
		return json.Marshal(e[0])
	default:
		return json.Marshal([]string(e))
	}
}

// UnmarshalJSON accepts both the string and the array form.
func (e *ExtractedText) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = ExtractedText{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*e = ExtractedText(many)
	return nil
}

// First returns the first span, or "" when empty.
func (e ExtractedText) First() string {
	if len(e) == 0 {
		return ""
	}
	return e[0]
}

// ─────────────────────────────────────────────────────────────────────────────
// Result type tags
// ─────────────────────────────────────────────────────────────────────────────

// Result type tags for the payout amount field.
const (
	AmountTypePercentage  = "percentage"
	AmountTypeFixed       = "fixed"
	AmountTypeTiered      = "tiered"
	AmountTypePaidPremium = "paid_premium"
)

// Result type tags for the payout count field.
const (
	CountTypeSingle   = "single"
	CountTypeMultiple = "multiple"
)

// TypeUnknown is the type tag of the sentinel "no information" result,
// shared by every field.
const TypeUnknown = "unknown"

// AmountBase identifies the base a percentage applies to.
type AmountBase string

const (
	BaseBasicSumInsured AmountBase = "basicSumInsured"
	BasePaidPremium     AmountBase = "paidPremium"
)

// Tier units.
const (
	TierUnitPercentage = "percentage"
	TierUnitFixed      = "fixed"
)

// ─────────────────────────────────────────────────────────────────────────────
// Field results (tagged variants)
// ─────────────────────────────────────────────────────────────────────────────

// FieldCore carries the members shared by every field result: the variant
// tag, the hand-calibrated confidence in [0,1], and the evidence span(s).
// confidence == 0 together with Type == TypeUnknown is the sentinel "no
// information" value; it is a normal outcome, never an error.
type FieldCore struct {
	Type          string        `json:"type"`
	Confidence    float64       `json:"confidence"`
	ExtractedText ExtractedText `json:"extractedText"`
}

// Kind returns the variant tag.
func (c FieldCore) Kind() string { return c.Type }

// Score returns the confidence.
func (c FieldCore) Score() float64 { return c.Confidence }

// Spans returns the evidence span(s).
func (c FieldCore) Spans() []string { return c.ExtractedText }

// IsSentinel reports whether the result is the "no information" sentinel.
func (c FieldCore) IsSentinel() bool { return c.Type == TypeUnknown }

// SentinelCore returns the canonical sentinel core value.
func SentinelCore() FieldCore {
	return FieldCore{
		Type:          TypeUnknown,
		Confidence:    0,
		ExtractedText: ExtractedText{SentinelText},
	}
}

// Tier is one contiguous period or age range of a staged payout schedule.
// Tiers are ordered chronologically, never by match order.
type Tier struct {
	// Period is the literal period phrase, e.g. "前3个保单年度".
	Period string `json:"period"`
	// Value is the percentage value when Unit is "percentage", or the fixed
	// amount when Unit is "fixed".
	Value float64 `json:"value"`
	// Unit is "percentage" or "fixed".
	Unit string `json:"unit"`
	// StartAge / EndAge bound age-staged tiers; nil for policy-year tiers.
	StartAge *int `json:"startAge,omitempty"`
	EndAge   *int `json:"endAge,omitempty"`
	// Amount is the absolute amount for fixed tiers, when stated.
	Amount *float64 `json:"amount,omitempty"`
	// Base is the percentage base, normally the basic sum insured.
	Base AmountBase `json:"base"`
}

// AmountDetails carries the structured breakdown of a payout amount result.
type AmountDetails struct {
	// Tiers is populated for tiered results, chronologically ordered.
	Tiers []Tier `json:"tiers,omitempty"`
	// Value is the percentage (for "percentage") or amount (for "fixed").
	Value float64 `json:"value,omitempty"`
	// Base is the percentage base.
	Base AmountBase `json:"base,omitempty"`
}

// PayoutAmountResult describes how much one claim pays out.
type PayoutAmountResult struct {
	FieldCore
	Details *AmountDetails `json:"details,omitempty"`
}

// PayoutCountResult describes the payout-count ceiling of the coverage.
type PayoutCountResult struct {
	FieldCore
	MaxCount             int  `json:"maxCount"`
	TerminateAfterPayout bool `json:"terminateAfterPayout"`
}

// IntervalPeriodResult describes the minimum interval between two payouts.
// Days is the normalized interval (months×30, years×365).
type IntervalPeriodResult struct {
	FieldCore
	HasInterval bool `json:"hasInterval"`
	Days        int  `json:"days"`
}

// WaitingPeriodResult describes the waiting period before coverage attaches.
type WaitingPeriodResult struct {
	FieldCore
	HasWaiting bool `json:"hasWaiting"`
	Days       int  `json:"days"`
}

// GroupingResult describes whether claims are grouped by disease category.
type GroupingResult struct {
	FieldCore
	IsGrouped  bool `json:"isGrouped"`
	GroupCount int  `json:"groupCount,omitempty"`
}

// RepeatablePayoutResult describes whether the same coverage can pay repeatedly.
type RepeatablePayoutResult struct {
	FieldCore
	IsRepeatable bool `json:"isRepeatable"`
}

// PremiumWaiverResult describes whether premium is waived on claim.
type PremiumWaiverResult struct {
	FieldCore
	IsWaived bool `json:"isWaived"`
}

// ConditionType classifies a qualifying condition.
type ConditionType string

const (
	ConditionDiagnosis       ConditionType = "diagnosis"
	ConditionFirstOccurrence ConditionType = "first_occurrence"
	ConditionSurvival        ConditionType = "survival"
	ConditionAge             ConditionType = "age"
	ConditionWithinTerm      ConditionType = "within_term"
)

// Condition is one qualifying condition attached to the payout.
type Condition struct {
	Type          ConditionType `json:"type"`
	Description   string        `json:"description"`
	Confidence    float64       `json:"confidence"`
	ExtractedText string        `json:"extractedText"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregate ParseResult
// ─────────────────────────────────────────────────────────────────────────────

// ParseResult is the aggregate output of one clause parse.  Fields not
// applicable to the category are nil and omitted from the wire form.  The
// value is created fresh per call and never mutated after return.
type ParseResult struct {
	PayoutAmount     *PayoutAmountResult     `json:"payoutAmount,omitempty"`
	PayoutCount      *PayoutCountResult      `json:"payoutCount,omitempty"`
	IntervalPeriod   *IntervalPeriodResult   `json:"intervalPeriod,omitempty"`
	WaitingPeriod    *WaitingPeriodResult    `json:"waitingPeriod,omitempty"`
	Grouping         *GroupingResult         `json:"grouping,omitempty"`
	RepeatablePayout *RepeatablePayoutResult `json:"repeatablePayout,omitempty"`
	PremiumWaiver    *PremiumWaiverResult    `json:"premiumWaiver,omitempty"`
	Conditions       []Condition             `json:"conditions,omitempty"`

	// OverallConfidence is the mean confidence across the scalar fields
	// applicable to the category; inapplicable fields are omitted from the
	// mean, not scored zero.
	OverallConfidence float64 `json:"overallConfidence"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Persistence aggregates
// ─────────────────────────────────────────────────────────────────────────────

// ReviewStatus tracks a stored parse record through the human review workflow.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewCorrected ReviewStatus = "corrected"
)

// ParseRecord is the stored form of one parse invocation.  The full
// ParseResult is kept as JSON; the scalar columns below are denormalized
// copies used for filtering and are written only by the persistence layer —
// the engine is unaware of the duplication.
type ParseRecord struct {
	ID         common.ID        `json:"id"`
	ClauseText string           `json:"clauseText"`
	Category   CoverageCategory `json:"category"`
	Result     ParseResult      `json:"result"`

	// Denormalized filter columns.
	AmountType        string  `json:"amountType,omitempty"`
	MaxCount          int     `json:"maxCount,omitempty"`
	IntervalDays      int     `json:"intervalDays,omitempty"`
	IsGrouped         bool    `json:"isGrouped,omitempty"`
	IsRepeatable      bool    `json:"isRepeatable,omitempty"`
	PremiumWaived     bool    `json:"premiumWaived,omitempty"`
	OverallConfidence float64 `json:"overallConfidence"`

	Status    ReviewStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Denormalize refreshes the scalar filter columns from the stored Result.
func (r *ParseRecord) Denormalize() {
	r.OverallConfidence = r.Result.OverallConfidence
	if a := r.Result.PayoutAmount; a != nil {
		r.AmountType = a.Type
	}
	if c := r.Result.PayoutCount; c != nil {
		r.MaxCount = c.MaxCount
	}
	if iv := r.Result.IntervalPeriod; iv != nil {
		r.IntervalDays = iv.Days
	}
	if g := r.Result.Grouping; g != nil {
		r.IsGrouped = g.IsGrouped
	}
	if rp := r.Result.RepeatablePayout; rp != nil {
		r.IsRepeatable = rp.IsRepeatable
	}
	if w := r.Result.PremiumWaiver; w != nil {
		r.PremiumWaived = w.IsWaived
	}
}

// RecordFilter carries the dynamic filter parameters for record listing,
// matched against the denormalized columns.
type RecordFilter struct {
	Category      CoverageCategory
	AmountType    string
	Status        ReviewStatus
	MinConfidence float64
	Pagination    common.Pagination
}

// ─────────────────────────────────────────────────────────────────────────────
// Learned rules and corrections
// ─────────────────────────────────────────────────────────────────────────────

// ExtractionTemplate describes how a learned pattern's capture groups map
// onto a field result.  It is intentionally small: learned rules express the
// shapes human reviewers actually correct, not arbitrary results.
type ExtractionTemplate struct {
	// ResultType is the variant tag the rule produces (e.g. "percentage",
	// "multiple", "fixed").
	ResultType string `json:"resultType"`
	// ValueGroup is the 1-based capture group holding the numeric value
	// (percentage, amount, count, or period length); 0 when none.
	ValueGroup int `json:"valueGroup,omitempty"`
	// UnitGroup is the 1-based capture group holding a period unit
	// (年/个月/日); 0 when none.
	UnitGroup int `json:"unitGroup,omitempty"`
	// BoolValue carries the outcome for boolean fields (grouping,
	// repeatable payout, premium waiver, interval presence).
	BoolValue bool `json:"boolValue,omitempty"`
}

// LearnedRule is a pattern distilled from a human-corrected parse, replayed
// on future clauses.  Learned rules are merged after the hand-authored rules
// of the same field and must never silently outrank a hand-authored rule of
// equal specificity; the adapter enforces this by capping their confidence
// below the hand-calibrated band.
type LearnedRule struct {
	ID          common.ID          `json:"id"`
	Field       Field              `json:"field"`
	Category    CoverageCategory   `json:"category"`
	Pattern     string             `json:"pattern"`
	Template    ExtractionTemplate `json:"template"`
	Priority    int                `json:"priority"`
	UsageCount  int                `json:"usageCount"`
	SuccessRate float64            `json:"successRate"`
	Enabled     bool               `json:"enabled"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Correction is one human correction (or confirmation) of a stored parse
// record's field, produced by the review workflow.  Corrections are published
// fire-and-forget; the worker distills them into LearnedRules out-of-band.
type Correction struct {
	ID       common.ID        `json:"id"`
	RecordID common.ID        `json:"recordId"`
	Field    Field            `json:"field"`
	Category CoverageCategory `json:"category"`

	// Confirmed marks a confirmation of the engine output; no corrected
	// payload follows.
	Confirmed bool `json:"confirmed"`

	// CorrectedText is the evidence span the reviewer marked as the true
	// source of the field value.
	CorrectedText string `json:"correctedText,omitempty"`
	// CorrectedResult is the reviewer-supplied field result, JSON-encoded in
	// the field's wire shape.
	CorrectedResult json.RawMessage `json:"correctedResult,omitempty"`
	// Template optionally carries a ready extraction template when the review
	// tool could derive one.
	Template *ExtractionTemplate `json:"template,omitempty"`

	Reviewer  string    `json:"reviewer,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizePattern trims surrounding whitespace from a reviewer-marked
// literal span. The worker derives the actual pattern (escaping, digit
// generalization) before persisting a LearnedRule.
func NormalizePattern(span string) string {
	return strings.TrimSpace(span)
}
