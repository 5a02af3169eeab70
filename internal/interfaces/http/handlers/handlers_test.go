package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/parsing"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/review"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/rules"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeParsingService struct {
	parseOut  *parsing.ParseOutput
	parseErr  error
	record    *types.ParseRecord
	recordErr error
	listOut   *parsing.ListOutput
	listErr   error
	deleteErr error

	lastParse *parsing.ParseInput
	lastList  *parsing.ListInput
	lastID    string
}

func (f *fakeParsingService) Parse(_ context.Context, in *parsing.ParseInput) (*parsing.ParseOutput, error) {
	f.lastParse = in
	return f.parseOut, f.parseErr
}

func (f *fakeParsingService) GetRecord(_ context.Context, id string) (*types.ParseRecord, error) {
	f.lastID = id
	return f.record, f.recordErr
}

func (f *fakeParsingService) ListRecords(_ context.Context, in *parsing.ListInput) (*parsing.ListOutput, error) {
	f.lastList = in
	return f.listOut, f.listErr
}

func (f *fakeParsingService) DeleteRecord(_ context.Context, id string) error {
	f.lastID = id
	return f.deleteErr
}

type fakeReviewService struct {
	correction *types.Correction
	submitErr  error
	list       []types.Correction
	listErr    error

	lastSubmit *review.SubmitInput
	lastRecord string
}

func (f *fakeReviewService) Submit(_ context.Context, in *review.SubmitInput) (*types.Correction, error) {
	f.lastSubmit = in
	return f.correction, f.submitErr
}

func (f *fakeReviewService) ListByRecord(_ context.Context, recordID string) ([]types.Correction, error) {
	f.lastRecord = recordID
	return f.list, f.listErr
}

type fakeRulesService struct {
	rule       *types.LearnedRule
	getErr     error
	listOut    *rules.ListOutput
	listErr    error
	enabledErr error

	lastID      string
	lastEnabled bool
	lastList    *rules.ListInput
}

func (f *fakeRulesService) Get(_ context.Context, id string) (*types.LearnedRule, error) {
	f.lastID = id
	return f.rule, f.getErr
}

func (f *fakeRulesService) List(_ context.Context, in *rules.ListInput) (*rules.ListOutput, error) {
	f.lastList = in
	return f.listOut, f.listErr
}

func (f *fakeRulesService) SetEnabled(_ context.Context, id string, enabled bool) error {
	f.lastID = id
	f.lastEnabled = enabled
	return f.enabledErr
}

type fakeChecker struct {
	name string
	err  error
}

func (f *fakeChecker) Name() string                  { return f.name }
func (f *fakeChecker) Check(_ context.Context) error { return f.err }

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// ─────────────────────────────────────────────────────────────────────────────
// ParseHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestParseHandler_Parse(t *testing.T) {
	svc := &fakeParsingService{
		parseOut: &parsing.ParseOutput{RecordID: "rec-1", Category: "disease", Result: &types.ParseResult{}},
	}
	h := NewParseHandler(svc)
	router := gin.New()
	router.POST("/parse", h.Parse)

	w := doJSON(t, router, http.MethodPost, "/parse", gin.H{
		"clauseText": "确诊重大疾病，给付基本保险金额的150%。",
		"category":   "disease",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastParse)
	assert.Equal(t, "disease", svc.lastParse.Category)
	assert.True(t, svc.lastParse.Store, "store defaults to true")
}

func TestParseHandler_ParseDryRun(t *testing.T) {
	svc := &fakeParsingService{parseOut: &parsing.ParseOutput{Category: "disease"}}
	h := NewParseHandler(svc)
	router := gin.New()
	router.POST("/parse", h.Parse)

	store := false
	w := doJSON(t, router, http.MethodPost, "/parse", gin.H{
		"clauseText": "确诊给付。",
		"category":   "disease",
		"store":      store,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.lastParse.Store)
}

func TestParseHandler_ParseMissingBody(t *testing.T) {
	h := NewParseHandler(&fakeParsingService{})
	router := gin.New()
	router.POST("/parse", h.Parse)

	w := doJSON(t, router, http.MethodPost, "/parse", gin.H{"category": "disease"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeBadRequest), errorBody(t, w).Code)
}

func TestParseHandler_ParseValidationError(t *testing.T) {
	svc := &fakeParsingService{
		parseErr: errors.New(errors.ErrCodeCategoryInvalid, "unknown coverage category"),
	}
	h := NewParseHandler(svc)
	router := gin.New()
	router.POST("/parse", h.Parse)

	w := doJSON(t, router, http.MethodPost, "/parse", gin.H{
		"clauseText": "text",
		"category":   "nope",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeCategoryInvalid), errorBody(t, w).Code)
}

func TestParseHandler_GetRecordNotFound(t *testing.T) {
	svc := &fakeParsingService{
		recordErr: errors.New(errors.ErrCodeRecordNotFound, "parse record not found"),
	}
	h := NewParseHandler(svc)
	router := gin.New()
	router.GET("/records/:id", h.GetRecord)

	w := doJSON(t, router, http.MethodGet, "/records/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", svc.lastID)
}

func TestParseHandler_ListRecordsFilters(t *testing.T) {
	svc := &fakeParsingService{listOut: &parsing.ListOutput{}}
	h := NewParseHandler(svc)
	router := gin.New()
	router.GET("/records", h.ListRecords)

	w := doJSON(t, router, http.MethodGet,
		"/records?category=disease&status=pending&min_confidence=0.8&page=3&page_size=50", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastList)
	assert.Equal(t, "disease", svc.lastList.Category)
	assert.Equal(t, "pending", svc.lastList.Status)
	assert.InDelta(t, 0.8, svc.lastList.MinConfidence, 1e-9)
	assert.Equal(t, 3, svc.lastList.Page)
	assert.Equal(t, 50, svc.lastList.PageSize)
}

func TestParseHandler_DeleteRecord(t *testing.T) {
	svc := &fakeParsingService{}
	h := NewParseHandler(svc)
	router := gin.New()
	router.DELETE("/records/:id", h.DeleteRecord)

	w := doJSON(t, router, http.MethodDelete, "/records/rec-9", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rec-9", svc.lastID)
}

func TestRespondError_InternalMasked(t *testing.T) {
	svc := &fakeParsingService{
		recordErr: errors.New(errors.ErrCodeDatabaseError, "pq: connection refused to 10.0.0.3"),
	}
	h := NewParseHandler(svc)
	router := gin.New()
	router.GET("/records/:id", h.GetRecord)

	w := doJSON(t, router, http.MethodGet, "/records/rec-1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := errorBody(t, w)
	assert.Equal(t, string(errors.ErrCodeInternal), body.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

// ─────────────────────────────────────────────────────────────────────────────
// ReviewHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestReviewHandler_Submit(t *testing.T) {
	svc := &fakeReviewService{
		correction: &types.Correction{ID: "cor-1", RecordID: "rec-1"},
	}
	h := NewReviewHandler(svc)
	router := gin.New()
	router.POST("/records/:id/corrections", h.Submit)

	w := doJSON(t, router, http.MethodPost, "/records/rec-1/corrections", gin.H{
		"field":         "payout_amount",
		"correctedText": "给付基本保险金额的200%",
		"reviewer":      "analyst-a",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, svc.lastSubmit)
	assert.Equal(t, "rec-1", svc.lastSubmit.RecordID)
	assert.Equal(t, "payout_amount", svc.lastSubmit.Field)
	assert.Equal(t, "analyst-a", svc.lastSubmit.Reviewer)
}

func TestReviewHandler_SubmitRejected(t *testing.T) {
	svc := &fakeReviewService{
		submitErr: errors.New(errors.ErrCodeCorrectionRejected, "correction carries no verdict"),
	}
	h := NewReviewHandler(svc)
	router := gin.New()
	router.POST("/records/:id/corrections", h.Submit)

	w := doJSON(t, router, http.MethodPost, "/records/rec-1/corrections", gin.H{
		"field": "payout_amount",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(errors.ErrCodeCorrectionRejected), errorBody(t, w).Code)
}

func TestReviewHandler_SubmitMissingField(t *testing.T) {
	h := NewReviewHandler(&fakeReviewService{})
	router := gin.New()
	router.POST("/records/:id/corrections", h.Submit)

	w := doJSON(t, router, http.MethodPost, "/records/rec-1/corrections", gin.H{
		"confirmed": true,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewHandler_List(t *testing.T) {
	svc := &fakeReviewService{
		list: []types.Correction{{ID: "cor-1"}, {ID: "cor-2"}},
	}
	h := NewReviewHandler(svc)
	router := gin.New()
	router.GET("/records/:id/corrections", h.List)

	w := doJSON(t, router, http.MethodGet, "/records/rec-1/corrections", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rec-1", svc.lastRecord)

	var body struct {
		Corrections []types.Correction `json:"corrections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Corrections, 2)
}

// ─────────────────────────────────────────────────────────────────────────────
// RuleHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestRuleHandler_List(t *testing.T) {
	svc := &fakeRulesService{listOut: &rules.ListOutput{Total: 1}}
	h := NewRuleHandler(svc)
	router := gin.New()
	router.GET("/rules", h.List)

	w := doJSON(t, router, http.MethodGet, "/rules?field=payout_amount&page=2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastList)
	assert.Equal(t, "payout_amount", svc.lastList.Field)
	assert.Equal(t, 2, svc.lastList.Page)
	assert.Equal(t, 20, svc.lastList.PageSize)
}

func TestRuleHandler_Get(t *testing.T) {
	svc := &fakeRulesService{rule: &types.LearnedRule{ID: "rule-1"}}
	h := NewRuleHandler(svc)
	router := gin.New()
	router.GET("/rules/:id", h.Get)

	w := doJSON(t, router, http.MethodGet, "/rules/rule-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rule-1", svc.lastID)
}

func TestRuleHandler_SetEnabled(t *testing.T) {
	svc := &fakeRulesService{}
	h := NewRuleHandler(svc)
	router := gin.New()
	router.PUT("/rules/:id/enabled", h.SetEnabled)

	w := doJSON(t, router, http.MethodPut, "/rules/rule-1/enabled", gin.H{"enabled": false})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rule-1", svc.lastID)
	assert.False(t, svc.lastEnabled)
}

func TestRuleHandler_SetEnabledMissingBody(t *testing.T) {
	h := NewRuleHandler(&fakeRulesService{})
	router := gin.New()
	router.PUT("/rules/:id/enabled", h.SetEnabled)

	w := doJSON(t, router, http.MethodPut, "/rules/rule-1/enabled", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuleHandler_GetNotFound(t *testing.T) {
	svc := &fakeRulesService{
		getErr: errors.New(errors.ErrCodeRuleNotFound, "learned rule not found"),
	}
	h := NewRuleHandler(svc)
	router := gin.New()
	router.GET("/rules/:id", h.Get)

	w := doJSON(t, router, http.MethodGet, "/rules/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.ErrCodeRuleNotFound), errorBody(t, w).Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// HealthHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("1.2.3")
	router := gin.New()
	router.GET("/healthz", h.Liveness)

	w := doJSON(t, router, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
}

func TestHealthHandler_ReadinessHealthy(t *testing.T) {
	h := NewHealthHandler("test",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis"})
	router := gin.New()
	router.GET("/readyz", h.Readiness)

	w := doJSON(t, router, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":{"status":"up"}`)
}

func TestHealthHandler_ReadinessDegraded(t *testing.T) {
	h := NewHealthHandler("test",
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis", err: errors.New(errors.ErrCodeCacheError, "dial tcp: connection refused")})
	router := gin.New()
	router.GET("/readyz", h.Readiness)

	w := doJSON(t, router, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), `"redis":{"status":"down"`)
}
