package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestClient_Parse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/parse", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req ParseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "disease", req.Category)

		_ = json.NewEncoder(w).Encode(ParseResponse{
			RecordID: "rec-1",
			Category: req.Category,
			Result:   &types.ParseResult{OverallConfidence: 0.9},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Parse().Parse(context.Background(), &ParseRequest{
		ClauseText: "确诊重大疾病，给付基本保险金额的150%。",
		Category:   "disease",
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", resp.RecordID)
	assert.InDelta(t, 0.9, resp.Result.OverallConfidence, 1e-9)
}

func TestClient_ListRecordsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/records", r.URL.Path)
		assert.Equal(t, "disease", r.URL.Query().Get("category"))
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(RecordList{Total: 0})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Parse().ListRecords(context.Background(), &ListRecordsOptions{
		Category: "disease",
		Status:   "pending",
		Page:     2,
	})
	require.NoError(t, err)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "CLAUSE_003",
			"message": "parse record not found",
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Parse().GetRecord(context.Background(), "missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "CLAUSE_003", apiErr.Code)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(RuleList{Total: 1})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithRetryMax(3),
		WithRetryWait(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	list, err := c.Rules().List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, int64(3), calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "COMMON_008", "message": "unknown field"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryMax(3))
	require.NoError(t, err)

	err = c.Rules().SetEnabled(context.Background(), "rule-1", true)
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestClient_SubmitCorrection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/records/rec-1/corrections", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(types.Correction{ID: "cor-1", RecordID: "rec-1"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	correction, err := c.Reviews().Submit(context.Background(), "rec-1", &CorrectionRequest{
		Field:         "payout_amount",
		CorrectedText: "给付基本保险金额的200%",
	})
	require.NoError(t, err)
	assert.Equal(t, "cor-1", string(correction.ID))
}
