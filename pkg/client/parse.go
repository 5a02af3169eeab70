package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ParseClient covers the parse and parse-record endpoints.
type ParseClient struct {
	client *Client
}

// ParseRequest is the body of POST /api/v1/parse.
type ParseRequest struct {
	ClauseText string `json:"clauseText"`
	Category   string `json:"category"`
	Store      *bool  `json:"store,omitempty"`
}

// ParseResponse is the result of a parse call.
type ParseResponse struct {
	RecordID string             `json:"recordId,omitempty"`
	Category string             `json:"category"`
	Result   *types.ParseResult `json:"result"`
	Cached   bool               `json:"cached"`
}

// ListRecordsOptions filters GET /api/v1/records.
type ListRecordsOptions struct {
	Category      string
	AmountType    string
	Status        string
	MinConfidence float64
	Page          int
	PageSize      int
}

// RecordList is a paginated record listing.
type RecordList struct {
	Records  []*types.ParseRecord `json:"records"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

// Parse submits clause text for extraction.
func (pc *ParseClient) Parse(ctx context.Context, req *ParseRequest) (*ParseResponse, error) {
	var resp ParseResponse
	if err := pc.client.post(ctx, "/api/v1/parse", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRecord fetches a stored parse record by ID.
func (pc *ParseClient) GetRecord(ctx context.Context, recordID string) (*types.ParseRecord, error) {
	var rec types.ParseRecord
	path := fmt.Sprintf("/api/v1/records/%s", url.PathEscape(recordID))
	if err := pc.client.get(ctx, path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords pages through stored parse records.
func (pc *ParseClient) ListRecords(ctx context.Context, opts *ListRecordsOptions) (*RecordList, error) {
	q := url.Values{}
	if opts != nil {
		if opts.Category != "" {
			q.Set("category", opts.Category)
		}
		if opts.AmountType != "" {
			q.Set("amount_type", opts.AmountType)
		}
		if opts.Status != "" {
			q.Set("status", opts.Status)
		}
		if opts.MinConfidence > 0 {
			q.Set("min_confidence", strconv.FormatFloat(opts.MinConfidence, 'f', -1, 64))
		}
		if opts.Page > 0 {
			q.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			q.Set("page_size", strconv.Itoa(opts.PageSize))
		}
	}

	path := "/api/v1/records"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list RecordList
	if err := pc.client.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteRecord removes a stored parse record.
func (pc *ParseClient) DeleteRecord(ctx context.Context, recordID string) error {
	path := fmt.Sprintf("/api/v1/records/%s", url.PathEscape(recordID))
	return pc.client.delete(ctx, path)
}
