package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ReviewClient covers the correction endpoints.
type ReviewClient struct {
	client *Client
}

// CorrectionRequest is the body of POST /api/v1/records/:id/corrections.
// Either set Confirmed to approve the stored extraction, or supply the
// corrected evidence text and result for a field.
type CorrectionRequest struct {
	Field           string                    `json:"field"`
	Confirmed       bool                      `json:"confirmed"`
	CorrectedText   string                    `json:"correctedText,omitempty"`
	CorrectedResult json.RawMessage           `json:"correctedResult,omitempty"`
	Template        *types.ExtractionTemplate `json:"template,omitempty"`
	Reviewer        string                    `json:"reviewer,omitempty"`
}

// Submit files a correction against a stored parse record.
func (rc *ReviewClient) Submit(ctx context.Context, recordID string, req *CorrectionRequest) (*types.Correction, error) {
	var correction types.Correction
	path := fmt.Sprintf("/api/v1/records/%s/corrections", url.PathEscape(recordID))
	if err := rc.client.post(ctx, path, req, &correction); err != nil {
		return nil, err
	}
	return &correction, nil
}

// List returns the corrections filed against a record.
func (rc *ReviewClient) List(ctx context.Context, recordID string) ([]types.Correction, error) {
	var resp struct {
		Corrections []types.Correction `json:"corrections"`
	}
	path := fmt.Sprintf("/api/v1/records/%s/corrections", url.PathEscape(recordID))
	if err := rc.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Corrections, nil
}
