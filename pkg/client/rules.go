package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// RulesClient covers the learned-rule endpoints.
type RulesClient struct {
	client *Client
}

// ListRulesOptions filters GET /api/v1/rules.
type ListRulesOptions struct {
	Field    string
	Page     int
	PageSize int
}

// RuleList is a paginated learned-rule listing.
type RuleList struct {
	Rules    []types.LearnedRule `json:"rules"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// List pages through learned rules.
func (rc *RulesClient) List(ctx context.Context, opts *ListRulesOptions) (*RuleList, error) {
	q := url.Values{}
	if opts != nil {
		if opts.Field != "" {
			q.Set("field", opts.Field)
		}
		if opts.Page > 0 {
			q.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			q.Set("page_size", strconv.Itoa(opts.PageSize))
		}
	}

	path := "/api/v1/rules"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list RuleList
	if err := rc.client.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Get fetches a learned rule by ID.
func (rc *RulesClient) Get(ctx context.Context, ruleID string) (*types.LearnedRule, error) {
	var rule types.LearnedRule
	path := fmt.Sprintf("/api/v1/rules/%s", url.PathEscape(ruleID))
	if err := rc.client.get(ctx, path, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// SetEnabled toggles a learned rule.
func (rc *RulesClient) SetEnabled(ctx context.Context, ruleID string, enabled bool) error {
	path := fmt.Sprintf("/api/v1/rules/%s/enabled", url.PathEscape(ruleID))
	body := map[string]bool{"enabled": enabled}
	return rc.client.put(ctx, path, body, nil)
}
