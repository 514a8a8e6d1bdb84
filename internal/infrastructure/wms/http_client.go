package wms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to a real WMS over its JSON API. The request timeout is
// the only client-side bound; retry policy lives with the callers (broker
// consumers requeue, reconciliation fails the sync request).
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Allocate(ctx context.Context, req AllocationRequest) error {
	return c.post(ctx, "/api/allocations", req)
}

func (c *HTTPClient) Release(ctx context.Context, req AllocationRequest) error {
	return c.post(ctx, "/api/releases", req)
}

// Snapshot fetches WMS-side quantities. Scoped to one batch when
// query.BatchID is set, incremental when query.Since is set, full otherwise.
func (c *HTTPClient) Snapshot(ctx context.Context, query SnapshotQuery) (*SnapshotResult, error) {
	endpoint := c.baseURL + "/api/snapshots"

	params := url.Values{}
	if query.BatchID != nil {
		params.Set("batchId", *query.BatchID)
	}
	if query.Since != nil {
		params.Set("since", *query.Since)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		Batches []struct {
			WmsBatchID    string    `json:"wmsBatchId"`
			Orderable     int       `json:"orderable"`
			Unallocatable *int      `json:"unallocatable"`
			ReportedAt    time.Time `json:"reportedAt"`
		} `json:"batches"`
		NextToken *string `json:"nextToken"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot response: %w", err)
	}

	result := &SnapshotResult{NextToken: payload.NextToken}
	for _, b := range payload.Batches {
		raw, _ := json.Marshal(b)
		result.Entries = append(result.Entries, SnapshotEntry{
			WmsBatchID:    b.WmsBatchID,
			Orderable:     b.Orderable,
			Unallocatable: b.Unallocatable,
			ReportedAt:    b.ReportedAt,
			Raw:           raw,
		})
	}

	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal wms request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build wms request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("wms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
