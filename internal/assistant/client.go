// Package assistant is the HTTP client for the external AI recommendation
// service. The service itself is an opaque collaborator; this package owns
// only the request/response contract and the fixed failure state.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/canopyhq/canopy/internal/metrics"
)

// Location is one recommended coordinate with a human-readable summary.
type Location struct {
	Summary   string  `json:"summary" doc:"Human-readable location summary"`
	Latitude  float64 `json:"latitude" doc:"Latitude"`
	Longitude float64 `json:"longitude" doc:"Longitude"`
}

// Recommendation is the assistant's answer to a natural-language query.
type Recommendation struct {
	SummaryOfResults string     `json:"summary_of_results" doc:"Introduction sentence for the results"`
	Locations        []Location `json:"locations" doc:"Recommended coordinates to overlay on the map"`
	Tip              string     `json:"tip,omitempty" doc:"Optional planting tip"`
}

// Client talks to the recommendation service.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a client for the service at baseURL. A nil http.Client falls
// back to http.DefaultClient.
func New(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

// Recommend forwards a natural-language query and returns the parsed
// recommendation. Any transport, status, or decode failure is returned as an
// error; no retry is attempted. Callers present Fallback() to the user in
// that case.
func (c *Client) Recommend(ctx context.Context, query string) (*Recommendation, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/get_tree_locations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	metrics.AssistantRequestsTotal.Inc()
	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.AssistantFailTotal.Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.AssistantFailTotal.Inc()
		return nil, fmt.Errorf("assistant: status %d", resp.StatusCode)
	}

	var rec Recommendation
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		metrics.AssistantFailTotal.Inc()
		return nil, fmt.Errorf("assistant: decode: %w", err)
	}
	if rec.Locations == nil {
		rec.Locations = []Location{}
	}
	return &rec, nil
}

// Fallback is the fixed user-visible state shown when the assistant is
// unreachable: an apology and an empty location list.
func Fallback() *Recommendation {
	return &Recommendation{
		SummaryOfResults: "Sorry, the planting assistant is unavailable right now. Please try again in a moment.",
		Locations:        []Location{},
	}
}
