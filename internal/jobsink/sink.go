// Package jobsink posts completed-round stats to an external HTTP endpoint
// (SPEC_FULL.md §4's job.* block, satisfying spec §4.6 Aggregate's
// "optionally posts the round stats to an external HTTP endpoint
// (best-effort, log on failure, do not fail the round)"). Grounded on
// net/http used directly the way pkg/monitoring/api.go talks to its own
// HTTP surface, carrying the job_id/job_token the way that package's
// AuthManager carries bearer tokens.
package jobsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ishaileshpant/fl-go/internal/eventfabric"
)

// Sink implements engine.StatsSink by POSTing stats as JSON to Route.
type Sink struct {
	Route    string
	JobID    string
	JobToken string
	Client   *http.Client
}

// New builds a Sink; a zero-value http.Client timeout of 10s is applied
// when client is nil, matching the best-effort "do not fail the round"
// contract (a hung request must not block the engine indefinitely).
func New(route, jobID, jobToken string, client *http.Client) *Sink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sink{Route: route, JobID: jobID, JobToken: jobToken, Client: client}
}

type statsReport struct {
	JobID   string                  `json:"job_id"`
	Entries []eventfabric.StatEntry `json:"entries"`
}

// PostStats implements engine.StatsSink.
func (s *Sink) PostStats(ctx context.Context, stats eventfabric.Stats) error {
	if s.Route == "" {
		return nil
	}
	body, err := json.Marshal(statsReport{JobID: s.JobID, Entries: stats.Entries})
	if err != nil {
		return fmt.Errorf("jobsink: marshal stats: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Route, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("jobsink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.JobToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.JobToken)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("jobsink: post stats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("jobsink: unexpected status %d", resp.StatusCode)
	}
	return nil
}
