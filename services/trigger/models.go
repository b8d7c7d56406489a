package trigger

import (
	"time"

	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/host"
)

type InstanceResponse struct {
	ID         string          `json:"id"`
	Workflow   string          `json:"workflow"`
	NodeType   string          `json:"nodeType"`
	Polling    bool            `json:"polling"`
	Parameters map[string]any  `json:"parameters,omitempty"`
	LastRun    *host.RunRecord `json:"lastRun,omitempty"`
}

type StateResponse struct {
	LastPollTime   *time.Time `json:"lastPollTime"`
	NextPollAt     *time.Time `json:"nextPollAt"`
	ProcessedCount int        `json:"processedCount"`
}

// NewStateResponse renders a cursor, reporting unset times as null.
func NewStateResponse(cur donation.Cursor) StateResponse {
	resp := StateResponse{ProcessedCount: len(cur.ProcessedIDs)}
	if !cur.LastPollTime.IsZero() {
		t := cur.LastPollTime
		resp.LastPollTime = &t
	}
	if !cur.NextPollAt.IsZero() {
		t := cur.NextPollAt
		resp.NextPollAt = &t
	}
	return resp
}

type ExecuteResponse struct {
	RunID  string         `json:"runId"`
	Status host.RunStatus `json:"status"`
	Items  []engine.Item  `json:"items"`
}

type PreviewResponse struct {
	Since time.Time     `json:"since"`
	Items []engine.Item `json:"items"`
}

type CredentialTestResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
