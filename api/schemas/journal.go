package schemas

import "time"

// -- Run Journal Schemas --

// RunRecord describes a run when it starts.
type RunRecord struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Mode      string    `json:"mode"`
	StartURL  string    `json:"start_url"`
	StartedAt time.Time `json:"started_at"`
}

// StepRecord is one executed step of a run.
type StepRecord struct {
	RunID     string    `json:"run_id"`
	Cycle     int       `json:"cycle"`
	Action    string    `json:"action"`
	ElementID *int      `json:"element_id,omitempty"`
	Label     string    `json:"label,omitempty"`
	Status    string    `json:"status"`
	ErrorCode string    `json:"error_code,omitempty"`
	History   string    `json:"history,omitempty"`
	At        time.Time `json:"at"`
}

// RunSummary is how a run ended.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Goal       string    `json:"goal,omitempty"`
	Status     string    `json:"status"`
	Steps      int       `json:"steps"`
	History    string    `json:"history"`
	FinishedAt time.Time `json:"finished_at"`
}
