package types

// FetchRequest is the body of POST /api/fetch.
type FetchRequest struct {
	Count      int      `json:"count"`
	SleepAfter int      `json:"sleep_after"`
	SoundID    string   `json:"sound_id"`
	Start      string   `json:"start,omitempty"` // YYYY-MM-DD, JST
	End        string   `json:"end,omitempty"`
	Columns    []string `json:"columns,omitempty"`
}

// TableResponse carries a table as column-ordered records.
type TableResponse struct {
	SoundID    string           `json:"sound_id,omitempty"`
	Rows       int              `json:"rows"`
	Columns    []string         `json:"columns"`
	Records    []map[string]any `json:"records"`
	Summary    *MetricsSummary  `json:"summary,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
