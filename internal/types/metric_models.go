package types

// MetricsSummary mirrors aggregator.Summary with JST display strings.
type MetricsSummary struct {
	Rows    int           `json:"rows"`
	From    string        `json:"from,omitempty"`
	To      string        `json:"to,omitempty"`
	Metrics []MetricStats `json:"metrics"`
}

type MetricStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Latest float64 `json:"latest"`
}
