package models

// MetricStats holds the cross-segment spread of one numeric metric.
// Min/Max/Avg only account for segments where the metric was a positive
// number; a metric with zero contributing samples is vacuously consistent.
type MetricStats struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	Consistent bool    `json:"consistent"`
}

// AggregateReport is a pure reduction over a batch of segment analyses
type AggregateReport struct {
	SegmentCount    int            `json:"segment_count"`
	Duration        MetricStats    `json:"duration"`
	Bitrate         MetricStats    `json:"bitrate"`
	Resolutions     []string       `json:"resolutions"`
	VideoCodecs     []string       `json:"video_codecs"`
	AudioCodecs     []string       `json:"audio_codecs"`
	TotalIssues     int            `json:"total_issues"`
	IssuesByType    map[string]int `json:"issues_by_type"`
	Recommendations []string       `json:"recommendations"`
}

// BatchResult is the per-segment outcome of a batch probe. A failed probe is
// isolated here instead of failing the batch.
type BatchResult struct {
	URL      string           `json:"url"`
	Index    int              `json:"index"`
	Success  bool             `json:"success"`
	Raw      *ProbeResult     `json:"raw,omitempty"`
	Analysis *SegmentAnalysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
	Cached   bool             `json:"cached,omitempty"`
}
