package models

import "time"

// Corruption issue severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// CorruptionIssue is one finding from the corruption heuristics engine
type CorruptionIssue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Detection   string `json:"detection"`
	FixCommand  string `json:"fix_command,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// CorruptionMetadata summarizes the inspected file
type CorruptionMetadata struct {
	Container  string  `json:"container"`
	Duration   float64 `json:"duration"`
	VideoCodec string  `json:"video_codec,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
}

// CorruptionReport is the full whole-file check result returned to callers
type CorruptionReport struct {
	VideoID    string             `json:"video_id"`
	Filename   string             `json:"filename"`
	FileSize   int64              `json:"file_size"`
	Issues     []CorruptionIssue  `json:"issues"`
	Metadata   CorruptionMetadata `json:"metadata"`
	AnalyzedAt time.Time          `json:"analyzed_at"`
	RawOutput  string             `json:"raw_output,omitempty"`
}
