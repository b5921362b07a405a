package models

import "fmt"

// SegmentAnalysis is the normalized view of one probed segment plus its HLS
// compliance verdict. Created once per probe call and never mutated after.
type SegmentAnalysis struct {
	Format  FormatAnalysis `json:"format"`
	Video   *VideoAnalysis `json:"video,omitempty"`
	Audio   *AudioAnalysis `json:"audio,omitempty"`
	Frames  FrameSummary   `json:"frames"`
	Packets PacketSummary  `json:"packets"`
	HLS     HLSCompliance  `json:"hls_compliance"`
}

// FormatAnalysis is the normalized container projection. Duration and size
// reflect manifest-supplied overrides when the segment is a byte-range slice
// of a larger backing file.
type FormatAnalysis struct {
	Container     string            `json:"container"`
	ContainerLong string            `json:"container_long_name,omitempty"`
	Duration      float64           `json:"duration"`
	Size          int64             `json:"size"`
	BitRate       int64             `json:"bit_rate"`
	StreamCount   int               `json:"stream_count"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// VideoAnalysis is the fixed field projection of the first video stream
type VideoAnalysis struct {
	Codec              string            `json:"codec"`
	Profile            string            `json:"profile,omitempty"`
	Level              int               `json:"level,omitempty"`
	Width              int               `json:"width"`
	Height             int               `json:"height"`
	CodedWidth         int               `json:"coded_width,omitempty"`
	CodedHeight        int               `json:"coded_height,omitempty"`
	HasBFrames         bool              `json:"has_b_frames"`
	PixelFormat        string            `json:"pixel_format,omitempty"`
	BitRate            int64             `json:"bit_rate,omitempty"`
	MaxBitRate         int64             `json:"max_bit_rate,omitempty"`
	FrameRate          float64           `json:"frame_rate"`
	AvgFrameRate       float64           `json:"avg_frame_rate"`
	TimeBase           string            `json:"time_base,omitempty"`
	StartPTS           int64             `json:"start_pts,omitempty"`
	StartTime          float64           `json:"start_time,omitempty"`
	DurationTS         int64             `json:"duration_ts,omitempty"`
	Duration           float64           `json:"duration,omitempty"`
	FrameCount         int64             `json:"frame_count,omitempty"`
	GOPSize            int               `json:"gop_size,omitempty"`
	SampleAspectRatio  string            `json:"sample_aspect_ratio,omitempty"`
	DisplayAspectRatio string            `json:"display_aspect_ratio,omitempty"`
	IsAVC              bool              `json:"is_avc,omitempty"`
	NALLengthSize      string            `json:"nal_length_size,omitempty"`
	RefFrames          int               `json:"ref_frames,omitempty"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// Resolution returns "WxH" or "Unknown" when dimensions are missing.
func (v *VideoAnalysis) Resolution() string {
	if v == nil || v.Width <= 0 || v.Height <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// AudioAnalysis is the fixed field projection of the first audio stream
type AudioAnalysis struct {
	Codec         string            `json:"codec"`
	Profile       string            `json:"profile,omitempty"`
	SampleRate    int64             `json:"sample_rate"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout,omitempty"`
	BitDepth      string            `json:"bit_depth,omitempty"`
	BitRate       int64             `json:"bit_rate,omitempty"`
	MaxBitRate    int64             `json:"max_bit_rate,omitempty"`
	TimeBase      string            `json:"time_base,omitempty"`
	StartPTS      int64             `json:"start_pts,omitempty"`
	StartTime     float64           `json:"start_time,omitempty"`
	DurationTS    int64             `json:"duration_ts,omitempty"`
	Duration      float64           `json:"duration,omitempty"`
	FrameCount    int64             `json:"frame_count,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// FrameSummary summarizes frame-level data. When the probe ran in
// non-detailed mode the counts are estimates and Estimated is set, so
// consumers can tell "no data" from "not requested".
type FrameSummary struct {
	Estimated bool   `json:"estimated"`
	Note      string `json:"note,omitempty"`
	Count     int64  `json:"count"`
	KeyFrames int64  `json:"key_frames"`
}

// PacketSummary summarizes packet-level data, mirroring FrameSummary.
type PacketSummary struct {
	Estimated bool   `json:"estimated"`
	Note      string `json:"note,omitempty"`
	Count     int64  `json:"count"`
}

// HLSCompliance is the per-segment verdict. Compliant is false only when a
// hard rule (codec or container) fired; the itemized issue list is the
// ground truth and also carries advisory duration findings.
type HLSCompliance struct {
	Compliant       bool            `json:"compliant"`
	Issues          []string        `json:"issues"`
	Recommendations []string        `json:"recommendations"`
	Specs           []SpecReference `json:"specs"`
}

// SpecReference cites the protocol section behind a finding
type SpecReference struct {
	Section     string `json:"section"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// SegmentCacheEntry is the cached payload for one probed segment, keyed by
// (segment index, segment URI).
type SegmentCacheEntry struct {
	Raw      *ProbeResult     `json:"raw,omitempty"`
	Analysis *SegmentAnalysis `json:"analysis,omitempty"`
}
