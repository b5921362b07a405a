package models

import (
	"strconv"
	"strings"
)

// ProbeResult is the raw structured payload returned by the external
// media-inspection service for one resource. The tool emits loosely-typed
// JSON (numerics arrive as strings, fields come and go between container
// formats), so every accessor degrades to a zero value instead of failing.
type ProbeResult struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
	Frames  []FrameInfo  `json:"frames,omitempty"`
	Packets []PacketInfo `json:"packets,omitempty"`
}

// FirstStream returns the first stream of the given codec type, or nil.
func (p *ProbeResult) FirstStream(codecType string) *StreamInfo {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}
	return nil
}

// FormatInfo holds container-level information
type FormatInfo struct {
	Filename       string            `json:"filename"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	StreamCount    int               `json:"nb_streams"`
	StartTime      string            `json:"start_time"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// DurationSeconds returns the container duration, 0 when absent or unparseable.
func (f FormatInfo) DurationSeconds() float64 {
	return parseFloatOrZero(f.Duration)
}

// SizeBytes returns the container size, 0 when absent or unparseable.
func (f FormatInfo) SizeBytes() int64 {
	return parseIntOrZero(f.Size)
}

// BitRateBPS returns the container bit rate in bits/sec, 0 when unknown.
func (f FormatInfo) BitRateBPS() int64 {
	return parseIntOrZero(f.BitRate)
}

// StreamInfo holds per-stream information. Video and audio streams share the
// struct; type-specific fields are simply zero for the other kind.
type StreamInfo struct {
	Index              int               `json:"index"`
	CodecType          string            `json:"codec_type"`
	CodecName          string            `json:"codec_name"`
	CodecLongName      string            `json:"codec_long_name"`
	Profile            string            `json:"profile"`
	Level              int               `json:"level"`
	Width              int               `json:"width"`
	Height             int               `json:"height"`
	CodedWidth         int               `json:"coded_width"`
	CodedHeight        int               `json:"coded_height"`
	HasBFrames         int               `json:"has_b_frames"`
	PixFmt             string            `json:"pix_fmt"`
	SampleAspectRatio  string            `json:"sample_aspect_ratio"`
	DisplayAspectRatio string            `json:"display_aspect_ratio"`
	FrameRate          string            `json:"r_frame_rate"`
	AvgFrameRate       string            `json:"avg_frame_rate"`
	TimeBase           string            `json:"time_base"`
	StartPTS           int64             `json:"start_pts"`
	StartTime          string            `json:"start_time"`
	DurationTS         int64             `json:"duration_ts"`
	Duration           string            `json:"duration"`
	BitRate            string            `json:"bit_rate"`
	MaxBitRate         string            `json:"max_bit_rate"`
	BitsPerRawSample   string            `json:"bits_per_raw_sample"`
	FrameCount         string            `json:"nb_frames"`
	GOPSize            int               `json:"gop_size"`
	IsAVC              string            `json:"is_avc"`
	NALLengthSize      string            `json:"nal_length_size"`
	Refs               int               `json:"refs"`
	SampleFmt          string            `json:"sample_fmt"`
	SampleRate         string            `json:"sample_rate"`
	Channels           int               `json:"channels"`
	ChannelLayout      string            `json:"channel_layout"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// FPS returns the stream frame rate, preferring the average rate and falling
// back to the real rate. Unknown rates ("0/0", missing) return 0.
func (s StreamInfo) FPS() float64 {
	if fps := ParseFrameRate(s.AvgFrameRate); fps > 0 {
		return fps
	}
	return ParseFrameRate(s.FrameRate)
}

// DurationSeconds returns the stream duration, 0 when unknown.
func (s StreamInfo) DurationSeconds() float64 {
	return parseFloatOrZero(s.Duration)
}

// StartSeconds returns the stream start time, 0 when unknown.
func (s StreamInfo) StartSeconds() float64 {
	return parseFloatOrZero(s.StartTime)
}

// BitRateBPS returns the stream bit rate in bits/sec, 0 when unknown.
func (s StreamInfo) BitRateBPS() int64 {
	return parseIntOrZero(s.BitRate)
}

// FrameInfo holds per-frame data, only populated by detailed probes
type FrameInfo struct {
	MediaType string `json:"media_type"`
	KeyFrame  int    `json:"key_frame"`
	PTS       int64  `json:"pts"`
	PTSTime   string `json:"pts_time"`
	PictType  string `json:"pict_type"`
	Size      string `json:"pkt_size"`
}

// PacketInfo holds per-packet data, only populated by detailed probes
type PacketInfo struct {
	CodecType string `json:"codec_type"`
	PTS       int64  `json:"pts"`
	DTS       int64  `json:"dts"`
	Size      string `json:"size"`
	Flags     string `json:"flags"`
}

// ParseFrameRate parses a "num/den" rational frame rate string. "0/0" and
// malformed input yield 0 rather than an error; a bare number is accepted.
func ParseFrameRate(s string) float64 {
	if s == "" {
		return 0
	}
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 1 {
		return parseFloatOrZero(parts[0])
	}
	num := parseFloatOrZero(parts[0])
	den := parseFloatOrZero(parts[1])
	if den == 0 {
		return 0
	}
	return num / den
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntOrZero(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		// The tool occasionally reports integral fields as floats.
		if f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return v
}
