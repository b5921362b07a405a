package prober

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// AnalyzeOptions carries segment context from the manifest. Manifest-derived
// duration and byte range override the tool's self-reported values, because a
// byte-range slice reports the whole backing file's format metadata.
type AnalyzeOptions struct {
	ByteRange      *models.ByteRange
	Duration       float64
	TargetDuration float64
	Detailed       bool
}

var (
	hlsVideoCodecs = map[string]bool{
		"h264": true,
		"hevc": true,
		"h265": true,
	}
	hlsAudioCodecs = map[string]bool{
		"aac":    true,
		"mp3":    true,
		"ac3":    true,
		"eac3":   true,
		"ac-3":   true,
		"e-ac-3": true,
	}
)

var (
	specTargetDuration = models.SpecReference{
		Section:     "RFC 8216, Section 4.3.3.1",
		Description: "EXT-X-TARGETDURATION constrains segment durations",
		URL:         "https://datatracker.ietf.org/doc/html/rfc8216#section-4.3.3.1",
	}
	specMediaSegments = models.SpecReference{
		Section:     "RFC 8216, Section 3",
		Description: "Supported media segment formats and codecs",
		URL:         "https://datatracker.ietf.org/doc/html/rfc8216#section-3",
	}
	specFragmentedMP4 = models.SpecReference{
		Section:     "RFC 8216bis, Section 3.1",
		Description: "Fragmented MPEG-4 segments require protocol version 7",
		URL:         "https://datatracker.ietf.org/doc/html/draft-pantos-hls-rfc8216bis#section-3.1",
	}
)

// Analyze normalizes one probe result into a segment analysis and runs the
// full HLS compliance rule set. Every applicable rule is evaluated; rules do
// not short-circuit each other. Only hard rules (codec, container) flip the
// Compliant flag, duration findings stay advisory in the issue list.
func Analyze(raw *models.ProbeResult, opts AnalyzeOptions) *models.SegmentAnalysis {
	analysis := &models.SegmentAnalysis{
		Format: normalizeFormat(raw, opts),
	}

	if vs := raw.FirstStream("video"); vs != nil {
		analysis.Video = normalizeVideo(vs)
	}
	if as := raw.FirstStream("audio"); as != nil {
		analysis.Audio = normalizeAudio(as)
	}

	analysis.Frames, analysis.Packets = summarizeFramesPackets(raw, analysis, opts)
	analysis.HLS = checkCompliance(analysis, opts)

	return analysis
}

func normalizeFormat(raw *models.ProbeResult, opts AnalyzeOptions) models.FormatAnalysis {
	format := models.FormatAnalysis{
		Container:     raw.Format.FormatName,
		ContainerLong: raw.Format.FormatLongName,
		Duration:      raw.Format.DurationSeconds(),
		Size:          raw.Format.SizeBytes(),
		BitRate:       raw.Format.BitRateBPS(),
		StreamCount:   raw.Format.StreamCount,
		Tags:          raw.Format.Tags,
	}
	if format.StreamCount == 0 {
		format.StreamCount = len(raw.Streams)
	}

	// Manifest-supplied values win: for a byte-range segment the tool sees
	// the whole backing file, not the slice.
	if opts.Duration > 0 {
		format.Duration = opts.Duration
	}
	if opts.ByteRange != nil {
		format.Size = opts.ByteRange.Length
		if opts.Duration > 0 {
			format.BitRate = int64(float64(opts.ByteRange.Length) * 8 / opts.Duration)
		}
	}

	return format
}

func normalizeVideo(s *models.StreamInfo) *models.VideoAnalysis {
	return &models.VideoAnalysis{
		Codec:              s.CodecName,
		Profile:            s.Profile,
		Level:              s.Level,
		Width:              s.Width,
		Height:             s.Height,
		CodedWidth:         s.CodedWidth,
		CodedHeight:        s.CodedHeight,
		HasBFrames:         s.HasBFrames > 0,
		PixelFormat:        s.PixFmt,
		BitRate:            s.BitRateBPS(),
		MaxBitRate:         parseStreamRate(s.MaxBitRate),
		FrameRate:          models.ParseFrameRate(s.FrameRate),
		AvgFrameRate:       models.ParseFrameRate(s.AvgFrameRate),
		TimeBase:           s.TimeBase,
		StartPTS:           s.StartPTS,
		StartTime:          s.StartSeconds(),
		DurationTS:         s.DurationTS,
		Duration:           s.DurationSeconds(),
		FrameCount:         parseStreamRate(s.FrameCount),
		GOPSize:            s.GOPSize,
		SampleAspectRatio:  s.SampleAspectRatio,
		DisplayAspectRatio: s.DisplayAspectRatio,
		IsAVC:              strings.EqualFold(s.IsAVC, "true"),
		NALLengthSize:      s.NALLengthSize,
		RefFrames:          s.Refs,
		Tags:               s.Tags,
	}
}

func normalizeAudio(s *models.StreamInfo) *models.AudioAnalysis {
	return &models.AudioAnalysis{
		Codec:         s.CodecName,
		Profile:       s.Profile,
		SampleRate:    parseStreamRate(s.SampleRate),
		Channels:      s.Channels,
		ChannelLayout: s.ChannelLayout,
		BitDepth:      s.BitsPerRawSample,
		BitRate:       s.BitRateBPS(),
		MaxBitRate:    parseStreamRate(s.MaxBitRate),
		TimeBase:      s.TimeBase,
		StartPTS:      s.StartPTS,
		StartTime:     s.StartSeconds(),
		DurationTS:    s.DurationTS,
		Duration:      s.DurationSeconds(),
		FrameCount:    parseStreamRate(s.FrameCount),
		Tags:          s.Tags,
	}
}

// summarizeFramesPackets distinguishes "not requested" from "no data": in
// non-detailed mode the counts are estimates and flagged as such.
func summarizeFramesPackets(raw *models.ProbeResult, analysis *models.SegmentAnalysis, opts AnalyzeOptions) (models.FrameSummary, models.PacketSummary) {
	if opts.Detailed {
		frames := models.FrameSummary{}
		for _, f := range raw.Frames {
			if f.MediaType != "" && f.MediaType != "video" {
				continue
			}
			frames.Count++
			if f.KeyFrame == 1 {
				frames.KeyFrames++
			}
		}
		packets := models.PacketSummary{Count: int64(len(raw.Packets))}
		return frames, packets
	}

	var estimatedFrames int64
	if analysis.Video != nil && analysis.Video.AvgFrameRate > 0 {
		estimatedFrames = int64(analysis.Format.Duration * analysis.Video.AvgFrameRate)
	}

	frames := models.FrameSummary{
		Estimated: true,
		Note:      "frame counts estimated from duration and frame rate; request a detailed probe for exact values",
		Count:     estimatedFrames,
	}
	packets := models.PacketSummary{
		Estimated: true,
		Note:      "packet data not collected; request a detailed probe",
	}
	return frames, packets
}

func checkCompliance(analysis *models.SegmentAnalysis, opts AnalyzeOptions) models.HLSCompliance {
	compliance := models.HLSCompliance{
		Compliant:       true,
		Issues:          []string{},
		Recommendations: []string{},
		Specs:           []models.SpecReference{},
	}
	hard := false

	addSpec := func(ref models.SpecReference) {
		for _, existing := range compliance.Specs {
			if existing.Section == ref.Section {
				return
			}
		}
		compliance.Specs = append(compliance.Specs, ref)
	}

	duration := analysis.Format.Duration

	if duration > 0 && duration < 2 {
		compliance.Issues = append(compliance.Issues,
			fmt.Sprintf("Segment duration: %.2fs is shorter than the recommended 2s minimum", duration))
		addSpec(specTargetDuration)
	}
	if duration > 10 {
		compliance.Issues = append(compliance.Issues,
			fmt.Sprintf("Segment duration: %.2fs exceeds the conventional 10s maximum", duration))
		addSpec(specTargetDuration)
	}

	// Target-duration drift only applies to true sub-file segments, where
	// the duration came from the manifest rather than the backing file.
	isSubFile := opts.ByteRange != nil || opts.Duration > 0
	if isSubFile && opts.TargetDuration > 0 {
		if math.Abs(duration-opts.TargetDuration) > 0.1*opts.TargetDuration {
			compliance.Issues = append(compliance.Issues,
				fmt.Sprintf("Segment duration: %.2fs deviates more than 10%% from the target duration of %.2fs",
					duration, opts.TargetDuration))
			addSpec(specTargetDuration)
		}
	}

	if analysis.Video != nil {
		codec := strings.ToLower(analysis.Video.Codec)
		if codec != "" && !hlsVideoCodecs[codec] {
			hard = true
			compliance.Issues = append(compliance.Issues,
				fmt.Sprintf("Video codec: %s is not supported by HLS", analysis.Video.Codec))
			compliance.Recommendations = append(compliance.Recommendations,
				"Re-encode the video track to H.264 or HEVC for HLS playback")
			addSpec(specMediaSegments)
		}

		if analysis.Video.GOPSize > 0 {
			fps := analysis.Video.AvgFrameRate
			if fps <= 0 {
				fps = analysis.Video.FrameRate
			}
			if fps > 0 {
				keyframeInterval := float64(analysis.Video.GOPSize) / fps
				if math.Abs(keyframeInterval-duration) > 0.5 {
					compliance.Issues = append(compliance.Issues,
						fmt.Sprintf("Keyframe interval: %.2fs does not align with the segment duration of %.2fs",
							keyframeInterval, duration))
				}
			}
		}
	}

	if analysis.Audio != nil {
		codec := strings.ToLower(analysis.Audio.Codec)
		if codec != "" && !hlsAudioCodecs[codec] {
			hard = true
			compliance.Issues = append(compliance.Issues,
				fmt.Sprintf("Audio codec: %s is not supported by HLS", analysis.Audio.Codec))
			compliance.Recommendations = append(compliance.Recommendations,
				"Re-encode the audio track to AAC for HLS playback")
			addSpec(specMediaSegments)
		}
	}

	container := strings.ToLower(analysis.Format.Container)
	if container != "" && !strings.Contains(container, "mpegts") {
		if strings.Contains(container, "mp4") || strings.Contains(container, "mov") {
			compliance.Issues = append(compliance.Issues,
				"Container format: fragmented MP4 segments require HLS protocol version 7 or later")
			addSpec(specFragmentedMP4)
		} else {
			hard = true
			compliance.Issues = append(compliance.Issues,
				fmt.Sprintf("Container format: %s is not a valid HLS segment container", analysis.Format.Container))
			compliance.Recommendations = append(compliance.Recommendations,
				"Repackage segments as MPEG-TS or fragmented MP4")
			addSpec(specMediaSegments)
		}
	}

	compliance.Compliant = !hard
	return compliance
}

func parseStreamRate(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
