package prober

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

func compliantSegmentProbe() *models.ProbeResult {
	return &models.ProbeResult{
		Format: models.FormatInfo{
			FormatName: "mpegts",
			Duration:   "6.006",
			Size:       "4500000",
			BitRate:    "5994000",
		},
		Streams: []models.StreamInfo{
			{
				CodecType:    "video",
				CodecName:    "h264",
				Width:        1920,
				Height:       1080,
				FrameRate:    "30/1",
				AvgFrameRate: "30/1",
				Duration:     "6.006",
				GOPSize:      180,
			},
			{
				CodecType:     "audio",
				CodecName:     "aac",
				Channels:      2,
				ChannelLayout: "stereo",
				SampleRate:    "48000",
				Duration:      "6.006",
			},
		},
	}
}

func hasIssueContaining(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return true
		}
	}
	return false
}

func TestAnalyzeCompliantSegment(t *testing.T) {
	analysis := Analyze(compliantSegmentProbe(), AnalyzeOptions{})

	require.NotNil(t, analysis.Video)
	require.NotNil(t, analysis.Audio)
	assert.True(t, analysis.HLS.Compliant)
	assert.Empty(t, analysis.HLS.Issues)
	assert.Equal(t, "h264", analysis.Video.Codec)
	assert.Equal(t, "1920x1080", analysis.Video.Resolution())
	assert.Equal(t, "aac", analysis.Audio.Codec)
	assert.InDelta(t, 6.006, analysis.Format.Duration, 0.001)
}

func TestAnalyzeUnsupportedVideoCodec(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Streams[0].CodecName = "vp9"

	analysis := Analyze(probe, AnalyzeOptions{})

	assert.False(t, analysis.HLS.Compliant)
	assert.True(t, hasIssueContaining(analysis.HLS.Issues, "vp9"))
	assert.NotEmpty(t, analysis.HLS.Recommendations)
}

func TestAnalyzeUnsupportedAudioCodec(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Streams[1].CodecName = "opus"

	analysis := Analyze(probe, AnalyzeOptions{})

	assert.False(t, analysis.HLS.Compliant)
	assert.True(t, hasIssueContaining(analysis.HLS.Issues, "opus"))
}

func TestAnalyzeDurationAdvisories(t *testing.T) {
	tests := []struct {
		name      string
		duration  string
		substr    string
		compliant bool
	}{
		{"too short", "1.5", "shorter than the recommended 2s minimum", true},
		{"too long", "11.2", "exceeds the conventional 10s maximum", true},
		{"in range", "6.0", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := compliantSegmentProbe()
			probe.Format.Duration = tt.duration
			probe.Streams[0].GOPSize = 0 // isolate the duration rules

			analysis := Analyze(probe, AnalyzeOptions{})

			// Duration findings are advisory, never a hard violation
			assert.Equal(t, tt.compliant, analysis.HLS.Compliant)
			if tt.substr != "" {
				assert.True(t, hasIssueContaining(analysis.HLS.Issues, tt.substr))
			} else {
				assert.Empty(t, analysis.HLS.Issues)
			}
		})
	}
}

func TestAnalyzeTargetDurationDrift(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Streams[0].GOPSize = 0

	// Sub-file segment: manifest duration 7.0 against a target of 6.0 is
	// more than 10% off.
	analysis := Analyze(probe, AnalyzeOptions{
		Duration:       7.0,
		TargetDuration: 6.0,
	})

	assert.True(t, hasIssueContaining(analysis.HLS.Issues, "deviates more than 10%"))
	assert.True(t, analysis.HLS.Compliant)

	// Whole-file probe of the same data: no manifest context, no drift rule.
	whole := Analyze(compliantSegmentProbe(), AnalyzeOptions{TargetDuration: 6.0})
	assert.False(t, hasIssueContaining(whole.HLS.Issues, "deviates"))
}

func TestAnalyzeKeyframeIntervalDrift(t *testing.T) {
	probe := compliantSegmentProbe()
	// GOP of 240 frames at 30fps is an 8s keyframe interval against a 6s
	// segment, drift well over 0.5s.
	probe.Streams[0].GOPSize = 240

	analysis := Analyze(probe, AnalyzeOptions{})

	assert.True(t, hasIssueContaining(analysis.HLS.Issues, "Keyframe interval"))
	assert.True(t, analysis.HLS.Compliant, "keyframe drift is advisory")
}

func TestAnalyzeFragmentedMP4Informational(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Format.FormatName = "mov,mp4,m4a,3gp,3g2,mj2"

	analysis := Analyze(probe, AnalyzeOptions{})

	assert.True(t, analysis.HLS.Compliant, "fMP4 is allowed, only flagged informationally")
	assert.True(t, hasIssueContaining(analysis.HLS.Issues, "protocol version 7"))
}

func TestAnalyzeInvalidContainer(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Format.FormatName = "avi"

	analysis := Analyze(probe, AnalyzeOptions{})

	assert.False(t, analysis.HLS.Compliant)
	assert.True(t, hasIssueContaining(analysis.HLS.Issues, "not a valid HLS segment container"))
}

func TestAnalyzeByteRangeOverrides(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Format.Duration = "60.0"    // the backing file
	probe.Format.Size = "45000000"    // the backing file
	probe.Format.BitRate = "60000000" // the backing file

	analysis := Analyze(probe, AnalyzeOptions{
		ByteRange: &models.ByteRange{Offset: 1000, Length: 750000},
		Duration:  6.0,
	})

	assert.InDelta(t, 6.0, analysis.Format.Duration, 0.001)
	assert.Equal(t, int64(750000), analysis.Format.Size)
	// 750000 bytes * 8 bits / 6s = 1,000,000 bps
	assert.Equal(t, int64(1_000_000), analysis.Format.BitRate)
}

func TestAnalyzeEstimatedFrameCounts(t *testing.T) {
	analysis := Analyze(compliantSegmentProbe(), AnalyzeOptions{})

	assert.True(t, analysis.Frames.Estimated)
	assert.NotEmpty(t, analysis.Frames.Note)
	// 6.006s at 30fps
	assert.Equal(t, int64(180), analysis.Frames.Count)
	assert.True(t, analysis.Packets.Estimated)
}

func TestAnalyzeDetailedFrameCounts(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Frames = []models.FrameInfo{
		{MediaType: "video", KeyFrame: 1},
		{MediaType: "video", KeyFrame: 0},
		{MediaType: "video", KeyFrame: 0},
		{MediaType: "audio", KeyFrame: 1}, // audio frames are not counted
	}
	probe.Packets = []models.PacketInfo{{}, {}, {}, {}, {}}

	analysis := Analyze(probe, AnalyzeOptions{Detailed: true})

	assert.False(t, analysis.Frames.Estimated)
	assert.Equal(t, int64(3), analysis.Frames.Count)
	assert.Equal(t, int64(1), analysis.Frames.KeyFrames)
	assert.Equal(t, int64(5), analysis.Packets.Count)
}

func TestAnalyzeSpecReferencesDeduplicated(t *testing.T) {
	probe := compliantSegmentProbe()
	probe.Format.Duration = "1.5" // short duration
	probe.Streams[0].GOPSize = 0

	// Both the short-duration rule and the drift rule cite the same section
	analysis := Analyze(probe, AnalyzeOptions{Duration: 1.5, TargetDuration: 6.0})

	sections := make(map[string]int)
	for _, spec := range analysis.HLS.Specs {
		sections[spec.Section]++
	}
	for section, count := range sections {
		assert.Equal(t, 1, count, "spec %s cited more than once", section)
	}
}

func TestAnalyzeMissingStreams(t *testing.T) {
	probe := &models.ProbeResult{
		Format: models.FormatInfo{FormatName: "mpegts", Duration: "6.0"},
	}

	analysis := Analyze(probe, AnalyzeOptions{})

	assert.Nil(t, analysis.Video)
	assert.Nil(t, analysis.Audio)
	assert.True(t, analysis.HLS.Compliant)
}
