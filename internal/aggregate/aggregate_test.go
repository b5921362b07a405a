package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

func segmentWith(duration float64, bitrate int64) *models.SegmentAnalysis {
	return &models.SegmentAnalysis{
		Format: models.FormatAnalysis{
			Duration: duration,
			BitRate:  bitrate,
		},
		HLS: models.HLSCompliance{Compliant: true},
	}
}

func TestAggregateEmptyBatch(t *testing.T) {
	assert.Nil(t, Aggregate(nil))
	assert.Nil(t, Aggregate([]*models.SegmentAnalysis{}))
}

func TestAggregateVacuousBitrate(t *testing.T) {
	// One segment with a duration but no bitrate: the bitrate metric has no
	// samples and must be vacuously consistent at zero.
	report := Aggregate([]*models.SegmentAnalysis{segmentWith(6.0, 0)})

	require.NotNil(t, report)
	assert.True(t, report.Bitrate.Consistent)
	assert.Equal(t, 0.0, report.Bitrate.Min)
	assert.Equal(t, 0.0, report.Bitrate.Max)
	assert.Equal(t, 0.0, report.Bitrate.Avg)

	assert.Equal(t, 6.0, report.Duration.Min)
	assert.Equal(t, 6.0, report.Duration.Max)
	assert.True(t, report.Duration.Consistent)
}

func TestAggregateDurationConsistency(t *testing.T) {
	tests := []struct {
		name       string
		durations  []float64
		consistent bool
	}{
		// (6.7-6.0)/avg ~= 0.108 > 0.10
		{"spread above threshold", []float64{6.0, 6.0, 6.7}, false},
		// (6.3-6.0)/avg ~= 0.049 < 0.10
		{"spread below threshold", []float64{6.0, 6.0, 6.3}, true},
		{"identical durations", []float64{6.0, 6.0, 6.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var segments []*models.SegmentAnalysis
			for _, d := range tt.durations {
				segments = append(segments, segmentWith(d, 0))
			}

			report := Aggregate(segments)
			require.NotNil(t, report)
			assert.Equal(t, tt.consistent, report.Duration.Consistent)
		})
	}
}

func TestAggregateSkipsMissingBitrates(t *testing.T) {
	report := Aggregate([]*models.SegmentAnalysis{
		segmentWith(6.0, 4_000_000),
		segmentWith(6.0, 0), // missing bitrate is excluded, not counted as zero
		segmentWith(6.0, 4_400_000),
	})

	require.NotNil(t, report)
	assert.Equal(t, 4_000_000.0, report.Bitrate.Min)
	assert.Equal(t, 4_400_000.0, report.Bitrate.Max)
	assert.InDelta(t, 4_200_000.0, report.Bitrate.Avg, 0.001)
	assert.True(t, report.Bitrate.Consistent)
}

func TestAggregateBitrateThreshold(t *testing.T) {
	// Spread of (6M-4M)/5M = 0.4 > 0.20
	report := Aggregate([]*models.SegmentAnalysis{
		segmentWith(6.0, 4_000_000),
		segmentWith(6.0, 6_000_000),
	})

	require.NotNil(t, report)
	assert.False(t, report.Bitrate.Consistent)
}

func TestAggregateCollectsSetsAndIssues(t *testing.T) {
	seg1 := segmentWith(6.0, 4_000_000)
	seg1.Video = &models.VideoAnalysis{Codec: "h264", Width: 1920, Height: 1080}
	seg1.Audio = &models.AudioAnalysis{Codec: "aac"}
	seg1.HLS.Issues = []string{"Video codec: vp9 is not supported by HLS"}
	seg1.HLS.Recommendations = []string{"Re-encode the video track to H.264 or HEVC for HLS playback"}

	seg2 := segmentWith(6.0, 4_000_000)
	seg2.Video = &models.VideoAnalysis{Codec: "h264", Width: 1920, Height: 1080}
	seg2.Audio = &models.AudioAnalysis{Codec: "aac"}
	seg2.HLS.Issues = []string{
		"Video codec: vp9 is not supported by HLS",
		"Segment duration: 11.20s exceeds the conventional 10s maximum",
	}
	seg2.HLS.Recommendations = []string{"Re-encode the video track to H.264 or HEVC for HLS playback"}

	report := Aggregate([]*models.SegmentAnalysis{seg1, seg2})

	require.NotNil(t, report)
	assert.Equal(t, 2, report.SegmentCount)
	assert.Equal(t, []string{"1920x1080"}, report.Resolutions)
	assert.Equal(t, []string{"h264"}, report.VideoCodecs)
	assert.Equal(t, []string{"aac"}, report.AudioCodecs)

	assert.Equal(t, 3, report.TotalIssues)
	assert.Equal(t, 2, report.IssuesByType["Video codec"])
	assert.Equal(t, 1, report.IssuesByType["Segment duration"])

	// Recommendations collapse to a deduplicated set.
	assert.Len(t, report.Recommendations, 1)
}

func TestIssueTypeBucketing(t *testing.T) {
	assert.Equal(t, "Video codec", issueType("Video codec: vp9 is not supported by HLS"))
	assert.Equal(t, "no colon here", issueType("no colon here"))
}
