package aggregate

import (
	"sort"
	"strings"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// Consistency thresholds: relative spread (max-min)/avg above which a metric
// is flagged as inconsistent across the batch.
const (
	durationSpreadLimit = 0.10
	bitrateSpreadLimit  = 0.20
)

// metricAccumulator tracks min/max/sum over positive samples only, so one
// segment with a missing bitrate cannot drag the average toward zero.
type metricAccumulator struct {
	min, max, sum float64
	count         int
}

func (m *metricAccumulator) add(v float64) {
	if v <= 0 {
		return
	}
	if m.count == 0 || v < m.min {
		m.min = v
	}
	if v > m.max {
		m.max = v
	}
	m.sum += v
	m.count++
}

func (m *metricAccumulator) stats(spreadLimit float64) models.MetricStats {
	if m.count == 0 {
		// No samples: nothing to compare, so vacuously consistent.
		return models.MetricStats{Consistent: true}
	}
	avg := m.sum / float64(m.count)
	return models.MetricStats{
		Min:        m.min,
		Max:        m.max,
		Avg:        avg,
		Consistent: (m.max-m.min)/avg < spreadLimit,
	}
}

// Aggregate reduces a batch of segment analyses into one cross-segment
// report. It returns nil for an empty batch.
func Aggregate(results []*models.SegmentAnalysis) *models.AggregateReport {
	if len(results) == 0 {
		return nil
	}

	var duration, bitrate metricAccumulator
	resolutions := make(map[string]bool)
	videoCodecs := make(map[string]bool)
	audioCodecs := make(map[string]bool)
	issuesByType := make(map[string]int)
	recommendations := make(map[string]bool)
	totalIssues := 0

	for _, analysis := range results {
		if analysis == nil {
			continue
		}

		duration.add(analysis.Format.Duration)
		bitrate.add(float64(analysis.Format.BitRate))

		if analysis.Video != nil {
			if res := analysis.Video.Resolution(); res != "Unknown" {
				resolutions[res] = true
			}
			if analysis.Video.Codec != "" {
				videoCodecs[analysis.Video.Codec] = true
			}
		}
		if analysis.Audio != nil && analysis.Audio.Codec != "" {
			audioCodecs[analysis.Audio.Codec] = true
		}

		for _, issue := range analysis.HLS.Issues {
			totalIssues++
			issuesByType[issueType(issue)]++
		}
		for _, rec := range analysis.HLS.Recommendations {
			recommendations[rec] = true
		}
	}

	return &models.AggregateReport{
		SegmentCount:    len(results),
		Duration:        duration.stats(durationSpreadLimit),
		Bitrate:         bitrate.stats(bitrateSpreadLimit),
		Resolutions:     sortedKeys(resolutions),
		VideoCodecs:     sortedKeys(videoCodecs),
		AudioCodecs:     sortedKeys(audioCodecs),
		TotalIssues:     totalIssues,
		IssuesByType:    issuesByType,
		Recommendations: sortedKeys(recommendations),
	}
}

// issueType buckets an issue string by the text before its first colon,
// falling back to the whole string.
func issueType(issue string) string {
	if idx := strings.Index(issue, ":"); idx >= 0 {
		return strings.TrimSpace(issue[:idx])
	}
	return issue
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
