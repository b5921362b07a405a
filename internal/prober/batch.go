package prober

import (
	"context"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/logging"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/metrics"
	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// AnalysisCache is the read-through cache for probed segments, keyed by
// (segment index, segment URI). A miss returns (nil, nil). The cache is
// owned by the caller; the batch prober works without one.
type AnalysisCache interface {
	GetSegmentAnalysis(ctx context.Context, index int, uri string) (*models.SegmentCacheEntry, error)
	SetSegmentAnalysis(ctx context.Context, index int, uri string, entry *models.SegmentCacheEntry, ttl time.Duration) error
}

// SegmentRequest identifies one segment to probe, with its manifest context
type SegmentRequest struct {
	Index          int               `json:"index"`
	URL            string            `json:"url"`
	InitURL        string            `json:"initUrl,omitempty"`
	ByteRange      *models.ByteRange `json:"byteRange,omitempty"`
	Duration       float64           `json:"duration,omitempty"`
	TargetDuration float64           `json:"targetDuration,omitempty"`
}

// BatchProber fans probe calls out across segments and collects results back
// in manifest order. Each probe is isolated: one failure never aborts or
// delays the others.
type BatchProber struct {
	client        *Client
	cache         AnalysisCache
	cacheTTL      time.Duration
	maxConcurrent int
	logger        *logging.Logger
}

// NewBatchProber creates a batch prober. cache may be nil to disable the
// read-through cache.
func NewBatchProber(client *Client, cache AnalysisCache, cacheTTL time.Duration, maxConcurrent int, logger *logging.Logger) *BatchProber {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &BatchProber{
		client:        client,
		cache:         cache,
		cacheTTL:      cacheTTL,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// ProbeAll probes every segment concurrently and returns results in the
// original segment order. Probe failures become per-item error records.
func (b *BatchProber) ProbeAll(ctx context.Context, segments []SegmentRequest, detailed bool) []models.BatchResult {
	results := make([]models.BatchResult, len(segments))

	sem := make(chan struct{}, b.maxConcurrent)
	var wg sync.WaitGroup

	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg SegmentRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = b.probeOne(ctx, seg, detailed)
		}(i, seg)
	}
	wg.Wait()

	if b.logger != nil {
		var succeeded, failed, cached int
		for _, r := range results {
			if r.Success {
				succeeded++
			} else {
				failed++
			}
			if r.Cached {
				cached++
			}
		}
		b.logger.LogBatchProgress(len(results), succeeded, failed, cached)
	}
	metrics.BatchSize.Observe(float64(len(results)))

	return results
}

func (b *BatchProber) probeOne(ctx context.Context, seg SegmentRequest, detailed bool) models.BatchResult {
	result := models.BatchResult{URL: seg.URL, Index: seg.Index}

	// Read-through: a cache hit skips the inspection call entirely.
	if b.cache != nil {
		entry, err := b.cache.GetSegmentAnalysis(ctx, seg.Index, seg.URL)
		if err == nil && entry != nil && entry.Analysis != nil {
			metrics.CacheHitsTotal.Inc()
			result.Success = true
			result.Cached = true
			result.Raw = entry.Raw
			result.Analysis = entry.Analysis
			return result
		}
		if err != nil && b.logger != nil {
			b.logger.WithSegment(seg.Index, seg.URL).LogCacheOperation("get", seg.URL, false, err)
		}
		metrics.CacheMissesTotal.Inc()
	}

	start := time.Now()
	resp, err := b.client.Probe(ctx, ProbeRequest{
		URL:      seg.URL,
		InitURL:  seg.InitURL,
		Detailed: detailed,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordProbe("segment", "error", elapsed)
		result.Error = err.Error()
		return result
	}
	if !resp.Success || resp.Data == nil {
		metrics.RecordProbe("segment", "failed", elapsed)
		result.Error = resp.Error
		if result.Error == "" {
			result.Error = "inspection service reported failure without detail"
		}
		return result
	}

	analysis := Analyze(resp.Data, AnalyzeOptions{
		ByteRange:      seg.ByteRange,
		Duration:       seg.Duration,
		TargetDuration: seg.TargetDuration,
		Detailed:       detailed,
	})

	metrics.RecordProbe("segment", "ok", elapsed)
	result.Success = true
	result.Raw = resp.Data
	result.Analysis = analysis

	if b.cache != nil {
		entry := &models.SegmentCacheEntry{Raw: resp.Data, Analysis: analysis}
		if err := b.cache.SetSegmentAnalysis(ctx, seg.Index, seg.URL, entry, b.cacheTTL); err != nil && b.logger != nil {
			b.logger.WithSegment(seg.Index, seg.URL).LogCacheOperation("set", seg.URL, false, err)
		}
	}

	return result
}
