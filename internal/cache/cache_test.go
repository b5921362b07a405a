package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	// Create a mini Redis server for testing
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if cache == nil {
		t.Fatal("Cache should not be nil")
	}

	// Test ping
	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_SegmentAnalysis(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	entry := &models.SegmentCacheEntry{
		Raw: &models.ProbeResult{
			Format: models.FormatInfo{
				FormatName: "mpegts",
				Duration:   "6.006",
			},
		},
		Analysis: &models.SegmentAnalysis{
			Format: models.FormatAnalysis{
				Container: "mpegts",
				Duration:  6.006,
			},
			HLS: models.HLSCompliance{Compliant: true},
		},
	}

	err := cache.SetSegmentAnalysis(ctx, 3, "segment_003.ts", entry, 5*time.Minute)
	if err != nil {
		t.Fatalf("SetSegmentAnalysis failed: %v", err)
	}

	retrieved, err := cache.GetSegmentAnalysis(ctx, 3, "segment_003.ts")
	if err != nil {
		t.Fatalf("GetSegmentAnalysis failed: %v", err)
	}

	if retrieved == nil {
		t.Fatal("Retrieved entry should not be nil")
	}

	if retrieved.Analysis.Format.Duration != 6.006 {
		t.Errorf("Expected duration 6.006, got %f", retrieved.Analysis.Format.Duration)
	}

	if !retrieved.Analysis.HLS.Compliant {
		t.Error("Expected compliant analysis")
	}
}

func TestCache_SegmentIdentityIncludesIndex(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	entry := &models.SegmentCacheEntry{
		Analysis: &models.SegmentAnalysis{
			Format: models.FormatAnalysis{Duration: 6.0},
		},
	}

	if err := cache.SetSegmentAnalysis(ctx, 0, "seg.ts", entry, time.Minute); err != nil {
		t.Fatalf("SetSegmentAnalysis failed: %v", err)
	}

	// Same URI at a different index must be a miss
	retrieved, err := cache.GetSegmentAnalysis(ctx, 1, "seg.ts")
	if err != nil {
		t.Fatalf("GetSegmentAnalysis failed: %v", err)
	}

	if retrieved != nil {
		t.Error("Expected cache miss for a different segment index")
	}
}

func TestCache_GetNonExistentSegment(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	entry, err := cache.GetSegmentAnalysis(ctx, 99, "missing.ts")
	if err != nil {
		t.Errorf("GetSegmentAnalysis should not error for cache miss: %v", err)
	}

	if entry != nil {
		t.Error("Entry should be nil for non-existent segment")
	}
}

func TestCache_DeleteSegmentAnalysis(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	entry := &models.SegmentCacheEntry{
		Analysis: &models.SegmentAnalysis{},
	}

	if err := cache.SetSegmentAnalysis(ctx, 0, "seg.ts", entry, time.Minute); err != nil {
		t.Fatalf("SetSegmentAnalysis failed: %v", err)
	}

	if err := cache.DeleteSegmentAnalysis(ctx, 0, "seg.ts"); err != nil {
		t.Fatalf("DeleteSegmentAnalysis failed: %v", err)
	}

	retrieved, err := cache.GetSegmentAnalysis(ctx, 0, "seg.ts")
	if err != nil {
		t.Fatalf("GetSegmentAnalysis failed: %v", err)
	}

	if retrieved != nil {
		t.Error("Entry should be nil after deletion")
	}
}

func TestCache_InvalidateSegments(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	entry := &models.SegmentCacheEntry{
		Analysis: &models.SegmentAnalysis{},
	}

	for i := 0; i < 5; i++ {
		uri := "segment.ts"
		if err := cache.SetSegmentAnalysis(ctx, i, uri, entry, time.Minute); err != nil {
			t.Fatalf("SetSegmentAnalysis failed: %v", err)
		}
	}

	// A corruption report keyed outside the segment namespace must survive
	report := &models.CorruptionReport{VideoID: "vid-1", Filename: "vid.mp4"}
	if err := cache.SetCorruptionReport(ctx, "vid-1", report, time.Minute); err != nil {
		t.Fatalf("SetCorruptionReport failed: %v", err)
	}

	if err := cache.InvalidateSegments(ctx); err != nil {
		t.Fatalf("InvalidateSegments failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		retrieved, err := cache.GetSegmentAnalysis(ctx, i, "segment.ts")
		if err != nil {
			t.Fatalf("GetSegmentAnalysis failed: %v", err)
		}
		if retrieved != nil {
			t.Errorf("Segment %d should have been invalidated", i)
		}
	}

	kept, err := cache.GetCorruptionReport(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetCorruptionReport failed: %v", err)
	}
	if kept == nil {
		t.Error("Corruption report should survive segment invalidation")
	}
}

func TestCache_CorruptionReport(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	report := &models.CorruptionReport{
		VideoID:  "vid-2",
		Filename: "broken.mp4",
		FileSize: 1024,
		Issues: []models.CorruptionIssue{
			{
				Type:     "Missing Container Metadata",
				Severity: models.SeverityCritical,
			},
		},
	}

	if err := cache.SetCorruptionReport(ctx, report.VideoID, report, time.Minute); err != nil {
		t.Fatalf("SetCorruptionReport failed: %v", err)
	}

	retrieved, err := cache.GetCorruptionReport(ctx, report.VideoID)
	if err != nil {
		t.Fatalf("GetCorruptionReport failed: %v", err)
	}

	if retrieved == nil {
		t.Fatal("Retrieved report should not be nil")
	}

	if len(retrieved.Issues) != 1 {
		t.Fatalf("Expected 1 issue, got %d", len(retrieved.Issues))
	}

	if retrieved.Issues[0].Severity != models.SeverityCritical {
		t.Errorf("Expected critical severity, got %s", retrieved.Issues[0].Severity)
	}

	missing, err := cache.GetCorruptionReport(ctx, "no-such-video")
	if err != nil {
		t.Errorf("GetCorruptionReport should not error for cache miss: %v", err)
	}
	if missing != nil {
		t.Error("Report should be nil for unknown video ID")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	entry := &models.SegmentCacheEntry{
		Analysis: &models.SegmentAnalysis{},
	}

	if err := cache.SetSegmentAnalysis(ctx, 0, "seg.ts", entry, time.Second); err != nil {
		t.Fatalf("SetSegmentAnalysis failed: %v", err)
	}

	// miniredis lets us advance time instead of sleeping
	mr.FastForward(2 * time.Second)

	retrieved, err := cache.GetSegmentAnalysis(ctx, 0, "seg.ts")
	if err != nil {
		t.Fatalf("GetSegmentAnalysis failed: %v", err)
	}

	if retrieved != nil {
		t.Error("Entry should have expired")
	}
}
