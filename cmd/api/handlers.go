package main

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/aggregate"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/corruption"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/manifest"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/metrics"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/prober"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/tracing"
	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if api.cache != nil {
		if err := api.cache.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Analyze manifest endpoint
func (api *API) analyzeManifest(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span, ctx := tracing.StartSpan(c.Request.Context(), "manifest.analyze")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "manifest.url", req.URL)

	logger := api.logger.WithManifestURL(req.URL)

	content, baseURL, err := api.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		tracing.LogError(span, err)
		logger.ErrorWithErr("Failed to fetch manifest", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	playlist := manifest.Parse(content, baseURL)
	manifest.ResolvePlaylist(playlist)
	metrics.RecordManifestParse(playlist.Type)

	// A changed manifest shifts segment indices, so analyses cached for the
	// old layout are stale.
	if api.cache != nil {
		if err := api.cache.InvalidateSegments(ctx); err != nil {
			logger.LogCacheOperation("invalidate", "segment:*", false, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"url":      req.URL,
		"playlist": playlist,
		"summary": gin.H{
			"type":          playlist.Type,
			"segmentCount":  len(playlist.Segments),
			"totalDuration": playlist.TotalDuration(),
			"qualityLevels": len(playlist.QualityLevels),
		},
	})
}

type probeSegmentRequest struct {
	URL            string            `json:"url" binding:"required"`
	InitURL        string            `json:"initUrl"`
	Detailed       bool              `json:"detailed"`
	ByteRange      *models.ByteRange `json:"byteRange"`
	Duration       float64           `json:"duration"`
	TargetDuration float64           `json:"targetDuration"`
}

// Probe single segment endpoint
func (api *API) probeSegment(c *gin.Context) {
	var req probeSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span, ctx := tracing.StartSpan(c.Request.Context(), "segment.probe")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "segment.url", req.URL)

	start := time.Now()
	resp, err := api.client.Probe(ctx, prober.ProbeRequest{
		URL:      req.URL,
		InitURL:  req.InitURL,
		Detailed: req.Detailed,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		tracing.LogError(span, err)
		metrics.RecordProbe("single", "error", elapsed)
		status := http.StatusBadGateway
		if errors.Is(err, prober.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if !resp.Success || resp.Data == nil {
		metrics.RecordProbe("single", "failed", elapsed)
		c.JSON(http.StatusBadGateway, gin.H{"error": resp.Error})
		return
	}

	analysis := prober.Analyze(resp.Data, prober.AnalyzeOptions{
		ByteRange:      req.ByteRange,
		Duration:       req.Duration,
		TargetDuration: req.TargetDuration,
		Detailed:       req.Detailed,
	})
	metrics.RecordProbe("single", "ok", elapsed)

	c.JSON(http.StatusOK, gin.H{
		"segmentUrl": req.URL,
		"raw":        resp.Data,
		"analysis":   analysis,
	})
}

// Probe batch endpoint. Always 200: failures are per-item records.
func (api *API) probeBatch(c *gin.Context) {
	var req struct {
		Segments []prober.SegmentRequest `json:"segments" binding:"required"`
		Detailed bool                    `json:"detailed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Segments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segments list is empty"})
		return
	}

	span, ctx := tracing.StartSpan(c.Request.Context(), "segment.probe_batch")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "batch.size", len(req.Segments))

	results := api.batch.ProbeAll(ctx, req.Segments, req.Detailed)

	var analyses []*models.SegmentAnalysis
	for _, result := range results {
		if result.Success && result.Analysis != nil {
			analyses = append(analyses, result.Analysis)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":           results,
		"aggregateAnalysis": aggregate.Aggregate(analyses),
		"batchMode":         true,
	})
}

// Corruption check endpoint. Accepts either JSON {videoId, url, filename}
// pointing at fetchable media, or a multipart upload with a "file" part.
func (api *API) checkCorruption(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		api.checkCorruptionUpload(c)
		return
	}

	var req struct {
		VideoID  string `json:"videoId"`
		URL      string `json:"url"`
		Filename string `json:"filename" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	span, ctx := tracing.StartSpan(c.Request.Context(), "corruption.check")
	defer tracing.FinishSpan(span)

	// A caller-supplied video ID identifies the file; reuse its report
	if cached := api.cachedCorruptionReport(ctx, req.VideoID); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}
	if req.VideoID == "" {
		req.VideoID = uuid.New().String()
	}
	tracing.SetTag(span, "video.id", req.VideoID)

	resp, err := api.client.Probe(ctx, prober.ProbeRequest{URL: req.URL, Detailed: true})
	if err != nil {
		tracing.LogError(span, err)
	}
	api.finishCorruptionCheck(c, req.VideoID, req.Filename, resp, err)
}

func (api *API) checkCorruptionUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no media file provided"})
		return
	}

	span, ctx := tracing.StartSpan(c.Request.Context(), "corruption.check_upload")
	defer tracing.FinishSpan(span)

	videoID := c.PostForm("videoId")
	if cached := api.cachedCorruptionReport(ctx, videoID); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}
	if videoID == "" {
		videoID = uuid.New().String()
	}
	tracing.SetTag(span, "video.id", videoID)

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable media file"})
		return
	}
	defer file.Close()

	// Prefer staging: the inspection service fetches the bytes through a
	// presigned URL and the staged object is removed once the check is done.
	if api.storage != nil {
		resp, staged, err := api.probeStaged(ctx, videoID, fileHeader, file)
		if staged {
			if err != nil {
				tracing.LogError(span, err)
			}
			api.finishCorruptionCheck(c, videoID, fileHeader.Filename, resp, err)
			return
		}
		// Staging was not possible; rewind and upload the bytes directly
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rewind upload"})
			return
		}
	}

	resp, err := api.client.ProbeFile(ctx, file, fileHeader.Filename, true)
	if err != nil {
		tracing.LogError(span, err)
	}
	api.finishCorruptionCheck(c, videoID, fileHeader.Filename, resp, err)
}

// probeStaged stages the upload in object storage and probes it through a
// presigned URL. staged is false when the object could not be staged or
// presigned, in which case the caller falls back to a direct upload.
func (api *API) probeStaged(ctx context.Context, videoID string, header *multipart.FileHeader, file multipart.File) (resp *prober.ProbeResponse, staged bool, err error) {
	logger := api.logger.WithVideoID(videoID)

	start := time.Now()
	objectName, err := api.storage.StageUpload(ctx, videoID, header.Filename, file, header.Size)
	logger.LogStorageOperation("stage", api.cfg.Storage.BucketName, objectName, header.Size, time.Since(start), err)
	if err != nil {
		return nil, false, nil
	}

	defer func() {
		start := time.Now()
		removeErr := api.storage.Remove(ctx, objectName)
		logger.LogStorageOperation("remove", api.cfg.Storage.BucketName, objectName, 0, time.Since(start), removeErr)
	}()

	url, err := api.storage.PresignedURL(ctx, objectName, api.cfg.Storage.PresignExpiry)
	if err != nil {
		logger.ErrorWithErr("Failed to presign staged object", err)
		return nil, false, nil
	}

	resp, err = api.client.Probe(ctx, prober.ProbeRequest{URL: url, Detailed: true})
	return resp, true, err
}

// cachedCorruptionReport returns an earlier report for a caller-supplied
// video ID, or nil when there is none.
func (api *API) cachedCorruptionReport(ctx context.Context, videoID string) *models.CorruptionReport {
	if api.cache == nil || videoID == "" {
		return nil
	}

	report, err := api.cache.GetCorruptionReport(ctx, videoID)
	if err != nil {
		api.logger.WithVideoID(videoID).LogCacheOperation("get", videoID, false, err)
		return nil
	}
	api.logger.WithVideoID(videoID).LogCacheOperation("get", videoID, report != nil, nil)
	return report
}

func (api *API) finishCorruptionCheck(c *gin.Context, videoID, filename string, resp *prober.ProbeResponse, err error) {
	if err != nil {
		metrics.RecordCorruptionCheck("error", nil)
		status := http.StatusBadGateway
		if errors.Is(err, prober.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	var probe *models.ProbeResult
	var diagnostic string
	if resp != nil {
		probe = resp.Data
		diagnostic = resp.Stderr
		if diagnostic == "" {
			diagnostic = resp.Error
		}
	}

	result := corruption.Analyze(probe, diagnostic, filename)

	report := &models.CorruptionReport{
		VideoID:    videoID,
		Filename:   filename,
		Issues:     result.Issues,
		Metadata:   result.Metadata,
		AnalyzedAt: time.Now().UTC(),
		RawOutput:  diagnostic,
	}
	if probe != nil {
		report.FileSize = probe.Format.SizeBytes()
	}

	severities := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		severities = append(severities, issue.Severity)
	}
	metrics.RecordCorruptionCheck("ok", severities)

	if api.cache != nil {
		if err := api.cache.SetCorruptionReport(c.Request.Context(), videoID, report, api.cfg.Prober.CacheTTL); err != nil {
			api.logger.WithVideoID(videoID).LogCacheOperation("set", videoID, false, err)
		}
	}

	c.JSON(http.StatusOK, report)
}
