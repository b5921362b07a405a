package manifest

import (
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

const (
	tagStreamInf      = "#EXT-X-STREAM-INF:"
	tagExtInf         = "#EXTINF:"
	tagByteRange      = "#EXT-X-BYTERANGE:"
	tagMap            = "#EXT-X-MAP:"
	tagVersion        = "#EXT-X-VERSION:"
	tagTargetDuration = "#EXT-X-TARGETDURATION:"

	// Segment duration assumed for bare fMP4 references when the playlist
	// carries no target duration.
	defaultSegmentDuration = 6.0
)

// resolutionByName maps the NNNp filename convention to concrete dimensions,
// used when a variant carries no RESOLUTION attribute.
var resolutionByName = map[string]string{
	"1080p": "1920x1080",
	"720p":  "1280x720",
	"480p":  "854x480",
	"360p":  "640x360",
}

// mediaExtensions are the file extensions recognized as implicit segment
// references in fMP4 playlists that omit EXTINF tags.
var mediaExtensions = []string{".ts", ".m4s", ".mp4", ".m4a", ".m4v", ".aac", ".mp3"}

// Parse turns raw M3U8 text into a structured playlist. It never fails:
// malformed input degrades to partial structures, unknown tags are skipped
// and missing numeric attributes default to zero. A document containing a
// stream-info tag anywhere is a master playlist; everything else is media.
func Parse(content, baseURI string) *models.Playlist {
	lines := splitLines(content)

	if containsStreamInf(lines) {
		return parseMaster(lines, baseURI)
	}
	return parseMedia(lines, baseURI)
}

func splitLines(content string) []string {
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func containsStreamInf(lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, tagStreamInf) {
			return true
		}
	}
	return false
}

func parseMaster(lines []string, baseURI string) *models.Playlist {
	playlist := &models.Playlist{
		Type:    models.PlaylistTypeMaster,
		BaseURI: baseURI,
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, tagVersion) {
			playlist.Version = parseIntAttr(strings.TrimPrefix(line, tagVersion))
			continue
		}
		if !strings.HasPrefix(line, tagStreamInf) {
			continue
		}

		attrs := parseAttributes(strings.TrimPrefix(line, tagStreamInf))

		level := models.QualityLevel{
			Resolution: "Unknown",
		}
		if bw, ok := attrs["BANDWIDTH"]; ok {
			level.Bandwidth = int64(parseIntAttr(bw))
		}
		if res, ok := attrs["RESOLUTION"]; ok && res != "" {
			level.Resolution = res
		}

		// The variant URI is the next non-comment line.
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(lines[j], "#") {
				continue
			}
			level.URI = lines[j]
			i = j
			break
		}

		// An explicit RESOLUTION attribute wins over the filename convention.
		if level.Resolution == "Unknown" {
			if derived := resolutionFromFilename(level.URI); derived != "" {
				level.Resolution = derived
			}
		}

		playlist.QualityLevels = append(playlist.QualityLevels, level)
	}

	return playlist
}

func parseMedia(lines []string, baseURI string) *models.Playlist {
	playlist := &models.Playlist{
		Type:    models.PlaylistTypeMedia,
		BaseURI: baseURI,
	}

	// Running byte-range cursor: when a byte-range tag omits its offset it
	// starts where the previous segment ended.
	var byteCursor int64

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case strings.HasPrefix(line, tagVersion):
			playlist.Version = parseIntAttr(strings.TrimPrefix(line, tagVersion))

		case strings.HasPrefix(line, tagTargetDuration):
			playlist.TargetDuration = parseFloatAttr(strings.TrimPrefix(line, tagTargetDuration))

		case strings.HasPrefix(line, tagMap):
			if playlist.InitSegmentURI == "" {
				attrs := parseAttributes(strings.TrimPrefix(line, tagMap))
				playlist.InitSegmentURI = attrs["URI"]
			}

		case strings.HasPrefix(line, tagExtInf):
			seg := models.Segment{
				Index:    len(playlist.Segments),
				Duration: parseExtInfDuration(strings.TrimPrefix(line, tagExtInf)),
			}

			next := i + 1
			if next < len(lines) && strings.HasPrefix(lines[next], tagByteRange) {
				br := parseByteRange(strings.TrimPrefix(lines[next], tagByteRange), byteCursor)
				seg.ByteRange = &br
				byteCursor = br.End()
				next++
			}
			if next < len(lines) && !strings.HasPrefix(lines[next], "#") {
				seg.URI = lines[next]
				i = next
			}

			playlist.Segments = append(playlist.Segments, seg)
		}
	}

	// Some fMP4 playlists reference media files without EXTINF tags. Fall
	// back to treating every recognized media reference as a segment with
	// the target duration.
	if len(playlist.Segments) == 0 {
		playlist.Segments = implicitSegments(lines, playlist.TargetDuration, playlist.InitSegmentURI)
	}

	return playlist
}

// implicitSegments treats bare media-file references as segments.
func implicitSegments(lines []string, targetDuration float64, initURI string) []models.Segment {
	duration := targetDuration
	if duration <= 0 {
		duration = defaultSegmentDuration
	}

	var segments []models.Segment
	for _, line := range lines {
		if strings.HasPrefix(line, "#") || line == initURI {
			continue
		}
		if !hasMediaExtension(line) {
			continue
		}
		segments = append(segments, models.Segment{
			Index:    len(segments),
			Duration: duration,
			URI:      line,
		})
	}
	return segments
}

func hasMediaExtension(uri string) bool {
	lower := strings.ToLower(uri)
	if idx := strings.IndexAny(lower, "?#"); idx >= 0 {
		lower = lower[:idx]
	}
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// parseExtInfDuration extracts the leading float of an EXTINF value,
// which is "duration[,title]".
func parseExtInfDuration(value string) float64 {
	if idx := strings.Index(value, ","); idx >= 0 {
		value = value[:idx]
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return d
}

// parseByteRange parses "length[@offset]". When the offset is omitted it
// continues from the supplied cursor.
func parseByteRange(value string, cursor int64) models.ByteRange {
	br := models.ByteRange{Offset: cursor}

	parts := strings.SplitN(strings.TrimSpace(value), "@", 2)
	if length, err := strconv.ParseInt(parts[0], 10, 64); err == nil {
		br.Length = length
	}
	if len(parts) == 2 {
		if offset, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			br.Offset = offset
		}
	}
	return br
}

// parseAttributes splits an attribute list into a key/value map. Commas
// inside quoted values are not treated as separators and surrounding quotes
// are stripped.
func parseAttributes(value string) map[string]string {
	attrs := make(map[string]string)

	var key strings.Builder
	var val strings.Builder
	inQuotes := false
	inValue := false

	flush := func() {
		k := strings.TrimSpace(key.String())
		if k != "" {
			attrs[k] = strings.Trim(strings.TrimSpace(val.String()), `"`)
		}
		key.Reset()
		val.Reset()
		inValue = false
	}

	for _, r := range value {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			val.WriteRune(r)
		case r == '=' && !inQuotes && !inValue:
			inValue = true
		case r == ',' && !inQuotes:
			flush()
		case inValue:
			val.WriteRune(r)
		default:
			key.WriteRune(r)
		}
	}
	flush()

	return attrs
}

// resolutionFromFilename derives dimensions from the NNNp quality naming
// convention, returning "" when the filename encodes no known quality.
func resolutionFromFilename(uri string) string {
	lower := strings.ToLower(uri)
	for name, resolution := range resolutionByName {
		if strings.Contains(lower, name) {
			return resolution
		}
	}
	return ""
}

func parseIntAttr(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

func parseFloatAttr(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
