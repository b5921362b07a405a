package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

const masterManifest = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080,CODECS="avc1.640028,mp4a.40.2"
1080p/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720
720p/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1400000
480p/playlist.m3u8
`

const mediaManifest = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:7
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:6.006,
segment0.ts
#EXTINF:6.006,
segment1.ts
#EXTINF:4.171,
segment2.ts
#EXT-X-ENDLIST
`

const byteRangeManifest = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-TARGETDURATION:6
#EXTINF:6.0,
#EXT-X-BYTERANGE:75232@0
media.ts
#EXTINF:6.0,
#EXT-X-BYTERANGE:82112
media.ts
#EXTINF:6.0,
#EXT-X-BYTERANGE:69864
media.ts
#EXT-X-ENDLIST
`

const fmp4Manifest = `#EXTM3U
#EXT-X-VERSION:7
#EXT-X-TARGETDURATION:4
#EXT-X-MAP:URI="init.mp4"
seg_1.m4s
seg_2.m4s
seg_3.m4s
#EXT-X-ENDLIST
`

func TestParseMasterPlaylist(t *testing.T) {
	playlist := Parse(masterManifest, "http://example.com/master.m3u8")

	require.NotNil(t, playlist)
	assert.True(t, playlist.IsMaster())
	assert.Equal(t, 3, playlist.Version)
	require.Len(t, playlist.QualityLevels, 3)

	// The quoted CODECS attribute contains a comma that must not split the
	// attribute list.
	first := playlist.QualityLevels[0]
	assert.Equal(t, int64(5000000), first.Bandwidth)
	assert.Equal(t, "1920x1080", first.Resolution)
	assert.Equal(t, "1080p/playlist.m3u8", first.URI)

	assert.Equal(t, "1280x720", playlist.QualityLevels[1].Resolution)
}

func TestParseMasterResolutionFromFilename(t *testing.T) {
	playlist := Parse(masterManifest, "")

	require.Len(t, playlist.QualityLevels, 3)
	// No RESOLUTION attribute, so the 480p filename convention applies.
	assert.Equal(t, "854x480", playlist.QualityLevels[2].Resolution)
}

func TestParseMediaPlaylist(t *testing.T) {
	playlist := Parse(mediaManifest, "http://example.com/720p/playlist.m3u8")

	require.NotNil(t, playlist)
	assert.False(t, playlist.IsMaster())
	assert.Equal(t, 3, playlist.Version)
	assert.Equal(t, 7.0, playlist.TargetDuration)
	require.Len(t, playlist.Segments, 3)

	assert.Equal(t, 0, playlist.Segments[0].Index)
	assert.Equal(t, "segment0.ts", playlist.Segments[0].URI)
	assert.InDelta(t, 6.006, playlist.Segments[0].Duration, 0.0001)

	// Total duration is the sum of segment durations.
	assert.InDelta(t, 16.183, playlist.TotalDuration(), 0.0001)
}

func TestParseByteRangeCursor(t *testing.T) {
	playlist := Parse(byteRangeManifest, "")

	require.Len(t, playlist.Segments, 3)
	for _, seg := range playlist.Segments {
		require.NotNil(t, seg.ByteRange)
		assert.Equal(t, "media.ts", seg.URI)
	}

	// Omitted offsets continue from the previous segment's end.
	assert.Equal(t, int64(0), playlist.Segments[0].ByteRange.Offset)
	assert.Equal(t, int64(75232), playlist.Segments[0].ByteRange.Length)
	assert.Equal(t, int64(75232), playlist.Segments[1].ByteRange.Offset)
	assert.Equal(t, int64(75232+82112), playlist.Segments[2].ByteRange.Offset)
	assert.Equal(t, int64(69864), playlist.Segments[2].ByteRange.Length)
}

func TestParseFMP4ImplicitSegments(t *testing.T) {
	playlist := Parse(fmp4Manifest, "")

	assert.Equal(t, "init.mp4", playlist.InitSegmentURI)
	require.Len(t, playlist.Segments, 3)

	// Bare references inherit the target duration.
	for i, seg := range playlist.Segments {
		assert.Equal(t, i, seg.Index)
		assert.Equal(t, 4.0, seg.Duration)
	}
	assert.Equal(t, "seg_2.m4s", playlist.Segments[1].URI)
}

func TestParseFMP4DefaultDuration(t *testing.T) {
	content := "#EXTM3U\n#EXT-X-MAP:URI=\"init.mp4\"\nchunk.m4s\n"
	playlist := Parse(content, "")

	require.Len(t, playlist.Segments, 1)
	assert.Equal(t, 6.0, playlist.Segments[0].Duration)
}

func TestParseInitOnlyPlaylistHasNoSegments(t *testing.T) {
	content := "#EXTM3U\n#EXT-X-VERSION:7\n#EXT-X-MAP:URI=\"init.mp4\"\n"
	playlist := Parse(content, "")

	assert.Equal(t, "init.mp4", playlist.InitSegmentURI)
	assert.Empty(t, playlist.Segments)
}

func TestParseIdempotent(t *testing.T) {
	for _, content := range []string{masterManifest, mediaManifest, byteRangeManifest, fmp4Manifest} {
		first := Parse(content, "base")
		second := Parse(content, "base")
		assert.Equal(t, first, second)
	}
}

func TestParseMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"garbage", "not a manifest at all"},
		{"bad durations", "#EXTM3U\n#EXTINF:abc,\nseg.ts\n"},
		{"truncated stream inf", "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playlist := Parse(tt.content, "")
			require.NotNil(t, playlist, "parser must never return nil")
		})
	}
}

func TestParseAttributes(t *testing.T) {
	attrs := parseAttributes(`BANDWIDTH=2800000,CODECS="avc1.64001f,mp4a.40.2",RESOLUTION=1280x720`)

	assert.Equal(t, "2800000", attrs["BANDWIDTH"])
	assert.Equal(t, "avc1.64001f,mp4a.40.2", attrs["CODECS"])
	assert.Equal(t, "1280x720", attrs["RESOLUTION"])
}

func TestByteRangeEnd(t *testing.T) {
	br := models.ByteRange{Offset: 100, Length: 50}
	assert.Equal(t, int64(150), br.End())
}
