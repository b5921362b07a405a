package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeResultTolerantDecoding(t *testing.T) {
	// Numerics arrive as strings and fields come and go; decoding must never
	// fail on the loose schema.
	payload := `{
		"format": {
			"format_name": "mpegts",
			"duration": "6.006000",
			"size": "4500000",
			"bit_rate": "5994000"
		},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
			 "r_frame_rate": "30000/1001", "avg_frame_rate": "0/0", "nb_frames": "180"},
			{"codec_type": "audio", "codec_name": "aac", "channels": 2, "sample_rate": "48000"}
		]
	}`

	var probe ProbeResult
	require.NoError(t, json.Unmarshal([]byte(payload), &probe))

	assert.InDelta(t, 6.006, probe.Format.DurationSeconds(), 0.001)
	assert.Equal(t, int64(4500000), probe.Format.SizeBytes())
	assert.Equal(t, int64(5994000), probe.Format.BitRateBPS())

	video := probe.FirstStream("video")
	require.NotNil(t, video)
	// avg is 0/0, so FPS falls back to the real rate
	assert.InDelta(t, 29.97, video.FPS(), 0.001)

	audio := probe.FirstStream("audio")
	require.NotNil(t, audio)
	assert.Equal(t, 2, audio.Channels)

	assert.Nil(t, probe.FirstStream("subtitle"))
}

func TestFormatInfoMissingFields(t *testing.T) {
	var f FormatInfo

	assert.Equal(t, 0.0, f.DurationSeconds())
	assert.Equal(t, int64(0), f.SizeBytes())
	assert.Equal(t, int64(0), f.BitRateBPS())

	f.Duration = "not a number"
	assert.Equal(t, 0.0, f.DurationSeconds())

	// Integral fields occasionally come back as floats
	f.Size = "4500000.0"
	assert.Equal(t, int64(4500000), f.SizeBytes())
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"30/1", 30.0},
		{"30000/1001", 29.97002997},
		{"0/0", 0},
		{"25", 25.0},
		{"", 0},
		{"garbage", 0},
		{"30/", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ParseFrameRate(tt.input), 0.0001)
		})
	}
}

func TestPlaylistHelpers(t *testing.T) {
	p := &Playlist{
		Type: PlaylistTypeMedia,
		Segments: []Segment{
			{Index: 0, Duration: 6.006},
			{Index: 1, Duration: 6.006},
			{Index: 2, Duration: 4.171},
		},
	}

	assert.False(t, p.IsMaster())
	assert.InDelta(t, 16.183, p.TotalDuration(), 0.001)

	master := &Playlist{Type: PlaylistTypeMaster}
	assert.True(t, master.IsMaster())
	assert.Equal(t, 0.0, master.TotalDuration())
}

func TestByteRangeEnd(t *testing.T) {
	br := ByteRange{Offset: 75232, Length: 82112}
	assert.Equal(t, int64(157344), br.End())
}
