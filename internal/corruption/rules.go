package corruption

import (
	"fmt"
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// ruleContext is the evidence one rule run sees: the probe data projections,
// the resolved container and the tool's raw diagnostic text (lowercased once
// for case-insensitive matching).
type ruleContext struct {
	container  string
	diagnostic string
	video      *models.StreamInfo
	audio      *models.StreamInfo
	fps        float64
}

// rule is one independent diagnostic. Rules never exclude each other: every
// matching rule emits exactly one issue.
type rule struct {
	issueType   string
	severity    string
	match       func(rc *ruleContext) (bool, string)
	description string
	fixCommand  string
	explanation string
}

// matchAny builds a matcher that fires on any of the given substrings in the
// diagnostic text, restricted to the listed containers when non-empty.
func matchAny(triggers []string, containers ...string) func(rc *ruleContext) (bool, string) {
	return func(rc *ruleContext) (bool, string) {
		if len(containers) > 0 && !containsString(containers, rc.container) {
			return false, ""
		}
		for _, trigger := range triggers {
			if strings.Contains(rc.diagnostic, strings.ToLower(trigger)) {
				return true, trigger
			}
		}
		return false, ""
	}
}

// decodeErrorPhrases are the tool's frame-level damage signals
var decodeErrorPhrases = []string{
	"no frame!",
	"concealing",
	"Invalid NAL unit",
	"error while decoding",
	"corrupt decoded frame",
	"decode_slice_header error",
	"mmco: unref short failure",
	"Missing reference picture",
	"Frame num change",
	"deblocking filter parameters",
	"out of range intra chroma pred mode",
}

// supportedVideoCodecs and supportedAudioCodecs are the codecs the pipeline
// can process without a transcode step
var supportedVideoCodecs = []string{"h264", "hevc", "h265", "vp8", "vp9", "av1", "mpeg4", "mpeg2video"}
var supportedAudioCodecs = []string{"aac", "mp3", "ac3", "eac3", "opus", "vorbis", "flac", "pcm_s16le"}

// diagnosticRules is the ordered rule table. Fix commands are authored
// against an mp4 input; resolveFixCommands rewrites the input extension to
// the resolved container after all rules have run.
var diagnosticRules = []rule{
	{
		issueType:   "Missing Container Metadata",
		severity:    models.SeverityCritical,
		match:       matchAny([]string{"moov atom not found", "Invalid data found when processing input"}, "mp4", "mov"),
		description: "The container index (moov atom) is missing or unreadable, so the file cannot be played or seeked",
		fixCommand:  "untrunc --dst-dir . reference.mp4 input.mp4",
		explanation: "The moov atom holds the sample tables that map timestamps to byte offsets. It is usually lost when a recording is interrupted before finalization. Recovery tools can rebuild it from a healthy reference file recorded with the same settings.",
	},
	{
		issueType:   "Missing Codec Parameters",
		severity:    models.SeverityCritical,
		match:       matchAny([]string{"Could not find codec parameters", "unspecified size", "unknown codec"}),
		description: "One or more streams carry no usable codec parameters",
		fixCommand:  "ffmpeg -i input.mp4 -c:v libx264 -c:a aac -strict -2 output.mp4",
		explanation: "Without codec parameters a decoder cannot be initialized for the stream. Re-encoding forces fresh, well-formed stream headers.",
	},
	{
		issueType:   "Timestamp Errors",
		severity:    models.SeverityWarning,
		match:       matchAny([]string{"Non-monotonous DTS", "non monotonically increasing dts", "Invalid timestamps"}),
		description: "Decode timestamps go backwards or repeat, which causes stutter and seek failures",
		fixCommand:  "ffmpeg -fflags +genpts -i input.mp4 -c copy output.mp4",
		explanation: "Regenerating presentation timestamps while stream-copying rewrites the timeline without touching the encoded media.",
	},
	{
		issueType: "Audio-Video Sync Drift",
		severity:  models.SeverityWarning,
		match: func(rc *ruleContext) (bool, string) {
			if rc.video == nil || rc.audio == nil {
				return false, ""
			}
			vd := rc.video.DurationSeconds()
			ad := rc.audio.DurationSeconds()
			if vd > 0 && ad > 0 && math.Abs(vd-ad) > 0.5 {
				return true, fmt.Sprintf("video duration %.2fs vs audio duration %.2fs", vd, ad)
			}
			return false, ""
		},
		description: "Video and audio track durations differ by more than half a second",
		fixCommand:  "ffmpeg -i input.mp4 -c:v copy -af aresample=async=1 output.mp4",
		explanation: "Resampling the audio against the video clock stretches or pads it so both tracks end together.",
	},
	{
		issueType: "Stream Start Time Mismatch",
		severity:  models.SeverityWarning,
		match: func(rc *ruleContext) (bool, string) {
			if rc.video == nil || rc.audio == nil {
				return false, ""
			}
			vs := rc.video.StartSeconds()
			as := rc.audio.StartSeconds()
			if math.Abs(vs-as) > 0.1 {
				return true, fmt.Sprintf("video starts at %.3fs, audio at %.3fs", vs, as)
			}
			return false, ""
		},
		description: "Video and audio streams start at noticeably different times",
		fixCommand:  "ffmpeg -i input.mp4 -c copy -avoid_negative_ts make_zero output.mp4",
		explanation: "Shifting timestamps so both streams start at zero removes the initial offset some players render as lip-sync error.",
	},
	{
		issueType:   "Damaged Frames",
		severity:    models.SeverityWarning,
		match:       matchAny(decodeErrorPhrases),
		description: "The decoder reported damaged or unparseable frames",
		fixCommand:  "ffmpeg -err_detect ignore_err -i input.mp4 -c:v libx264 -c:a aac output.mp4",
		explanation: "Decoding with error tolerance and re-encoding drops the damaged frames instead of aborting on them. Some visual artifacts may remain where data was lost.",
	},
	{
		issueType: "No Media Streams",
		severity:  models.SeverityCritical,
		match: func(rc *ruleContext) (bool, string) {
			if rc.video == nil && rc.audio == nil {
				return true, "no video or audio stream found"
			}
			return false, ""
		},
		description: "The file contains neither a video nor an audio stream",
		fixCommand:  "ffmpeg -v error -i input.mp4 -f null -",
		explanation: "Either the file is not a media file at all or its stream headers are destroyed. A verbose decode pass shows whether anything is recoverable.",
	},
	{
		issueType: "Variable Frame Rate",
		severity:  models.SeverityInfo,
		match: func(rc *ruleContext) (bool, string) {
			if rc.video == nil {
				return false, ""
			}
			avg, real := rc.video.AvgFrameRate, rc.video.FrameRate
			if avg != "" && real != "" && avg != real {
				return true, fmt.Sprintf("avg_frame_rate %s != r_frame_rate %s", avg, real)
			}
			return false, ""
		},
		description: "The stream's average frame rate differs from its real frame rate, indicating variable frame rate content",
		fixCommand:  "ffmpeg -i input.mp4 -vsync cfr -r 30 -c:a copy output.mp4",
		explanation: "Variable frame rate sources confuse editors and some hardware decoders. Conforming to a constant rate duplicates or drops frames as needed.",
	},
	{
		issueType: "Unsupported Video Codec",
		severity:  models.SeverityInfo,
		match: func(rc *ruleContext) (bool, string) {
			if rc.video == nil || rc.video.CodecName == "" {
				return false, ""
			}
			if !containsString(supportedVideoCodecs, strings.ToLower(rc.video.CodecName)) {
				return true, "video codec " + rc.video.CodecName
			}
			return false, ""
		},
		description: "The video codec is outside the supported set",
		fixCommand:  "ffmpeg -i input.mp4 -c:v libx264 -c:a copy output.mp4",
		explanation: "Re-encoding the video track to H.264 maximizes player compatibility.",
	},
	{
		issueType: "Unsupported Audio Codec",
		severity:  models.SeverityInfo,
		match: func(rc *ruleContext) (bool, string) {
			if rc.audio == nil || rc.audio.CodecName == "" {
				return false, ""
			}
			if !containsString(supportedAudioCodecs, strings.ToLower(rc.audio.CodecName)) {
				return true, "audio codec " + rc.audio.CodecName
			}
			return false, ""
		},
		description: "The audio codec is outside the supported set",
		fixCommand:  "ffmpeg -i input.mp4 -c:v copy -c:a aac output.mp4",
		explanation: "Re-encoding the audio track to AAC maximizes player compatibility.",
	},
	{
		issueType: "Incorrect Audio Channel Layout",
		severity:  models.SeverityInfo,
		match: func(rc *ruleContext) (bool, string) {
			if rc.audio == nil {
				return false, ""
			}
			layout := strings.ToLower(rc.audio.ChannelLayout)
			switch rc.audio.Channels {
			case 1:
				if layout != "" && layout != "mono" {
					return true, fmt.Sprintf("1 channel with layout %q", rc.audio.ChannelLayout)
				}
			case 2:
				if layout != "" && !strings.Contains(layout, "stereo") {
					return true, fmt.Sprintf("2 channels with layout %q", rc.audio.ChannelLayout)
				}
			}
			return false, ""
		},
		description: "The declared channel layout does not match the channel count",
		fixCommand:  "ffmpeg -i input.mp4 -c:v copy -af aformat=channel_layouts=stereo output.mp4",
		explanation: "A mismatched layout makes downmixing unpredictable. Forcing a canonical layout rewrites the declaration to match the actual channels.",
	},
	{
		issueType: "Missing Index",
		severity:  models.SeverityWarning,
		match: func(rc *ruleContext) (bool, string) {
			if rc.container != "avi" {
				return false, ""
			}
			if strings.Contains(rc.diagnostic, "missing index") {
				return true, "missing index"
			}
			return false, ""
		},
		description: "The AVI index is missing, so seeking will not work",
		fixCommand:  "ffmpeg -fflags +genpts -i input.mp4 -c copy output.avi",
		explanation: "Remuxing rebuilds the AVI idx1 index from the interleaved chunks without re-encoding.",
	},
	{
		issueType: "WebM Container Format",
		severity:  models.SeverityInfo,
		match: func(rc *ruleContext) (bool, string) {
			if rc.container == "webm" {
				return true, "webm container"
			}
			return false, ""
		},
		description: "WebM input detected; downstream tooling handles MP4 more reliably",
		fixCommand:  "ffmpeg -i input.mp4 -c:v libx264 -c:a aac output.mp4",
		explanation: "WebM typically carries VP8/VP9 with Opus or Vorbis. Converting to H.264/AAC in MP4 avoids compatibility gaps in the delivery chain.",
	},
	{
		issueType: "WebM Variable Frame Rate",
		severity:  models.SeverityWarning,
		match: func(rc *ruleContext) (bool, string) {
			if rc.container != "webm" || rc.video == nil {
				return false, ""
			}
			avg, real := rc.video.AvgFrameRate, rc.video.FrameRate
			if avg != "" && real != "" && avg != real {
				return true, "webm with variable frame rate"
			}
			return false, ""
		},
		description: "Variable frame rate inside a WebM container, a combination that commonly desynchronizes after conversion",
		fixCommand:  "ffmpeg -i input.mp4 -vsync cfr -r 30 -c:v libx264 -c:a aac output.mp4",
		explanation: "Screen recorders emit VFR WebM; conforming to constant frame rate during conversion keeps audio aligned.",
	},
	{
		issueType: "Unusual Frame Rate",
		severity:  models.SeverityInfo,
		match: func(rc *ruleContext) (bool, string) {
			if rc.fps > 0 && (rc.fps < 10 || rc.fps > 120) {
				return true, fmt.Sprintf("frame rate %.2f fps", rc.fps)
			}
			return false, ""
		},
		description: "The computed frame rate falls outside the normal 10-120 fps range",
		fixCommand:  "ffmpeg -i input.mp4 -r 30 -c:a copy output.mp4",
		explanation: "Extreme frame rates usually point at broken timing metadata rather than genuine content; conforming to 30 fps normalizes playback.",
	},
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
