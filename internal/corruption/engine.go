package corruption

import (
	"path/filepath"
	"strings"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// Result is the outcome of one whole-file analysis
type Result struct {
	Issues   []models.CorruptionIssue
	Metadata models.CorruptionMetadata
}

// longNameOverrides maps substrings of the tool's long-form container name
// to the concrete format. The long name is more reliable than format-list
// ordering, so an override always wins.
var longNameOverrides = []struct {
	substring string
	format    string
}{
	{"QuickTime", "mov"},
	{"MP4", "mp4"},
	{"WebM", "webm"},
	{"Matroska", "mkv"},
	{"AVI", "avi"},
}

// Analyze runs every diagnostic rule over the probe data and the tool's raw
// diagnostic text. Rules are independent; each match emits one issue. The
// function performs no I/O.
func Analyze(probe *models.ProbeResult, diagnosticText string, filename string) Result {
	rc := &ruleContext{
		container:  ResolveContainer(probe, filename),
		diagnostic: strings.ToLower(diagnosticText),
	}
	if probe != nil {
		rc.video = probe.FirstStream("video")
		rc.audio = probe.FirstStream("audio")
	}
	if rc.video != nil {
		rc.fps = rc.video.FPS()
	}

	var issues []models.CorruptionIssue
	for _, r := range diagnosticRules {
		matched, detection := r.match(rc)
		if !matched {
			continue
		}
		issues = append(issues, models.CorruptionIssue{
			Type:        r.issueType,
			Severity:    r.severity,
			Description: r.description,
			Detection:   detection,
			FixCommand:  r.fixCommand,
			Explanation: r.explanation,
		})
	}

	resolveFixCommands(issues, rc.container)

	return Result{
		Issues:   issues,
		Metadata: buildMetadata(probe, rc),
	}
}

// ResolveContainer reduces the tool's comma-joined format list (for example
// "mov,mp4,m4a,3gp,3g2,mj2") to one concrete container: the file extension
// when it appears in the list, else the list's first entry, with the
// long-form name override applied last.
func ResolveContainer(probe *models.ProbeResult, filename string) string {
	container := ""

	if probe != nil && probe.Format.FormatName != "" {
		candidates := strings.Split(strings.ToLower(probe.Format.FormatName), ",")
		for i := range candidates {
			candidates[i] = strings.TrimSpace(candidates[i])
		}
		container = candidates[0]

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
		if ext != "" && containsString(candidates, ext) {
			container = ext
		}
	}

	if probe != nil {
		for _, override := range longNameOverrides {
			if strings.Contains(probe.Format.FormatLongName, override.substring) {
				container = override.format
				break
			}
		}
	}

	return container
}

// resolveFixCommands rewrites the authored "input.mp4" placeholder to the
// resolved container extension. Output extensions stay as authored; rules
// that target a non-MP4 output (the AVI index repair) keep their output.
func resolveFixCommands(issues []models.CorruptionIssue, container string) {
	if container == "" || container == "mp4" {
		return
	}
	for i := range issues {
		issues[i].FixCommand = strings.ReplaceAll(issues[i].FixCommand, "input.mp4", "input."+container)
	}
}

func buildMetadata(probe *models.ProbeResult, rc *ruleContext) models.CorruptionMetadata {
	meta := models.CorruptionMetadata{
		Container: rc.container,
		FrameRate: rc.fps,
	}
	if probe != nil {
		meta.Duration = probe.Format.DurationSeconds()
	}
	if rc.video != nil {
		meta.VideoCodec = rc.video.CodecName
	}
	if rc.audio != nil {
		meta.AudioCodec = rc.audio.CodecName
	}
	return meta
}
