package models

// Playlist type constants
const (
	PlaylistTypeMaster = "master"
	PlaylistTypeMedia  = "media"
)

// Playlist represents a parsed M3U8 playlist. A playlist is exactly one of
// master (quality levels) or media (segments), never both.
type Playlist struct {
	Type           string         `json:"type"`
	BaseURI        string         `json:"base_uri,omitempty"`
	Version        int            `json:"version"`
	TargetDuration float64        `json:"target_duration,omitempty"`
	InitSegmentURI string         `json:"init_segment_uri,omitempty"`
	QualityLevels  []QualityLevel `json:"quality_levels,omitempty"`
	Segments       []Segment      `json:"segments,omitempty"`
}

// IsMaster reports whether the playlist lists alternative quality levels.
func (p *Playlist) IsMaster() bool {
	return p.Type == PlaylistTypeMaster
}

// TotalDuration returns the sum of all segment durations in seconds.
func (p *Playlist) TotalDuration() float64 {
	var total float64
	for _, seg := range p.Segments {
		total += seg.Duration
	}
	return total
}

// QualityLevel represents one variant stream in a master playlist
type QualityLevel struct {
	Bandwidth  int64  `json:"bandwidth"`
	Resolution string `json:"resolution"`
	URI        string `json:"uri"`
}

// ByteRange identifies a slice of a larger backing file
type ByteRange struct {
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// End returns the first byte offset past the range.
func (b ByteRange) End() int64 {
	return b.Offset + b.Length
}

// Segment represents one media segment of a media playlist
type Segment struct {
	Index     int        `json:"index"`
	Duration  float64    `json:"duration"`
	URI       string     `json:"uri"`
	ByteRange *ByteRange `json:"byte_range,omitempty"`
}
