package probe

import (
	"fmt"
	"strings"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename       string
	NbStreams      int
	FormatName     string
	FormatLongName string
	Duration       float64
	Size           int64
	BitRate        int64
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index            int
	Codec            string
	SampleFmt        string
	Channels         int
	ChannelLayout    string
	SampleRate       int
	BitsPerSample    int
	BitsPerRawSample int
	BitRate          int64
	Duration         float64
}

// Result is the fully parsed output of a single ffprobe JSON call.
// Attached pictures (cover art) and video streams are counted but not kept.
type Result struct {
	Format       FormatInfo
	AudioStreams []AudioStream
	OtherStreams int
}

// HasAudio reports whether the file has at least one audio stream.
func (r *Result) HasAudio() bool { return len(r.AudioStreams) > 0 }

// Primary returns the first audio stream, the one the converter maps, or nil.
func (r *Result) Primary() *AudioStream {
	if len(r.AudioStreams) == 0 {
		return nil
	}
	return &r.AudioStreams[0]
}

// Summary describes the primary stream for verbose logs, e.g.
// "flac 44100Hz 2ch 24-bit 1.50s".
func (r *Result) Summary() string {
	a := r.Primary()
	if a == nil {
		return "no audio"
	}
	parts := []string{a.Codec}
	if a.SampleRate > 0 {
		parts = append(parts, fmt.Sprintf("%dHz", a.SampleRate))
	}
	if a.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%dch", a.Channels))
	}
	if d := a.BitDepth(); d > 0 {
		parts = append(parts, fmt.Sprintf("%d-bit", d))
	}
	dur := a.Duration
	if dur == 0 {
		dur = r.Format.Duration
	}
	if dur > 0 {
		parts = append(parts, fmt.Sprintf("%.2fs", dur))
	}
	return strings.Join(parts, " ")
}
