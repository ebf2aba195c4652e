package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Prober runs ffprobe. The zero value uses "ffprobe" from PATH.
type Prober struct {
	Bin string
}

// Probe runs a single ffprobe JSON call against path and returns the
// parsed result.
func (p *Prober) Probe(ctx context.Context, path string) (*Result, error) {
	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseJSON(out)
}

// ParseJSON converts raw ffprobe JSON output into a Result.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildResult(&raw), nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename       string `json:"filename"`
	NbStreams      int    `json:"nb_streams"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index            int            `json:"index"`
	CodecName        string         `json:"codec_name"`
	CodecType        string         `json:"codec_type"`
	SampleFmt        string         `json:"sample_fmt"`
	Channels         int            `json:"channels"`
	ChannelLayout    string         `json:"channel_layout"`
	SampleRate       string         `json:"sample_rate"`
	BitsPerSample    int            `json:"bits_per_sample"`
	BitsPerRawSample string         `json:"bits_per_raw_sample"`
	BitRate          string         `json:"bit_rate"`
	Duration         string         `json:"duration"`
	Disposition      map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) *Result {
	r := &Result{
		Format: convertFormat(&raw.Format),
	}
	for i := range raw.Streams {
		s := &raw.Streams[i]
		if s.CodecType == "audio" {
			r.AudioStreams = append(r.AudioStreams, convertAudio(s))
			continue
		}
		r.OtherStreams++
	}
	return r
}

func convertFormat(f *ffprobeFormat) FormatInfo {
	return FormatInfo{
		Filename:       f.Filename,
		NbStreams:      f.NbStreams,
		FormatName:     f.FormatName,
		FormatLongName: f.FormatLongName,
		Duration:       parseFloat(f.Duration),
		Size:           parseInt64(f.Size),
		BitRate:        parseInt64(f.BitRate),
	}
}

func convertAudio(s *ffprobeStream) AudioStream {
	return AudioStream{
		Index:            s.Index,
		Codec:            s.CodecName,
		SampleFmt:        s.SampleFmt,
		Channels:         s.Channels,
		ChannelLayout:    s.ChannelLayout,
		SampleRate:       parseInt(s.SampleRate),
		BitsPerSample:    s.BitsPerSample,
		BitsPerRawSample: parseInt(s.BitsPerRawSample),
		BitRate:          parseInt64(s.BitRate),
		Duration:         parseFloat(s.Duration),
	}
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
