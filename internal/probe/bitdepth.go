package probe

import "strings"

// sampleFmtBits maps ffmpeg sample formats (planar suffix stripped) to bits
// per sample. Float formats report their container width.
var sampleFmtBits = map[string]int{
	"u8":  8,
	"s16": 16,
	"s32": 32,
	"s64": 64,
	"flt": 32,
	"dbl": 64,
}

// BitDepth returns the stream's bits per sample, or 0 when unknown. PCM
// streams report bits_per_sample; lossless codecs such as FLAC report
// bits_per_raw_sample (24-bit FLAC decodes to s32); otherwise the decoded
// sample format decides.
func (a AudioStream) BitDepth() int {
	if a.BitsPerSample > 0 {
		return a.BitsPerSample
	}
	if a.BitsPerRawSample > 0 {
		return a.BitsPerRawSample
	}
	return sampleFmtBits[strings.TrimSuffix(strings.ToLower(a.SampleFmt), "p")]
}

// IsLossy reports whether the codec discards information, in which case
// raising the bit depth cannot restore detail.
func (a AudioStream) IsLossy() bool {
	switch strings.ToLower(a.Codec) {
	case "mp3", "mp2", "aac", "vorbis", "opus", "wmav1", "wmav2", "ac3":
		return true
	}
	return false
}
