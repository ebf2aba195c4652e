package ffmpeg

import (
	"fmt"
)

// Job describes one conversion: Source is read, Output is written as PCM
// WAV at BitDepth bits per sample. Output may carry any extension; the wav
// muxer is forced.
type Job struct {
	Source   string
	Output   string
	BitDepth int
}

// codecs maps target bit depth to the signed little-endian PCM encoder.
var codecs = map[int]string{
	16: "pcm_s16le",
	24: "pcm_s24le",
	32: "pcm_s32le",
}

// CodecForBitDepth returns the PCM encoder for depth.
func CodecForBitDepth(depth int) (string, error) {
	codec, ok := codecs[depth]
	if !ok {
		return "", fmt.Errorf("no PCM codec for %d-bit output", depth)
	}
	return codec, nil
}

// Build constructs the complete ffmpeg argument slice for a job, starting
// with bin. Only the first audio stream is mapped, so embedded cover art and
// video tracks are dropped. rs supplies the tolerant-decode switch after a
// retry.
func Build(bin string, job Job, rs *RetryState, verbose bool) ([]string, error) {
	codec, err := CodecForBitDepth(job.BitDepth)
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, 24)

	// --- Preamble ---
	args = append(args, bin, "-hide_banner", "-nostdin", "-y")
	if verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	// --- Pre-input flags (tolerant decode) ---
	if rs != nil && rs.Tolerant {
		args = append(args, "-err_detect", "ignore_err", "-fflags", "+discardcorrupt")
	}

	// --- Input ---
	args = append(args, "-i", job.Source)

	// --- Stream map and codec ---
	args = append(args,
		"-map", "0:a:0",
		"-map_metadata", "-1",
		"-acodec", codec,
	)

	// --- Output ---
	args = append(args, "-f", "wav", job.Output)
	return args, nil
}
