// Package probe provides ffprobe-based inspection of source samples and
// typed result structures. One JSON call per file reports the container and
// its audio streams.
//
// Types:
//   - FormatInfo, AudioStream, Result
//
// Functions:
//   - (*Prober).Probe(ctx, path) → *Result
//     Runs ffprobe -print_format json -show_format -show_streams.
//   - ParseJSON(data) → *Result
//   - (*Result).Primary() / HasAudio() / Summary()
//   - (AudioStream).BitDepth()
//     Bits per sample from bits_per_sample, bits_per_raw_sample or the
//     sample format.
package probe
