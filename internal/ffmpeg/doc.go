// Package ffmpeg builds and executes the ffmpeg commands that convert one
// source sample to PCM WAV.
//
//   - Build(bin, Job, RetryState) → []string
//     Fixed skeleton (-hide_banner, -nostdin, first audio stream only,
//     pcm_s16le/s24le/s32le by bit depth, forced wav muxer).
//   - Execute(ctx, args, tee) → ExecResult
//     Run ffmpeg, capture stderr, optional tee for verbose mode.
//   - (*RetryState).Advance(stderr) → RetryAction
//     One tolerant-decode retry for corrupt input; nothing else is retried.
//   - Reason(stderr, err) → string
//     Short human-readable failure reason for the failure log.
//
// Converter ties these together and is what the pipeline calls.
package ffmpeg
