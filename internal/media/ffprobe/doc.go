// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The extraction engine inspects every source before decoding so it can fail
// early on inputs without a video stream and record the container duration,
// which bounds how many chunks a run may produce at a given sampling rate.
package ffprobe
