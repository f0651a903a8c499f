// Package decode wraps the ffmpeg invocations the extraction engine relies on:
// sampling frames at a fixed rate, recovering their presentation timestamps
// from the showinfo log, and cutting fixed-duration PCM audio windows.
//
// Sample performs both the image pass and the timestamp pass in one ffmpeg
// process so the two sequences come from the same decode. SampleFrames and
// RecoverTimestamps keep the two-pass behaviour available.
//
// Every failed invocation is returned as a *ToolError carrying the stage,
// arguments, exit code and a stderr excerpt, wrapped with
// services.ErrExternalTool. Callers decide whether a failure is fatal.
package decode
