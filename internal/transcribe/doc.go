// Package transcribe turns audio windows into text with one long-lived speech
// recognition model per run.
//
// The model is loaded at most once. If it cannot be loaded (no engine compiled
// in, missing model directory, load failure) the transcriber enters degraded
// mode: every transcript is empty and no further load is attempted. Each
// window gets a fresh recognizer bound to the shared model, is streamed in
// fixed-size blocks, and yields the recognizer's results joined by a single
// space. Problems with one window, including panics inside the engine, produce
// an empty transcript for that window only.
//
// The Vosk backend is compiled in with the vosk build tag and requires libvosk.
package transcribe
