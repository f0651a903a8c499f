package transcribe

import "errors"

// ErrEngineUnavailable reports a binary built without a speech engine.
var ErrEngineUnavailable = errors.New("speech engine not compiled in")

// Engine loads recognition models from a local directory.
type Engine interface {
	Name() string
	Load(path string) (Model, error)
}

// Model is a loaded, read-only recognition model. NewRecognizer must be safe
// for concurrent use.
type Model interface {
	NewRecognizer(sampleRate float64) (Recognizer, error)
	Close()
}

// Recognizer holds per-window streaming state. It is used by one goroutine.
type Recognizer interface {
	// AcceptWaveform feeds PCM bytes and reports whether a result is ready.
	AcceptWaveform(pcm []byte) (bool, error)
	// Result returns the text of the utterance completed by the last
	// AcceptWaveform call that reported true.
	Result() string
	// FinalResult flushes the recognizer and returns the remaining text.
	FinalResult() string
	Close()
}
