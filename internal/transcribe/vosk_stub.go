//go:build !vosk

package transcribe

// DefaultEngine returns the speech engine compiled into this binary. Builds
// without the vosk tag have none, so transcription runs degraded.
func DefaultEngine() Engine {
	return unavailableEngine{}
}

type unavailableEngine struct{}

func (unavailableEngine) Name() string { return "none" }

func (unavailableEngine) Load(string) (Model, error) {
	return nil, ErrEngineUnavailable
}
