//go:build vosk

package transcribe

import (
	"encoding/json"
	"errors"
	"strings"

	vosk "github.com/alphacep/vosk-api/go"
)

// DefaultEngine returns the Vosk engine.
func DefaultEngine() Engine {
	vosk.SetLogLevel(-1)
	return voskEngine{}
}

type voskEngine struct{}

func (voskEngine) Name() string { return "vosk" }

func (voskEngine) Load(path string) (Model, error) {
	model, err := vosk.NewModel(path)
	if err != nil {
		return nil, err
	}
	return &voskModel{model: model}, nil
}

type voskModel struct {
	model *vosk.VoskModel
}

func (m *voskModel) NewRecognizer(sampleRate float64) (Recognizer, error) {
	rec, err := vosk.NewRecognizer(m.model, sampleRate)
	if err != nil {
		return nil, err
	}
	return &voskRecognizer{rec: rec}, nil
}

func (m *voskModel) Close() {
	m.model.Free()
}

type voskRecognizer struct {
	rec *vosk.VoskRecognizer
}

func (r *voskRecognizer) AcceptWaveform(pcm []byte) (bool, error) {
	switch r.rec.AcceptWaveform(pcm) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, errors.New("vosk: waveform rejected")
	}
}

func (r *voskRecognizer) Result() string {
	return resultText(r.rec.Result())
}

func (r *voskRecognizer) FinalResult() string {
	return resultText(r.rec.FinalResult())
}

func (r *voskRecognizer) Close() {
	r.rec.Free()
}

// resultText extracts the "text" field from a Vosk JSON result.
func resultText(raw string) string {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return strings.TrimSpace(raw)
	}
	return payload.Text
}
