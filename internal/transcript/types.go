// Package transcript defines the time-aligned transcript shapes returned by the
// speech-to-text service. All timestamps are in milliseconds from the start of
// the audio.
package transcript

// Word is a single recognized word with its timing.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Utterance is a speaker-attributed segment. Speaker is empty when the
// service did not label it.
type Utterance struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

// Result is a finished transcription. Exactly one of three shapes is used when
// rendering, in priority order: Words (non-empty), Utterances (present, even
// if empty), then Text with AudioDuration.
type Result struct {
	ID            string      `json:"id,omitempty"`
	Status        string      `json:"status,omitempty"`
	Error         string      `json:"error,omitempty"`
	LanguageCode  string      `json:"language_code,omitempty"`
	Text          string      `json:"text"`
	Words         []Word      `json:"words,omitempty"`
	Utterances    []Utterance `json:"utterances"`
	AudioDuration *float64    `json:"audio_duration,omitempty"`
}

// Shape names the rendering strategy a result selects.
type Shape string

const (
	ShapeWords      Shape = "words"
	ShapeUtterances Shape = "utterances"
	ShapeText       Shape = "text"
)

// Shape reports which of the three transcript shapes r carries.
func (r *Result) Shape() Shape {
	switch {
	case len(r.Words) > 0:
		return ShapeWords
	case r.Utterances != nil:
		return ShapeUtterances
	default:
		return ShapeText
	}
}

// Duration returns the reported audio duration, or zero when absent.
func (r *Result) Duration() float64 {
	if r.AudioDuration == nil {
		return 0
	}
	return *r.AudioDuration
}
