package transcribe

import "fmt"

// TransportError is a failed remote call at the network or HTTP layer.
type TransportError struct {
	Step       string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("assemblyai %s: http %d: %s", e.Step, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("assemblyai %s: %v", e.Step, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError is an explicit failure reported by the transcription service.
type ServiceError struct {
	TranscriptID string
	Message      string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("transcription %s failed: %s", e.TranscriptID, e.Message)
}

// PollTimeoutError is returned when a transcript is still pending after the
// configured number of polls.
type PollTimeoutError struct {
	TranscriptID string
	Attempts     int
	LastStatus   string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("transcription %s still %q after %d polls", e.TranscriptID, e.LastStatus, e.Attempts)
}
