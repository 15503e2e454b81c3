package session

// RecordingState is the process-wide recorder phase. It is never persisted.
type RecordingState string

const (
	Idle       RecordingState = "idle"
	Recording  RecordingState = "recording"
	Processing RecordingState = "processing"
)
