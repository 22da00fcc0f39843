package domain

// StreamEventKind identifies a streaming event
type StreamEventKind string

const (
	StreamStarted    StreamEventKind = "started"
	StreamTextDelta  StreamEventKind = "text_delta"
	StreamImageDelta StreamEventKind = "image_delta"
	StreamCompleted  StreamEventKind = "completed"
	StreamFailed     StreamEventKind = "failed"
	StreamCancelled  StreamEventKind = "cancelled"
)

// StreamEvent is one event of a provider or orchestrator stream.
// Completed, Failed and Cancelled are terminal.
type StreamEvent struct {
	Kind      StreamEventKind `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Text      string          `json:"text,omitempty"`     // Text delta
	Image     *Artifact       `json:"image,omitempty"`    // Pending image reference
	Usage     *Usage          `json:"usage,omitempty"`    // Set on completed
	Proposal  *Proposal       `json:"proposal,omitempty"` // Set on orchestrator completed
	Error     string          `json:"error,omitempty"`
}

// Terminal reports whether no further events follow
func (e StreamEvent) Terminal() bool {
	switch e.Kind {
	case StreamCompleted, StreamFailed, StreamCancelled:
		return true
	default:
		return false
	}
}
