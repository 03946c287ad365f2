package domain

// StreamEventName is the SSE event name of a stream event.
type StreamEventName string

const (
	StreamEventMessage   StreamEventName = "message"
	StreamEventError     StreamEventName = "error"
	StreamEventHeartbeat StreamEventName = "heartbeat"
)

// StreamEvent is one ephemeral SSE unit pushed to the client. ID is the
// correlation id shared by all events of one request; it is never stored.
type StreamEvent struct {
	ID    string          `json:"id"`
	Event StreamEventName `json:"event"`
	Data  string          `json:"data"`
}
