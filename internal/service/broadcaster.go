package service

// Event types pushed to a view's live connections
const (
	EventTick      = "tick"
	EventExpired   = "expired"
	EventSubmitted = "submitted"
	EventClosed    = "closed"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToView(viewID string, msgType string, payload interface{})
	DisconnectView(viewID string)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToView(string, string, interface{}) {}
func (noopBroadcaster) DisconnectView(string)                      {}
