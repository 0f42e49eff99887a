package observer

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamObserver forwards one request's events to a websocket client.
type StreamObserver struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

// NewStreamObserver wraps an upgraded connection.
func NewStreamObserver(conn *websocket.Conn) *StreamObserver {
	return &StreamObserver{conn: conn}
}

// OnEvent writes the event as a JSON frame. After the first write error
// further events are dropped.
func (o *StreamObserver) OnEvent(_ context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return
	}
	o.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	o.err = o.conn.WriteJSON(struct {
		Type  string        `json:"type"`
		Event AnalysisEvent `json:"event"`
	}{Type: "event", Event: event})
}

// WriteJSON sends a non-event frame, such as the final response, through
// the same lock.
func (o *StreamObserver) WriteJSON(v interface{}) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	o.err = o.conn.WriteJSON(v)
	return o.err
}

// GetObserverName returns the observer name
func (o *StreamObserver) GetObserverName() string {
	return "stream_observer"
}
