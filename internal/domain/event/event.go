package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is an in-process domain event describing something that happened to
// a service request.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	RequestID int64                  `json:"request_id"`
	Reference string                 `json:"reference"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates an event with a generated id and the current timestamp.
func New(eventType Type, requestID int64, reference string, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Reference: reference,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// PayloadString retrieves a string payload value, "" when absent.
func (e *Event) PayloadString(key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}
