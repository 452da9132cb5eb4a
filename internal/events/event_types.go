package events

import (
	"time"

	"github.com/evolution-fly/flight-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "flight_request_created"
	EventRequestReserved      EventType = "flight_request_reserved"
	EventRequestStatusChanged EventType = "flight_request_status_changed"
	EventReminderDue          EventType = "flight_request_reminder_due"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	DestinationID string    `json:"destination_id"`
	TravelDate    time.Time `json:"travel_date"`
}

// RequestReservedPayload payload.
type RequestReservedPayload struct {
	ReservedBy    string    `json:"reserved_by"`
	ReservedAt    time.Time `json:"reserved_at"`
	RequesterID   string    `json:"requester_id"`
	OperatorNotes *string   `json:"operator_notes,omitempty"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
}

// ReminderDuePayload payload.
type ReminderDuePayload struct {
	RequesterEmail string    `json:"requester_email"`
	Destination    string    `json:"destination"`
	TravelDate     time.Time `json:"travel_date"`
}
