package domain

import "time"

// RequestStatus enumerates lifecycle states for flight requests.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusReserved  RequestStatus = "reserved"
	StatusCancelled RequestStatus = "cancelled"
	StatusCompleted RequestStatus = "completed"
)

// Terminal reports whether no further transition is permitted.
func (s RequestStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:   {StatusReserved, StatusCancelled},
	StatusReserved:  {StatusCompleted, StatusCancelled},
	StatusCancelled: {},
	StatusCompleted: {},
}

// ValidTransition reports whether current may move to next.
func ValidTransition(current, next RequestStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// FlightRequest is the aggregate submitted by clients and claimed by
// operators. ReservedBy and ReservedAt are attributed by the authority when
// the pending->reserved transition wins; they are never set while pending.
type FlightRequest struct {
	ID               string
	ReferenceKey     string
	RequesterID      string
	Requester        *Identity
	DestinationID    string
	Destination      *Destination
	TravelDate       time.Time
	Status           RequestStatus
	Notes            *string
	OperatorNotes    *string
	ReservedBy       *string
	ReservedAt       *time.Time
	NotificationSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DaysUntilTravel returns the whole-day difference between the travel date
// and now. Advisory for display only; transition decisions never consult it.
func (f *FlightRequest) DaysUntilTravel(now time.Time) int {
	travel := time.Date(f.TravelDate.Year(), f.TravelDate.Month(), f.TravelDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(travel.Sub(today).Hours() / 24)
}
