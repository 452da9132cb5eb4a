package dto

import (
	"time"

	"github.com/evolution-fly/flight-service/internal/domain"
)

// DateOnly is the wire format for travel dates.
const DateOnly = "2006-01-02"

// CreateFlightRequest payload.
type CreateFlightRequest struct {
	DestinationID string  `json:"destination_id"`
	TravelDate    string  `json:"travel_date"`
	Notes         *string `json:"notes,omitempty"`
}

// ReserveFlightRequest payload.
type ReserveFlightRequest struct {
	OperatorNotes *string `json:"operator_notes,omitempty"`
}

// UpdateFlightRequest payload for operator-side updates.
type UpdateFlightRequest struct {
	Status        *domain.RequestStatus `json:"status,omitempty"`
	OperatorNotes *string               `json:"operator_notes,omitempty"`
}

// FlightRequestResponse is the authoritative record as clients see it.
type FlightRequestResponse struct {
	ID              string               `json:"id"`
	ReferenceKey    string               `json:"reference_key"`
	Requester       *domain.Identity     `json:"requester,omitempty"`
	Destination     *DestinationResponse `json:"destination,omitempty"`
	TravelDate      string               `json:"travel_date"`
	Status          domain.RequestStatus `json:"status"`
	Notes           *string              `json:"notes,omitempty"`
	OperatorNotes   *string              `json:"operator_notes,omitempty"`
	ReservedBy      *string              `json:"reserved_by,omitempty"`
	ReservedAt      *time.Time           `json:"reserved_at,omitempty"`
	DaysUntilTravel int                  `json:"days_until_travel"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// FlightRequestResponseFrom maps the domain aggregate. days_until_travel is
// computed at response time; it is display advice, not state.
func FlightRequestResponseFrom(request *domain.FlightRequest, now time.Time) FlightRequestResponse {
	resp := FlightRequestResponse{
		ID:              request.ID,
		ReferenceKey:    request.ReferenceKey,
		Requester:       request.Requester,
		TravelDate:      request.TravelDate.Format(DateOnly),
		Status:          request.Status,
		Notes:           request.Notes,
		OperatorNotes:   request.OperatorNotes,
		ReservedBy:      request.ReservedBy,
		ReservedAt:      request.ReservedAt,
		DaysUntilTravel: request.DaysUntilTravel(now),
		CreatedAt:       request.CreatedAt,
		UpdatedAt:       request.UpdatedAt,
	}
	if request.Destination != nil {
		dest := DestinationResponseFrom(request.Destination)
		resp.Destination = &dest
	}
	return resp
}
