package dto

import (
	"time"

	"github.com/evolution-fly/flight-service/internal/domain"
)

// DestinationRequest payload for create/update.
type DestinationRequest struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description,omitempty"`
	Active      bool    `json:"active"`
}

// DestinationResponse response.
type DestinationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description *string   `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DestinationResponseFrom maps the domain entity.
func DestinationResponseFrom(dest *domain.Destination) DestinationResponse {
	return DestinationResponse{
		ID:          dest.ID,
		Name:        dest.Name,
		Code:        dest.Code,
		Description: dest.Description,
		Active:      dest.Active,
		CreatedAt:   dest.CreatedAt,
		UpdatedAt:   dest.UpdatedAt,
	}
}
