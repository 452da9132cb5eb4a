// Package gateway defines the narrow contract the client core uses against
// the remote authority, plus its HTTP implementation. All conflict
// resolution happens on the authority side; this package only transports
// intent and maps failure statuses back onto the shared error taxonomy.
package gateway

import (
	"context"
	"time"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/domain"
)

// AuthResult is what the authority hands back on successful authentication:
// the wholesale identity and its bearer token.
type AuthResult struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}

// Profile describes a registration payload.
type Profile struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Phone           *string
	Password        string
	PasswordConfirm string
}

// Gateway is the remote authority contract. Every call carries the current
// session token implicitly when one is active.
type Gateway interface {
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	CreateAccount(ctx context.Context, profile Profile) (*AuthResult, error)
	EndSession(ctx context.Context) error
	SubmitFlightRequest(ctx context.Context, destinationID string, travelDate time.Time, notes *string) (*dto.FlightRequestResponse, error)
	FetchMyFlightRequests(ctx context.Context) ([]dto.FlightRequestResponse, error)
	FetchPendingFlightRequests(ctx context.Context) ([]dto.FlightRequestResponse, error)
	ClaimFlightRequest(ctx context.Context, id string, operatorNotes *string) (*dto.FlightRequestResponse, error)
	ListActiveDestinations(ctx context.Context) ([]dto.DestinationResponse, error)
}
