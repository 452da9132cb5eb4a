package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// TokenSource supplies the current bearer token; empty means no session.
type TokenSource func() string

// Options configures the HTTP gateway.
type Options struct {
	// Token supplies the session credential attached to each call.
	Token TokenSource
	// OnAuthRejected fires once per authority-rejected credential. This is
	// the single central detection point for forced session teardown; call
	// sites never duplicate the check.
	OnAuthRejected func()
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// HTTPGateway talks JSON to the authority service.
type HTTPGateway struct {
	baseURL        string
	client         *http.Client
	token          TokenSource
	onAuthRejected func()
}

// NewHTTPGateway builds a gateway against the given base URL.
func NewHTTPGateway(baseURL string, opts Options) *HTTPGateway {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPGateway{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		token:          opts.Token,
		onAuthRejected: opts.OnAuthRejected,
	}
}

var _ Gateway = (*HTTPGateway)(nil)

// Authenticate implements Gateway.
func (g *HTTPGateway) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	var resp dto.AuthResponse
	err := g.call(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Identity: resp.Identity, Token: resp.Token, ExpiresAt: resp.ExpiresAt}, nil
}

// CreateAccount implements Gateway.
func (g *HTTPGateway) CreateAccount(ctx context.Context, profile Profile) (*AuthResult, error) {
	var resp dto.AuthResponse
	err := g.call(ctx, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Username:        profile.Username,
		Email:           profile.Email,
		FirstName:       profile.FirstName,
		LastName:        profile.LastName,
		Phone:           profile.Phone,
		Password:        profile.Password,
		PasswordConfirm: profile.PasswordConfirm,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Identity: resp.Identity, Token: resp.Token, ExpiresAt: resp.ExpiresAt}, nil
}

// EndSession implements Gateway. Callers treat failures as best-effort.
func (g *HTTPGateway) EndSession(ctx context.Context) error {
	return g.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// SubmitFlightRequest implements Gateway.
func (g *HTTPGateway) SubmitFlightRequest(ctx context.Context, destinationID string, travelDate time.Time, notes *string) (*dto.FlightRequestResponse, error) {
	var resp dto.FlightRequestResponse
	err := g.call(ctx, http.MethodPost, "/flight-requests", dto.CreateFlightRequest{
		DestinationID: destinationID,
		TravelDate:    travelDate.Format(dto.DateOnly),
		Notes:         notes,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchMyFlightRequests implements Gateway.
func (g *HTTPGateway) FetchMyFlightRequests(ctx context.Context) ([]dto.FlightRequestResponse, error) {
	var resp []dto.FlightRequestResponse
	if err := g.call(ctx, http.MethodGet, "/flight-requests", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// FetchPendingFlightRequests implements Gateway.
func (g *HTTPGateway) FetchPendingFlightRequests(ctx context.Context) ([]dto.FlightRequestResponse, error) {
	var resp []dto.FlightRequestResponse
	if err := g.call(ctx, http.MethodGet, "/flight-requests/pending", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ClaimFlightRequest implements Gateway.
func (g *HTTPGateway) ClaimFlightRequest(ctx context.Context, id string, operatorNotes *string) (*dto.FlightRequestResponse, error) {
	var resp dto.FlightRequestResponse
	err := g.call(ctx, http.MethodPost, "/flight-requests/"+id+"/reserve", dto.ReserveFlightRequest{OperatorNotes: operatorNotes}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListActiveDestinations implements Gateway.
func (g *HTTPGateway) ListActiveDestinations(ctx context.Context) ([]dto.DestinationResponse, error) {
	var resp []dto.DestinationResponse
	if err := g.call(ctx, http.MethodGet, "/destinations/active", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (g *HTTPGateway) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != nil {
		if token := g.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.NewUnavailable("authority unreachable", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewUnavailable("reading authority response", err)
	}

	if resp.StatusCode >= 400 {
		return g.mapFailure(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Data == nil {
		return apperrors.NewUnavailable("malformed authority response", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.NewUnavailable("malformed authority response", err)
	}
	return nil
}

func (g *HTTPGateway) mapFailure(status int, payload []byte) error {
	message := "request rejected"
	var details map[string]any

	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Error != nil {
		if env.Error.Message != "" {
			message = env.Error.Message
		}
		details = env.Error.Details
	}

	switch status {
	case http.StatusUnauthorized:
		if g.onAuthRejected != nil {
			g.onAuthRejected()
		}
		return apperrors.NewUnauthorized(message)
	case http.StatusForbidden:
		return apperrors.NewForbidden(message)
	case http.StatusNotFound:
		return apperrors.NewNotFound("resource", details)
	case http.StatusConflict:
		return apperrors.NewConflict(message, details)
	case http.StatusBadRequest:
		return apperrors.NewValidationError(message, details)
	default:
		return apperrors.NewUnavailable(fmt.Sprintf("authority returned %d", status), nil)
	}
}
