package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/domain"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(dto.DateOnly, value)
	require.NoError(t, err)
	return parsed
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestAuthenticateDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "maria@example.com", payload["email"])

		jsonHandler(http.StatusOK, `{"data":{"identity":{"id":"u-1","email":"maria@example.com","role":"client"},"token":"tok-123"}}`)(w, r)
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, Options{})
	result, err := gw.Authenticate(context.Background(), "maria@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", result.Token)
	assert.Equal(t, domain.RoleClient, result.Identity.Role)
}

func TestBearerTokenAttachedWhenPresent(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		jsonHandler(http.StatusOK, `{"data":[]}`)(w, r)
	}))
	defer server.Close()

	token := ""
	gw := NewHTTPGateway(server.URL, Options{Token: func() string { return token }})

	_, err := gw.FetchMyFlightRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen)

	token = "tok-123"
	_, err = gw.FetchMyFlightRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", seen)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		wantCode string
	}{
		{http.StatusBadRequest, `{"error":{"code":"VALIDATION_FAILED","message":"travel date must be in the future"}}`, apperrors.CodeValidationFailed},
		{http.StatusForbidden, `{"error":{"code":"FORBIDDEN","message":"operator role required"}}`, apperrors.CodeForbidden},
		{http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"flight request not found"}}`, apperrors.CodeNotFound},
		{http.StatusConflict, `{"error":{"code":"CONFLICT","message":"request is no longer pending"}}`, apperrors.CodeConflict},
		{http.StatusInternalServerError, `oops`, apperrors.CodeUnavailable},
		{http.StatusBadGateway, ``, apperrors.CodeUnavailable},
	}

	for _, tt := range tests {
		server := httptest.NewServer(jsonHandler(tt.status, tt.body))
		gw := NewHTTPGateway(server.URL, Options{})
		_, err := gw.FetchMyFlightRequests(context.Background())
		assert.Equal(t, tt.wantCode, apperrors.CodeOf(err), "status %d", tt.status)
		server.Close()
	}
}

func TestUnauthorizedFiresAuthRejectedHook(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusUnauthorized, `{"error":{"code":"UNAUTHORIZED","message":"token revoked"}}`))
	defer server.Close()

	rejections := 0
	gw := NewHTTPGateway(server.URL, Options{
		Token:          func() string { return "stale-token" },
		OnAuthRejected: func() { rejections++ },
	})

	_, err := gw.FetchMyFlightRequests(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	assert.Equal(t, 1, rejections)
}

func TestRejectedHookNotFiredOnOtherFailures(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusConflict, `{"error":{"code":"CONFLICT","message":"taken"}}`))
	defer server.Close()

	rejections := 0
	gw := NewHTTPGateway(server.URL, Options{OnAuthRejected: func() { rejections++ }})

	_, err := gw.ClaimFlightRequest(context.Background(), "r-1", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	assert.Zero(t, rejections)
}

func TestUnreachableAuthorityIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	gw := NewHTTPGateway(server.URL, Options{})
	_, err := gw.FetchMyFlightRequests(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}

func TestSubmitFlightRequestSendsDateOnly(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		jsonHandler(http.StatusCreated, `{"data":{"id":"r-1","status":"pending","travel_date":"2026-04-02"}}`)(w, r)
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, Options{})
	created, err := gw.SubmitFlightRequest(context.Background(), "d-uio", mustDate(t, "2026-04-02"), nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-02", received["travel_date"])
	assert.Equal(t, "r-1", created.ID)
}

func TestMalformedEnvelopeIsUnavailable(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{"unexpected":true}`))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, Options{})
	_, err := gw.FetchMyFlightRequests(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}
