package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/client/gateway"
	"github.com/evolution-fly/flight-service/internal/client/session"
	"github.com/evolution-fly/flight-service/internal/domain"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

type fakeGateway struct {
	destinations []dto.DestinationResponse
	pending      []dto.FlightRequestResponse
	mine         []dto.FlightRequestResponse

	submitCalls  int
	claimCalls   int
	pendingCalls int
	mineCalls    int

	submitResult *dto.FlightRequestResponse
	claimResult  *dto.FlightRequestResponse
	claimErr     error
}

func (g *fakeGateway) Authenticate(ctx context.Context, email, password string) (*gateway.AuthResult, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) CreateAccount(ctx context.Context, profile gateway.Profile) (*gateway.AuthResult, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) EndSession(ctx context.Context) error { return nil }

func (g *fakeGateway) SubmitFlightRequest(ctx context.Context, destinationID string, travelDate time.Time, notes *string) (*dto.FlightRequestResponse, error) {
	g.submitCalls++
	return g.submitResult, nil
}

func (g *fakeGateway) FetchMyFlightRequests(ctx context.Context) ([]dto.FlightRequestResponse, error) {
	g.mineCalls++
	return g.mine, nil
}

// The pending feed never carries non-pending records, matching the authority.
func (g *fakeGateway) FetchPendingFlightRequests(ctx context.Context) ([]dto.FlightRequestResponse, error) {
	g.pendingCalls++
	var out []dto.FlightRequestResponse
	for _, record := range g.pending {
		if record.Status == domain.StatusPending {
			out = append(out, record)
		}
	}
	return out, nil
}

func (g *fakeGateway) ClaimFlightRequest(ctx context.Context, id string, operatorNotes *string) (*dto.FlightRequestResponse, error) {
	g.claimCalls++
	if g.claimErr != nil {
		return nil, g.claimErr
	}
	return g.claimResult, nil
}

func (g *fakeGateway) ListActiveDestinations(ctx context.Context) ([]dto.DestinationResponse, error) {
	return g.destinations, nil
}

func authenticatedStore(t *testing.T, role domain.Role) *session.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	raw, err := json.Marshal(map[string]any{
		"identity": domain.Identity{ID: "u-1", Email: "user@example.com", Role: role},
		"token":    "tok-123",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	store := session.NewStore(path, nil, nil)
	store.Restore()
	require.True(t, store.IsAuthenticated())
	return store
}

func quito() dto.DestinationResponse {
	return dto.DestinationResponse{ID: "d-uio", Name: "Quito", Code: "UIO", Active: true}
}

func pendingRequest(id, travelDate string) dto.FlightRequestResponse {
	return dto.FlightRequestResponse{
		ID:           id,
		ReferenceKey: "FLR-" + id,
		TravelDate:   travelDate,
		Status:       domain.StatusPending,
	}
}

func newTestManager(t *testing.T, gw *fakeGateway, role domain.Role) *Manager {
	t.Helper()
	return NewManager(gw, authenticatedStore(t, role), nil)
}

func TestCreateRejectsTodayAcceptsTomorrow(t *testing.T) {
	gw := &fakeGateway{destinations: []dto.DestinationResponse{quito()}}
	m := newTestManager(t, gw, domain.RoleClient)
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_, err := m.RefreshDestinations(context.Background())
	require.NoError(t, err)

	// Same calendar day, even with hours left on the clock.
	_, err = m.Create(context.Background(), "d-uio", now.Add(2*time.Hour), nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	assert.Zero(t, gw.submitCalls)

	gw.submitResult = &dto.FlightRequestResponse{ID: "r-1", TravelDate: "2026-03-11", Status: domain.StatusPending}
	created, err := m.Create(context.Background(), "d-uio", now.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, "r-1", created.ID)
	assert.Equal(t, 1, gw.submitCalls)
}

func TestCreateRejectsInactiveDestinationLocally(t *testing.T) {
	inactive := quito()
	inactive.Active = false
	gw := &fakeGateway{destinations: []dto.DestinationResponse{inactive}}
	m := newTestManager(t, gw, domain.RoleClient)

	_, err := m.Create(context.Background(), "d-uio", time.Now().AddDate(0, 0, 7), nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	assert.Zero(t, gw.submitCalls)
}

func TestCreateRejectsUnknownDestination(t *testing.T) {
	gw := &fakeGateway{destinations: []dto.DestinationResponse{quito()}}
	m := newTestManager(t, gw, domain.RoleClient)

	_, err := m.Create(context.Background(), "d-nope", time.Now().AddDate(0, 0, 7), nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	assert.Zero(t, gw.submitCalls)
}

func TestCreateRequiresClientRole(t *testing.T) {
	gw := &fakeGateway{destinations: []dto.DestinationResponse{quito()}}
	m := newTestManager(t, gw, domain.RoleOperator)

	_, err := m.Create(context.Background(), "d-uio", time.Now().AddDate(0, 0, 7), nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	assert.Zero(t, gw.submitCalls)
}

func TestListPendingSortsByTravelDate(t *testing.T) {
	gw := &fakeGateway{pending: []dto.FlightRequestResponse{
		pendingRequest("r-late", "2026-06-20"),
		pendingRequest("r-soon", "2026-04-02"),
		pendingRequest("r-mid", "2026-05-11"),
	}}
	m := newTestManager(t, gw, domain.RoleOperator)

	requests, err := m.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, "r-soon", requests[0].ID)
	assert.Equal(t, "r-mid", requests[1].ID)
	assert.Equal(t, "r-late", requests[2].ID)
}

func TestListPendingRequiresOperator(t *testing.T) {
	m := newTestManager(t, &fakeGateway{}, domain.RoleClient)
	_, err := m.ListPending(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestReserveReconcilesByRequery(t *testing.T) {
	reserved := pendingRequest("r-1", "2026-04-02")
	reserved.Status = domain.StatusReserved
	gw := &fakeGateway{claimResult: &reserved}
	m := newTestManager(t, gw, domain.RoleOperator)

	claimed, err := m.Reserve(context.Background(), "r-1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReserved, claimed.Status)
	assert.Equal(t, 1, gw.claimCalls)
	assert.Equal(t, 1, gw.pendingCalls)

	cached, ok := m.Cached("r-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusReserved, cached.Status)
}

func TestReserveConflictRefreshesAffectedRecord(t *testing.T) {
	winnerView := pendingRequest("r-1", "2026-04-02")
	winnerView.Status = domain.StatusReserved
	gw := &fakeGateway{
		pending:  []dto.FlightRequestResponse{pendingRequest("r-1", "2026-04-02")},
		claimErr: apperrors.NewConflict("request is no longer pending", nil),
		// The reserved record has dropped out of the pending feed; only the
		// full listing still carries it.
		mine: []dto.FlightRequestResponse{winnerView},
	}
	m := newTestManager(t, gw, domain.RoleOperator)

	// The operator saw the record while it was still pending.
	_, err := m.ListPending(context.Background())
	require.NoError(t, err)
	gw.pending = nil

	_, err = m.Reserve(context.Background(), "r-1", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	assert.Equal(t, 1, gw.mineCalls)

	cached, ok := m.Cached("r-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusReserved, cached.Status)
}

func TestReserveConflictEvictsRecordGoneFromAuthority(t *testing.T) {
	gw := &fakeGateway{
		pending:  []dto.FlightRequestResponse{pendingRequest("r-1", "2026-04-02")},
		claimErr: apperrors.NewConflict("request is no longer pending", nil),
	}
	m := newTestManager(t, gw, domain.RoleOperator)

	_, err := m.ListPending(context.Background())
	require.NoError(t, err)
	gw.pending = nil

	_, err = m.Reserve(context.Background(), "r-1", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	// Not even the full listing returns the record anymore, so the stale
	// pending entry must not linger in the mirror.
	_, ok := m.Cached("r-1")
	assert.False(t, ok)
}

func TestTerminalStatusNeverOverwrittenLocally(t *testing.T) {
	m := newTestManager(t, &fakeGateway{}, domain.RoleOperator)

	completed := pendingRequest("r-1", "2026-04-02")
	completed.Status = domain.StatusCompleted
	m.merge(completed)

	// A stale list response must not roll the record backwards.
	m.merge(pendingRequest("r-1", "2026-04-02"))

	cached, ok := m.Cached("r-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusCompleted, cached.Status)

	// Terminal to terminal updates still apply.
	cancelled := pendingRequest("r-1", "2026-04-02")
	cancelled.Status = domain.StatusCancelled
	m.merge(cancelled)
	cached, _ = m.Cached("r-1")
	assert.Equal(t, domain.StatusCancelled, cached.Status)
}

func TestOperationsWhileLoadingAreNotReady(t *testing.T) {
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"), nil, nil)
	// No Restore: the store is still loading.
	m := NewManager(&fakeGateway{}, store, nil)

	_, err := m.ListMine(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}

func TestDaysUntilTravel(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	record := pendingRequest("r-1", "2026-03-12")
	assert.Equal(t, 2, DaysUntilTravel(record, now))

	sameDay := pendingRequest("r-2", "2026-03-10")
	assert.Equal(t, 0, DaysUntilTravel(sameDay, now))
}
