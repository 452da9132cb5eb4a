// Package lifecycle drives the flight request state machine from the client
// side. It holds a read/write-through mirror of authority state: after every
// mutating call the view is reconciled by re-querying, because that is the
// only way to observe authority-resolved races without a push channel.
package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/client/gateway"
	"github.com/evolution-fly/flight-service/internal/client/policy"
	"github.com/evolution-fly/flight-service/internal/client/session"
	"github.com/evolution-fly/flight-service/internal/domain"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// Manager coordinates flight request operations for the active session.
type Manager struct {
	gw      gateway.Gateway
	session *session.Store
	logger  *zap.Logger
	now     func() time.Time

	mu           sync.RWMutex
	requests     map[string]dto.FlightRequestResponse
	destinations []dto.DestinationResponse
}

// NewManager builds a manager bound to the session store.
func NewManager(gw gateway.Gateway, store *session.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		gw:       gw,
		session:  store,
		logger:   logger,
		now:      time.Now,
		requests: make(map[string]dto.FlightRequestResponse),
	}
}

// RefreshDestinations pulls the active destination list from the authority.
func (m *Manager) RefreshDestinations(ctx context.Context) ([]dto.DestinationResponse, error) {
	destinations, err := m.gw.ListActiveDestinations(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.destinations = destinations
	m.mu.Unlock()
	return destinations, nil
}

// Destinations returns the last fetched active destinations.
func (m *Manager) Destinations() []dto.DestinationResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]dto.DestinationResponse(nil), m.destinations...)
}

// Create submits a new request. Only clients may create, and both
// preconditions are checked locally before any network call: the destination
// must be a known active destination and the travel date must be strictly in
// the future at calendar-date granularity.
func (m *Manager) Create(ctx context.Context, destinationID string, travelDate time.Time, notes *string) (*dto.FlightRequestResponse, error) {
	if err := m.require(policy.RequireRole(domain.RoleClient)); err != nil {
		return nil, err
	}

	dest, err := m.lookupDestination(ctx, destinationID)
	if err != nil {
		return nil, err
	}
	if !dest.Active {
		return nil, apperrors.NewValidationError("destination is not active", map[string]any{"destination_id": destinationID})
	}
	if !dateStrictlyAfter(travelDate, m.now()) {
		return nil, apperrors.NewValidationError("travel date must be in the future", map[string]any{
			"travel_date": travelDate.Format(dto.DateOnly),
		})
	}

	created, err := m.gw.SubmitFlightRequest(ctx, destinationID, travelDate, notes)
	if err != nil {
		return nil, err
	}
	m.merge(*created)
	return created, nil
}

// ListMine returns the caller's view of requests: whatever set the authority
// decided to return. Role shapes display only, not filtering.
func (m *Manager) ListMine(ctx context.Context) ([]dto.FlightRequestResponse, error) {
	if err := m.require(policy.Authenticated()); err != nil {
		return nil, err
	}
	requests, err := m.gw.FetchMyFlightRequests(ctx)
	if err != nil {
		return nil, err
	}
	m.mergeAll(requests)
	return requests, nil
}

// ListPending returns the operator queue ordered by travel date ascending;
// the order is enforced here regardless of wire order because proximity to
// departure is what makes a request actionable.
func (m *Manager) ListPending(ctx context.Context) ([]dto.FlightRequestResponse, error) {
	if err := m.require(policy.RequireAnyOf(domain.RoleOperator, domain.RoleAdmin)); err != nil {
		return nil, err
	}
	requests, err := m.gw.FetchPendingFlightRequests(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].TravelDate < requests[j].TravelDate
	})
	m.mergeAll(requests)
	return requests, nil
}

// Reserve claims a pending request. The at-most-once guarantee lives at the
// authority: the call either returns the updated record or a conflict when
// another operator already won. Either way the local view is reconciled by
// re-querying, never by optimistic patching, and a lost race is reported to
// the caller rather than retried. A conflict reconciles through the full
// listing rather than the pending feed: the record that just flipped to
// reserved has already dropped out of the pending feed, so only the full
// listing can show the loser its authoritative state.
func (m *Manager) Reserve(ctx context.Context, id string, operatorNotes *string) (*dto.FlightRequestResponse, error) {
	if err := m.require(policy.RequireAnyOf(domain.RoleOperator, domain.RoleAdmin)); err != nil {
		return nil, err
	}

	claimed, err := m.gw.ClaimFlightRequest(ctx, id, operatorNotes)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			m.refreshRecord(ctx, id)
		}
		return nil, err
	}

	m.merge(*claimed)
	m.refreshPending(ctx)
	return claimed, nil
}

// Cached returns the locally mirrored record, if any.
func (m *Manager) Cached(id string) (dto.FlightRequestResponse, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.requests[id]
	return record, ok
}

// ShowRequesterColumn says whether listings should render the requester:
// clients only ever see their own requests, so the column is noise for them.
func (m *Manager) ShowRequesterColumn() bool {
	role, ok := m.session.Role()
	return ok && role.CanOperate()
}

// DaysUntilTravel recomputes the whole-day distance to travel on every call;
// "now" advances, so this is never cached and never feeds a transition.
func DaysUntilTravel(record dto.FlightRequestResponse, now time.Time) int {
	travel, err := time.Parse(dto.DateOnly, record.TravelDate)
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(travel.Sub(today).Hours() / 24)
}

func (m *Manager) require(req policy.Requirement) error {
	state := m.session.State()
	role, _ := m.session.Role()
	decision := policy.Decide(state, role, req)
	if decision.Permitted {
		return nil
	}
	switch decision.Reason {
	case policy.ReasonNotReady:
		return apperrors.NewUnavailable("session restore in progress", nil)
	case policy.ReasonMustAuthenticate:
		return apperrors.NewUnauthorized("authentication required")
	default:
		return apperrors.NewForbidden("insufficient role")
	}
}

func (m *Manager) lookupDestination(ctx context.Context, id string) (*dto.DestinationResponse, error) {
	m.mu.RLock()
	for i := range m.destinations {
		if m.destinations[i].ID == id {
			dest := m.destinations[i]
			m.mu.RUnlock()
			return &dest, nil
		}
	}
	m.mu.RUnlock()

	// Unknown locally; refresh once before rejecting.
	destinations, err := m.RefreshDestinations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range destinations {
		if destinations[i].ID == id {
			return &destinations[i], nil
		}
	}
	return nil, apperrors.NewValidationError("unknown destination", map[string]any{"destination_id": id})
}

// merge applies an authoritative record to the mirror. The latest response
// wins, with one guard: a terminal status is never overwritten by a
// non-terminal one, which would roll the state machine backwards.
func (m *Manager) merge(record dto.FlightRequestResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.requests[record.ID]; ok {
		if existing.Status.Terminal() && !record.Status.Terminal() {
			return
		}
	}
	m.requests[record.ID] = record
}

func (m *Manager) mergeAll(records []dto.FlightRequestResponse) {
	for _, record := range records {
		m.merge(record)
	}
}

// refreshRecord reconciles a single record from the full listing, which
// operators receive unscoped. When even the full listing no longer carries
// the record, the stale mirror entry is evicted instead of left pending.
func (m *Manager) refreshRecord(ctx context.Context, id string) {
	requests, err := m.gw.FetchMyFlightRequests(ctx)
	if err != nil {
		m.logger.Debug("record refresh failed", zap.String("id", id), zap.Error(err))
		return
	}
	m.mergeAll(requests)
	for _, record := range requests {
		if record.ID == id {
			return
		}
	}
	m.mu.Lock()
	delete(m.requests, id)
	m.mu.Unlock()
}

func (m *Manager) refreshPending(ctx context.Context) {
	requests, err := m.gw.FetchPendingFlightRequests(ctx)
	if err != nil {
		m.logger.Debug("pending refresh failed", zap.Error(err))
		return
	}
	m.mergeAll(requests)
}

func dateStrictlyAfter(travel, now time.Time) bool {
	t := time.Date(travel.Year(), travel.Month(), travel.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.After(n)
}
