package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evolution-fly/flight-service/internal/domain"
	"github.com/evolution-fly/flight-service/internal/events"
	"github.com/evolution-fly/flight-service/internal/observability"
	"github.com/evolution-fly/flight-service/internal/repository"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// FlightRequestService coordinates the request lifecycle on the authority
// side: creation, role-scoped listing, the reservation transition, and
// terminal-state enforcement.
type FlightRequestService struct {
	requests     repository.FlightRequestRepository
	destinations repository.DestinationRepository
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	now          func() time.Time
}

// FlightRequestDependencies bundles collaborators.
type FlightRequestDependencies struct {
	RequestRepo     repository.FlightRequestRepository
	DestinationRepo repository.DestinationRepository
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Now             func() time.Time
}

// CreateInput describes a submission payload.
type CreateInput struct {
	DestinationID string
	TravelDate    time.Time
	Notes         *string
}

// UpdateInput describes an operator-side update.
type UpdateInput struct {
	Status        *domain.RequestStatus
	OperatorNotes *string
}

// NewFlightRequestService constructs the service.
func NewFlightRequestService(deps FlightRequestDependencies) *FlightRequestService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &FlightRequestService{
		requests:     deps.RequestRepo,
		destinations: deps.DestinationRepo,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		now:          now,
	}
}

// Create submits a flight request for a client. Preconditions are checked
// before anything is written: the destination must exist and be active, and
// the travel date must be strictly in the future at date granularity.
func (s *FlightRequestService) Create(ctx context.Context, requester *domain.User, input CreateInput) (*domain.FlightRequest, error) {
	if requester.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("only clients may submit flight requests")
	}

	dest, err := s.destinations.GetByID(ctx, input.DestinationID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewValidationError("unknown destination", map[string]any{"destination_id": input.DestinationID})
		}
		return nil, apperrors.MapError(err)
	}
	if !dest.Active {
		return nil, apperrors.NewValidationError("destination is not active", map[string]any{"destination_id": dest.ID})
	}
	if !dateStrictlyAfter(input.TravelDate, s.now()) {
		return nil, apperrors.NewValidationError("travel date must be in the future", map[string]any{
			"travel_date": input.TravelDate.Format("2006-01-02"),
		})
	}

	request := &domain.FlightRequest{
		ReferenceKey:  generateReferenceKey(),
		RequesterID:   requester.ID,
		DestinationID: dest.ID,
		TravelDate:    truncateToDate(input.TravelDate),
		Status:        domain.StatusPending,
		Notes:         input.Notes,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}

	ident := domain.IdentityOf(requester)
	request.Requester = &ident
	request.Destination = dest
	s.metrics.RecordRequestCreated()

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: request.ID,
		ActorID:   requester.ID,
		Payload: events.RequestCreatedPayload{
			DestinationID: dest.ID,
			TravelDate:    request.TravelDate,
		},
	})
	return request, nil
}

// List returns the caller's view: clients see their own requests, operators
// and admins see everything.
func (s *FlightRequestService) List(ctx context.Context, caller *domain.User, limit, offset int) ([]domain.FlightRequest, error) {
	filter := repository.FlightRequestFilter{Limit: limit, Offset: offset}
	if !caller.Role.CanOperate() {
		requesterID := caller.ID
		filter.RequesterID = &requesterID
	}
	result, err := s.requests.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListPending returns the operator queue, travel date ascending.
func (s *FlightRequestService) ListPending(ctx context.Context, caller *domain.User) ([]domain.FlightRequest, error) {
	if !caller.Role.CanOperate() {
		return nil, apperrors.NewForbidden("operator role required")
	}
	result, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// Get fetches a request the caller may see.
func (s *FlightRequestService) Get(ctx context.Context, caller *domain.User, id string) (*domain.FlightRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("flight request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !caller.Role.CanOperate() && request.RequesterID != caller.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return request, nil
}

// Reserve claims a pending request for the calling operator. The transition
// is a single conditional update; when another operator won the race the
// caller gets a conflict, never a silent second success.
func (s *FlightRequestService) Reserve(ctx context.Context, caller *domain.User, id string, operatorNotes *string) (*domain.FlightRequest, error) {
	if !caller.Role.CanOperate() {
		return nil, apperrors.NewForbidden("operator role required")
	}

	request, err := s.requests.ReserveIfPending(ctx, id, caller.ID, operatorNotes, s.now())
	if err != nil {
		switch {
		case err == repository.ErrNotPending:
			s.metrics.RecordReservation(false)
			return nil, apperrors.NewConflict("request is no longer pending", map[string]any{"id": id})
		case err == pgx.ErrNoRows:
			return nil, apperrors.NewNotFound("flight request", map[string]any{"id": id})
		default:
			return nil, apperrors.MapError(err)
		}
	}

	s.metrics.RecordReservation(true)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestReserved,
		RequestID: request.ID,
		ActorID:   caller.ID,
		Payload: events.RequestReservedPayload{
			ReservedBy:    caller.ID,
			ReservedAt:    derefTime(request.ReservedAt, s.now()),
			RequesterID:   request.RequesterID,
			OperatorNotes: operatorNotes,
		},
	})
	return request, nil
}

// Update applies an operator-side status or notes change. Terminal requests
// are immutable; a transition into reserved goes through the same conditional
// path as Reserve so races still resolve to one winner.
func (s *FlightRequestService) Update(ctx context.Context, caller *domain.User, id string, input UpdateInput) (*domain.FlightRequest, error) {
	if !caller.Role.CanOperate() {
		return nil, apperrors.NewForbidden("operator role required")
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("flight request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Status != nil && *input.Status != request.Status {
		if request.Status.Terminal() {
			return nil, apperrors.NewConflict("request is in a terminal state", map[string]any{
				"id": id, "status": request.Status,
			})
		}
		if !domain.ValidTransition(request.Status, *input.Status) {
			return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
				"from": request.Status, "to": *input.Status,
			})
		}
		if *input.Status == domain.StatusReserved {
			return s.Reserve(ctx, caller, id, input.OperatorNotes)
		}
		oldStatus := request.Status
		request.Status = *input.Status
		if input.OperatorNotes != nil {
			request.OperatorNotes = input.OperatorNotes
		}
		if err := s.requests.Update(ctx, request); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.publishEvent(ctx, events.Event{
			Type:      events.EventRequestStatusChanged,
			RequestID: request.ID,
			ActorID:   caller.ID,
			Payload: events.RequestStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: request.Status,
			},
		})
		return request, nil
	}

	if input.OperatorNotes != nil {
		if request.Status.Terminal() {
			return nil, apperrors.NewConflict("request is in a terminal state", map[string]any{
				"id": id, "status": request.Status,
			})
		}
		request.OperatorNotes = input.OperatorNotes
		if err := s.requests.Update(ctx, request); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return request, nil
}

// Delete removes the caller's own request while it is still pending.
func (s *FlightRequestService) Delete(ctx context.Context, caller *domain.User, id string) error {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("flight request", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	if request.RequesterID != caller.ID && caller.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("access denied")
	}
	if request.Status != domain.StatusPending {
		return apperrors.NewConflict("only pending requests can be deleted", map[string]any{
			"id": id, "status": request.Status,
		})
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// SendDueReminders emits a reminder event for every reserved request
// travelling in exactly the configured number of days. The notification flag
// is claimed with a conditional update so each request reminds at most once.
func (s *FlightRequestService) SendDueReminders(ctx context.Context, daysBefore int) (int, error) {
	target := truncateToDate(s.now().AddDate(0, 0, daysBefore))
	due, err := s.requests.ListDueForReminder(ctx, target)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	sent := 0
	for i := range due {
		request := &due[i]
		claimed, err := s.requests.MarkNotificationSent(ctx, request.ID)
		if err != nil {
			return sent, apperrors.MapError(err)
		}
		if !claimed {
			continue
		}
		payload := events.ReminderDuePayload{TravelDate: request.TravelDate}
		if request.Requester != nil {
			payload.RequesterEmail = request.Requester.Email
		}
		if request.Destination != nil {
			payload.Destination = request.Destination.Name
		}
		s.publishEvent(ctx, events.Event{
			Type:      events.EventReminderDue,
			RequestID: request.ID,
			ActorID:   request.RequesterID,
			Payload:   payload,
		})
		s.metrics.RecordReminder()
		sent++
	}
	return sent, nil
}

func (s *FlightRequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateReferenceKey() string {
	return "FLR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// dateStrictlyAfter compares calendar dates only; a travel date equal to
// today is rejected, tomorrow is the earliest accepted.
func dateStrictlyAfter(travel, now time.Time) bool {
	return truncateToDate(travel).After(truncateToDate(now))
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}
