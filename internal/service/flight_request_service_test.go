package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolution-fly/flight-service/internal/domain"
	"github.com/evolution-fly/flight-service/internal/events"
	"github.com/evolution-fly/flight-service/internal/observability"
	"github.com/evolution-fly/flight-service/internal/repository"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

type memRequestRepo struct {
	byID    map[string]*domain.FlightRequest
	nextSeq int
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{byID: map[string]*domain.FlightRequest{}}
}

func (r *memRequestRepo) Create(ctx context.Context, request *domain.FlightRequest) error {
	r.nextSeq++
	request.ID = request.ReferenceKey
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	stored := *request
	r.byID[request.ID] = &stored
	return nil
}

func (r *memRequestRepo) Update(ctx context.Context, request *domain.FlightRequest) error {
	if _, ok := r.byID[request.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *request
	r.byID[request.ID] = &stored
	return nil
}

func (r *memRequestRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

func (r *memRequestRepo) GetByID(ctx context.Context, id string) (*domain.FlightRequest, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *memRequestRepo) ListWithFilter(ctx context.Context, filter repository.FlightRequestFilter) ([]domain.FlightRequest, error) {
	var out []domain.FlightRequest
	for _, stored := range r.byID {
		if filter.RequesterID != nil && stored.RequesterID != *filter.RequesterID {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *memRequestRepo) ListPending(ctx context.Context) ([]domain.FlightRequest, error) {
	var out []domain.FlightRequest
	for _, stored := range r.byID {
		if stored.Status == domain.StatusPending {
			out = append(out, *stored)
		}
	}
	return out, nil
}

// ReserveIfPending mirrors the conditional UPDATE: the transition applies
// only when the row is still pending, so concurrent claimers cannot both
// succeed.
func (r *memRequestRepo) ReserveIfPending(ctx context.Context, id, operatorID string, operatorNotes *string, at time.Time) (*domain.FlightRequest, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if stored.Status != domain.StatusPending {
		return nil, repository.ErrNotPending
	}
	stored.Status = domain.StatusReserved
	stored.ReservedBy = &operatorID
	reservedAt := at
	stored.ReservedAt = &reservedAt
	if operatorNotes != nil {
		stored.OperatorNotes = operatorNotes
	}
	stored.UpdatedAt = at
	out := *stored
	return &out, nil
}

func (r *memRequestRepo) MarkNotificationSent(ctx context.Context, id string) (bool, error) {
	stored, ok := r.byID[id]
	if !ok || stored.NotificationSent {
		return false, nil
	}
	stored.NotificationSent = true
	return true, nil
}

func (r *memRequestRepo) ListDueForReminder(ctx context.Context, travelOn time.Time) ([]domain.FlightRequest, error) {
	var out []domain.FlightRequest
	for _, stored := range r.byID {
		if stored.Status == domain.StatusReserved && stored.TravelDate.Equal(travelOn) && !stored.NotificationSent {
			out = append(out, *stored)
		}
	}
	return out, nil
}

type memDestinationRepo struct {
	byID map[string]*domain.Destination
}

func (r *memDestinationRepo) Create(ctx context.Context, dest *domain.Destination) error { return nil }
func (r *memDestinationRepo) Update(ctx context.Context, dest *domain.Destination) error { return nil }
func (r *memDestinationRepo) Delete(ctx context.Context, id string) error                { return nil }

func (r *memDestinationRepo) GetByID(ctx context.Context, id string) (*domain.Destination, error) {
	if dest, ok := r.byID[id]; ok {
		out := *dest
		return &out, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memDestinationRepo) List(ctx context.Context) ([]domain.Destination, error) {
	return nil, nil
}

func (r *memDestinationRepo) ListActive(ctx context.Context) ([]domain.Destination, error) {
	return nil, nil
}

type capturingDispatcher struct {
	published []events.Event
}

func (d *capturingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *capturingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *capturingDispatcher) typesPublished() []events.EventType {
	types := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		types = append(types, e.Type)
	}
	return types
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*FlightRequestService, *memRequestRepo, *capturingDispatcher) {
	t.Helper()
	requests := newMemRequestRepo()
	destinations := &memDestinationRepo{byID: map[string]*domain.Destination{
		"d-uio": {ID: "d-uio", Name: "Quito", Code: "UIO", Active: true},
		"d-cue": {ID: "d-cue", Name: "Cuenca", Code: "CUE", Active: false},
	}}
	dispatcher := &capturingDispatcher{}
	svc := NewFlightRequestService(FlightRequestDependencies{
		RequestRepo:     requests,
		DestinationRepo: destinations,
		Dispatcher:      dispatcher,
		Metrics:         observability.NewMetrics(),
		Now:             func() time.Time { return fixedNow },
	})
	return svc, requests, dispatcher
}

func client(id string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleClient, Active: true}
}

func operator(id string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleOperator, Active: true}
}

func TestCreateValidatesTravelDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Today is rejected even though hours remain.
	_, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.Add(10 * time.Hour),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	// Tomorrow is the earliest accepted date.
	created, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.NotEmpty(t, created.ReferenceKey)
}

func TestCreateRejectsInactiveAndUnknownDestinations(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, client("u-1"), CreateInput{DestinationID: "d-cue", TravelDate: fixedNow.AddDate(0, 0, 5)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = svc.Create(ctx, client("u-1"), CreateInput{DestinationID: "d-missing", TravelDate: fixedNow.AddDate(0, 0, 5)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestCreateRequiresClientRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), operator("op-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 5),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestReserveOnlyOneOperatorWins(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	winner, err := svc.Reserve(ctx, operator("op-1"), created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReserved, winner.Status)
	require.NotNil(t, winner.ReservedBy)
	assert.Equal(t, "op-1", *winner.ReservedBy)

	// Second claim on the same request loses with a conflict, not a second
	// success and not an internal error.
	_, err = svc.Reserve(ctx, operator("op-2"), created.ID, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	assert.Equal(t, []events.EventType{events.EventRequestCreated, events.EventRequestReserved}, dispatcher.typesPublished())

	won, conflicts := svc.metrics.Reservations()
	assert.Equal(t, int64(1), won)
	assert.Equal(t, int64(1), conflicts)
}

func TestReserveUnknownRequestIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Reserve(context.Background(), operator("op-1"), "missing", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestReserveRequiresOperatorRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Reserve(context.Background(), client("u-1"), "anything", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestUpdateRejectsTerminalRequests(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 5),
	})
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, operator("op-1"), created.ID, nil)
	require.NoError(t, err)

	completed := domain.StatusCompleted
	updated, err := svc.Update(ctx, operator("op-1"), created.ID, UpdateInput{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)

	// Terminal now; nothing further may change.
	cancelled := domain.StatusCancelled
	_, err = svc.Update(ctx, operator("op-1"), created.ID, UpdateInput{Status: &cancelled})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	notes := "late edit"
	_, err = svc.Update(ctx, operator("op-1"), created.ID, UpdateInput{OperatorNotes: &notes})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Nil(t, stored.OperatorNotes)
}

func TestUpdateRejectsSkippedTransitions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	// pending cannot jump straight to completed.
	completed := domain.StatusCompleted
	_, err = svc.Update(ctx, operator("op-1"), created.ID, UpdateInput{Status: &completed})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestUpdateToReservedUsesConditionalPath(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	// Updating into reserved goes through the same conditional claim as
	// Reserve, so the updater becomes the recorded owner.
	reserved := domain.StatusReserved
	notes := "window seat confirmed"
	updated, err := svc.Update(ctx, operator("op-2"), created.ID, UpdateInput{Status: &reserved, OperatorNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReserved, updated.Status)
	require.NotNil(t, updated.ReservedBy)
	assert.Equal(t, "op-2", *updated.ReservedBy)
	require.NotNil(t, updated.OperatorNotes)
	assert.Equal(t, notes, *updated.OperatorNotes)
}

func TestDeleteOwnPendingOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, client("u-2"), created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.Reserve(ctx, operator("op-1"), created.ID, nil)
	require.NoError(t, err)

	err = svc.Delete(ctx, client("u-1"), created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestSendDueRemindersIsAtMostOnce(t *testing.T) {
	svc, repo, dispatcher := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, client("u-1"), CreateInput{
		DestinationID: "d-uio",
		TravelDate:    fixedNow.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, operator("op-1"), created.ID, nil)
	require.NoError(t, err)

	sent, err := svc.SendDueReminders(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// A second scan finds the claim already taken.
	sent, err = svc.SendDueReminders(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)

	types := dispatcher.typesPublished()
	assert.Equal(t, events.EventReminderDue, types[len(types)-1])
}

func TestListScopesClientsToOwnRequests(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, client("u-1"), CreateInput{DestinationID: "d-uio", TravelDate: fixedNow.AddDate(0, 0, 3)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, client("u-2"), CreateInput{DestinationID: "d-uio", TravelDate: fixedNow.AddDate(0, 0, 4)})
	require.NoError(t, err)

	mine, err := svc.List(ctx, client("u-1"), 50, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "u-1", mine[0].RequesterID)

	all, err := svc.List(ctx, operator("op-1"), 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
