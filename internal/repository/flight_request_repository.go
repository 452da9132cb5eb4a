package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evolution-fly/flight-service/internal/domain"
)

// ErrNotPending is returned by ReserveIfPending when the request exists but
// has already left the pending state; the authority resolves reservation
// races by letting exactly one conditional update win.
var ErrNotPending = fmt.Errorf("flight request is not pending")

// FlightRequestFilter captures listing parameters.
type FlightRequestFilter struct {
	RequesterID *string
	Statuses    []domain.RequestStatus
	TravelOn    *time.Time
	Limit       int
	Offset      int
}

// FlightRequestRepository encapsulates flight request persistence.
type FlightRequestRepository interface {
	Create(ctx context.Context, request *domain.FlightRequest) error
	Update(ctx context.Context, request *domain.FlightRequest) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.FlightRequest, error)
	ListWithFilter(ctx context.Context, filter FlightRequestFilter) ([]domain.FlightRequest, error)
	ListPending(ctx context.Context) ([]domain.FlightRequest, error)
	ReserveIfPending(ctx context.Context, id, operatorID string, operatorNotes *string, at time.Time) (*domain.FlightRequest, error)
	MarkNotificationSent(ctx context.Context, id string) (bool, error)
	ListDueForReminder(ctx context.Context, travelOn time.Time) ([]domain.FlightRequest, error)
}

type flightRequestRepository struct {
	pool *pgxpool.Pool
}

// NewFlightRequestRepository instantiates the repository.
func NewFlightRequestRepository(pool *pgxpool.Pool) FlightRequestRepository {
	return &flightRequestRepository{pool: pool}
}

const requestColumns = `
        fr.id, fr.reference_key, fr.requester_id, fr.destination_id, fr.travel_date,
        fr.status, fr.notes, fr.operator_notes, fr.reserved_by, fr.reserved_at,
        fr.notification_sent, fr.created_at, fr.updated_at,
        u.id, u.username, u.email, u.first_name, u.last_name, u.phone, u.role,
        d.id, d.name, d.code, d.description, d.active, d.created_at, d.updated_at`

const requestJoins = `
        FROM flight_requests fr
        JOIN users u ON u.id = fr.requester_id
        JOIN destinations d ON d.id = fr.destination_id`

func (r *flightRequestRepository) Create(ctx context.Context, request *domain.FlightRequest) error {
	const query = `
        INSERT INTO flight_requests (reference_key, requester_id, destination_id, travel_date, status, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.ReferenceKey,
		request.RequesterID,
		request.DestinationID,
		request.TravelDate,
		request.Status,
		request.Notes,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *flightRequestRepository) Update(ctx context.Context, request *domain.FlightRequest) error {
	const query = `
        UPDATE flight_requests SET travel_date=$1, status=$2, notes=$3, operator_notes=$4,
            reserved_by=$5, reserved_at=$6, notification_sent=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		request.TravelDate,
		request.Status,
		request.Notes,
		request.OperatorNotes,
		request.ReservedBy,
		request.ReservedAt,
		request.NotificationSent,
		request.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *flightRequestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM flight_requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *flightRequestRepository) GetByID(ctx context.Context, id string) (*domain.FlightRequest, error) {
	query := `SELECT` + requestColumns + requestJoins + ` WHERE fr.id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanRequest(row)
}

func (r *flightRequestRepository) ListWithFilter(ctx context.Context, filter FlightRequestFilter) ([]domain.FlightRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("fr.requester_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("fr.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TravelOn != nil {
		args = append(args, *filter.TravelOn)
		clauses = append(clauses, fmt.Sprintf("fr.travel_date=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY fr.created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, requestJoins, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ListPending orders by travel date ascending: requests closest to departure
// surface first in the operator queue.
func (r *flightRequestRepository) ListPending(ctx context.Context) ([]domain.FlightRequest, error) {
	query := `SELECT` + requestColumns + requestJoins +
		` WHERE fr.status=$1 ORDER BY fr.travel_date ASC, fr.created_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ReserveIfPending performs the atomic conditional transition. The WHERE
// clause on status means concurrent claims cannot both succeed; the loser
// observes zero affected rows and gets ErrNotPending.
func (r *flightRequestRepository) ReserveIfPending(ctx context.Context, id, operatorID string, operatorNotes *string, at time.Time) (*domain.FlightRequest, error) {
	const query = `
        UPDATE flight_requests
        SET status=$1, reserved_by=$2, reserved_at=$3, operator_notes=COALESCE($4, operator_notes), updated_at=NOW()
        WHERE id=$5 AND status=$6`
	cmd, err := r.pool.Exec(ctx, query,
		domain.StatusReserved,
		operatorID,
		at,
		operatorNotes,
		id,
		domain.StatusPending,
	)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotPending
	}
	return r.GetByID(ctx, id)
}

// MarkNotificationSent flips the reminder flag at most once; a false return
// means another worker already claimed it.
func (r *flightRequestRepository) MarkNotificationSent(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE flight_requests SET notification_sent=TRUE, updated_at=NOW()
        WHERE id=$1 AND notification_sent=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *flightRequestRepository) ListDueForReminder(ctx context.Context, travelOn time.Time) ([]domain.FlightRequest, error) {
	query := `SELECT` + requestColumns + requestJoins +
		` WHERE fr.status=$1 AND fr.travel_date=$2 AND fr.notification_sent=FALSE`
	rows, err := r.pool.Query(ctx, query, domain.StatusReserved, travelOn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func scanRequest(row pgx.Row) (*domain.FlightRequest, error) {
	var (
		request   domain.FlightRequest
		requester domain.Identity
		dest      domain.Destination
	)
	if err := row.Scan(
		&request.ID,
		&request.ReferenceKey,
		&request.RequesterID,
		&request.DestinationID,
		&request.TravelDate,
		&request.Status,
		&request.Notes,
		&request.OperatorNotes,
		&request.ReservedBy,
		&request.ReservedAt,
		&request.NotificationSent,
		&request.CreatedAt,
		&request.UpdatedAt,
		&requester.ID,
		&requester.Username,
		&requester.Email,
		&requester.FirstName,
		&requester.LastName,
		&requester.Phone,
		&requester.Role,
		&dest.ID,
		&dest.Name,
		&dest.Code,
		&dest.Description,
		&dest.Active,
		&dest.CreatedAt,
		&dest.UpdatedAt,
	); err != nil {
		return nil, err
	}
	request.Requester = &requester
	request.Destination = &dest
	return &request, nil
}

func scanRequests(rows pgx.Rows) ([]domain.FlightRequest, error) {
	var result []domain.FlightRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *request)
	}
	return result, rows.Err()
}
