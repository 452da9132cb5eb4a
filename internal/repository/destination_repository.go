package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evolution-fly/flight-service/internal/domain"
)

// DestinationRepository manages destination persistence.
type DestinationRepository interface {
	Create(ctx context.Context, dest *domain.Destination) error
	Update(ctx context.Context, dest *domain.Destination) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Destination, error)
	List(ctx context.Context) ([]domain.Destination, error)
	ListActive(ctx context.Context) ([]domain.Destination, error)
}

type destinationRepository struct {
	pool *pgxpool.Pool
}

// NewDestinationRepository builds the repository.
func NewDestinationRepository(pool *pgxpool.Pool) DestinationRepository {
	return &destinationRepository{pool: pool}
}

func (r *destinationRepository) Create(ctx context.Context, dest *domain.Destination) error {
	const query = `
        INSERT INTO destinations (name, code, description, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		dest.Name,
		dest.Code,
		dest.Description,
		dest.Active,
	).Scan(&dest.ID, &dest.CreatedAt, &dest.UpdatedAt)
}

func (r *destinationRepository) Update(ctx context.Context, dest *domain.Destination) error {
	const query = `
        UPDATE destinations SET name=$1, code=$2, description=$3, active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		dest.Name,
		dest.Code,
		dest.Description,
		dest.Active,
		dest.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *destinationRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM destinations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *destinationRepository) GetByID(ctx context.Context, id string) (*domain.Destination, error) {
	const query = `
        SELECT id, name, code, description, active, created_at, updated_at
        FROM destinations WHERE id=$1`
	var dest domain.Destination
	if err := r.pool.QueryRow(ctx, query, id).Scan(
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
	return &dest, nil
}

func (r *destinationRepository) List(ctx context.Context) ([]domain.Destination, error) {
	const query = `
        SELECT id, name, code, description, active, created_at, updated_at
        FROM destinations ORDER BY name`
	return r.queryMany(ctx, query)
}

func (r *destinationRepository) ListActive(ctx context.Context) ([]domain.Destination, error) {
	const query = `
        SELECT id, name, code, description, active, created_at, updated_at
        FROM destinations WHERE active = TRUE ORDER BY name`
	return r.queryMany(ctx, query)
}

func (r *destinationRepository) queryMany(ctx context.Context, query string) ([]domain.Destination, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Destination
	for rows.Next() {
		var dest domain.Destination
		if err := rows.Scan(&dest.ID, &dest.Name, &dest.Code, &dest.Description, &dest.Active, &dest.CreatedAt, &dest.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, dest)
	}
	return result, rows.Err()
}
