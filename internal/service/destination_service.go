package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evolution-fly/flight-service/internal/domain"
	"github.com/evolution-fly/flight-service/internal/repository"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

const (
	activeDestinationsKey = "destinations:active"
	destinationCacheTTL   = 5 * time.Minute
)

// DestinationService manages the destination reference table. The active
// list is served through a Redis cache invalidated on every write.
type DestinationService struct {
	destinations repository.DestinationRepository
	cache        *redis.Client
	logger       *zap.Logger
}

// DestinationInput describes create/update payloads.
type DestinationInput struct {
	Name        string
	Code        string
	Description *string
	Active      bool
}

// NewDestinationService builds the service.
func NewDestinationService(destinations repository.DestinationRepository, cache *redis.Client, logger *zap.Logger) *DestinationService {
	return &DestinationService{destinations: destinations, cache: cache, logger: logger}
}

// ListActive returns active destinations ordered by name, served from cache
// when fresh.
func (s *DestinationService) ListActive(ctx context.Context) ([]domain.Destination, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, activeDestinationsKey).Bytes(); err == nil {
			var result []domain.Destination
			if err := json.Unmarshal(cached, &result); err == nil {
				return result, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("destination cache read failed", zap.Error(err))
		}
	}

	result, err := s.destinations.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, activeDestinationsKey, encoded, destinationCacheTTL).Err(); err != nil {
				s.logger.Warn("destination cache write failed", zap.Error(err))
			}
		}
	}
	return result, nil
}

// List returns all destinations, active or not.
func (s *DestinationService) List(ctx context.Context) ([]domain.Destination, error) {
	result, err := s.destinations.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// Get fetches a single destination.
func (s *DestinationService) Get(ctx context.Context, id string) (*domain.Destination, error) {
	dest, err := s.destinations.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("destination", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return dest, nil
}

// Create adds a destination.
func (s *DestinationService) Create(ctx context.Context, input DestinationInput) (*domain.Destination, error) {
	if err := validateDestinationInput(input); err != nil {
		return nil, err
	}
	dest := &domain.Destination{
		Name:        strings.TrimSpace(input.Name),
		Code:        strings.ToUpper(strings.TrimSpace(input.Code)),
		Description: input.Description,
		Active:      input.Active,
	}
	if err := s.destinations.Create(ctx, dest); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateCache(ctx)
	return dest, nil
}

// Update modifies a destination.
func (s *DestinationService) Update(ctx context.Context, id string, input DestinationInput) (*domain.Destination, error) {
	if err := validateDestinationInput(input); err != nil {
		return nil, err
	}
	dest, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dest.Name = strings.TrimSpace(input.Name)
	dest.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	dest.Description = input.Description
	dest.Active = input.Active
	if err := s.destinations.Update(ctx, dest); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateCache(ctx)
	return dest, nil
}

// Delete removes a destination.
func (s *DestinationService) Delete(ctx context.Context, id string) error {
	if err := s.destinations.Delete(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("destination", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *DestinationService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, activeDestinationsKey).Err(); err != nil {
		s.logger.Warn("destination cache invalidation failed", zap.Error(err))
	}
}

func validateDestinationInput(input DestinationInput) error {
	name := strings.TrimSpace(input.Name)
	code := strings.TrimSpace(input.Code)
	if name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if len(code) != 3 {
		return apperrors.NewValidationError("code must be a 3-letter IATA-style code", map[string]any{"code": code})
	}
	return nil
}
