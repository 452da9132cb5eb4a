package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/domain"
	"github.com/evolution-fly/flight-service/internal/service"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// DestinationsHandler manages the destination reference table.
type DestinationsHandler struct {
	service *service.DestinationService
}

// NewDestinationsHandler constructs handler.
func NewDestinationsHandler(destinationService *service.DestinationService) *DestinationsHandler {
	return &DestinationsHandler{service: destinationService}
}

// List GET /destinations.
func (h *DestinationsHandler) List(c *fiber.Ctx) error {
	destinations, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": destinationResponses(destinations)})
}

// ListActive GET /destinations/active.
func (h *DestinationsHandler) ListActive(c *fiber.Ctx) error {
	destinations, err := h.service.ListActive(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": destinationResponses(destinations)})
}

// Create POST /destinations.
func (h *DestinationsHandler) Create(c *fiber.Ctx) error {
	var req dto.DestinationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dest, err := h.service.Create(c.Context(), service.DestinationInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.DestinationResponseFrom(dest)})
}

// Update PUT /destinations/:id.
func (h *DestinationsHandler) Update(c *fiber.Ctx) error {
	var req dto.DestinationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dest, err := h.service.Update(c.Context(), c.Params("id"), service.DestinationInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DestinationResponseFrom(dest)})
}

// Delete DELETE /destinations/:id.
func (h *DestinationsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func destinationResponses(destinations []domain.Destination) []dto.DestinationResponse {
	items := make([]dto.DestinationResponse, 0, len(destinations))
	for i := range destinations {
		items = append(items, dto.DestinationResponseFrom(&destinations[i]))
	}
	return items
}
