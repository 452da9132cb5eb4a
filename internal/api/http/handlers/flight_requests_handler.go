package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/auth"
	"github.com/evolution-fly/flight-service/internal/domain"
	"github.com/evolution-fly/flight-service/internal/service"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// FlightRequestsHandler exposes the request lifecycle endpoints.
type FlightRequestsHandler struct {
	service *service.FlightRequestService
}

// NewFlightRequestsHandler constructs handler.
func NewFlightRequestsHandler(requestService *service.FlightRequestService) *FlightRequestsHandler {
	return &FlightRequestsHandler{service: requestService}
}

// Create POST /flight-requests.
func (h *FlightRequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateFlightRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DestinationID == "" || req.TravelDate == "" {
		return apperrors.NewValidationError("destination_id and travel_date required", nil)
	}
	travelDate, err := time.Parse(dto.DateOnly, req.TravelDate)
	if err != nil {
		return apperrors.NewValidationError("travel_date must be YYYY-MM-DD", nil)
	}

	request, err := h.service.Create(c.Context(), principal.User, service.CreateInput{
		DestinationID: req.DestinationID,
		TravelDate:    travelDate,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FlightRequestResponseFrom(request, time.Now())})
}

// List GET /flight-requests.
func (h *FlightRequestsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit, offset := parsePagination(c)
	requests, err := h.service.List(c.Context(), principal.User, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponses(requests)})
}

// ListPending GET /flight-requests/pending.
func (h *FlightRequestsHandler) ListPending(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requests, err := h.service.ListPending(c.Context(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponses(requests)})
}

// Get GET /flight-requests/:id.
func (h *FlightRequestsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	request, err := h.service.Get(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FlightRequestResponseFrom(request, time.Now())})
}

// Reserve POST /flight-requests/:id/reserve.
func (h *FlightRequestsHandler) Reserve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReserveFlightRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	request, err := h.service.Reserve(c.Context(), principal.User, c.Params("id"), req.OperatorNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FlightRequestResponseFrom(request, time.Now())})
}

// Update PATCH /flight-requests/:id.
func (h *FlightRequestsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateFlightRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.service.Update(c.Context(), principal.User, c.Params("id"), service.UpdateInput{
		Status:        req.Status,
		OperatorNotes: req.OperatorNotes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FlightRequestResponseFrom(request, time.Now())})
}

// Delete DELETE /flight-requests/:id.
func (h *FlightRequestsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parsePagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func requestResponses(requests []domain.FlightRequest) []dto.FlightRequestResponse {
	now := time.Now()
	items := make([]dto.FlightRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.FlightRequestResponseFrom(&requests[i], now))
	}
	return items
}
