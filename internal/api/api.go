package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/entity"
)

// Pricer is the part of the pricing service the HTTP layer needs.
type Pricer interface {
	Calculate(ctx context.Context, req entity.PricingRequest) (*entity.PricingResult, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*entity.PricingResult, error)
}

type PricingHandler struct {
	pricingService Pricer
}

// NewPricingHandler creates a new instance of PricingHandler
func NewPricingHandler(pricingService Pricer) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// Calculate prices a request and stores a snapshot --> POST /pricing/calculate
func (h *PricingHandler) Calculate(c echo.Context) error {
	req := entity.PricingRequest{}
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidationError("Invalid request payload")
	}

	result, err := h.pricingService.Calculate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// GetSnapshot returns a stored calculation --> GET /pricing/snapshots/:id
func (h *PricingHandler) GetSnapshot(c echo.Context) error {
	result, err := h.pricingService.GetSnapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Health --> GET /pricing/health
func (h *PricingHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "pricing-service",
		"time":    time.Now().Format(time.RFC3339),
	})
}
