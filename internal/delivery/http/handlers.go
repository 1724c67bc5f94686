package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/trafficpulse/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	dashboardSvc *service.DashboardService
	alertSvc     *service.AlertService
}

// NewHandler creates a new handler
func NewHandler(dashboardSvc *service.DashboardService, alertSvc *service.AlertService) *Handler {
	return &Handler{
		dashboardSvc: dashboardSvc,
		alertSvc:     alertSvc,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "trafficpulse",
		"version": "1.0.0",
	})
}

// GetStatus reports whether the simulation backend is reachable
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Status(),
	})
}

// GetDashboard returns the full reconciled view state
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Snapshot(),
	})
}

// RefreshDashboard fetches every view now and returns the new state
func (h *Handler) RefreshDashboard(c *fiber.Ctx) error {
	if err := h.dashboardSvc.Refresh(c.UserContext()); err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Dashboard refresh was interrupted")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Snapshot(),
	})
}

// GetKPIs returns the KPIs, or null while none are available
func (h *Handler) GetKPIs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Snapshot().KPIs,
	})
}

// GetInterval returns the current simulation interval
func (h *Handler) GetInterval(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Snapshot().Interval,
	})
}

// GetIntervals returns every interval label in backend order
func (h *Handler) GetIntervals(c *fiber.Ctx) error {
	intervals := h.dashboardSvc.Snapshot().Intervals
	return c.JSON(fiber.Map{
		"success": true,
		"data":    intervals,
		"count":   len(intervals),
	})
}

// GetUCP returns the raw UCP series
func (h *Handler) GetUCP(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Snapshot().UCPSeries,
	})
}

// GetChart returns the UCP chart series
func (h *Handler) GetChart(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Snapshot().Chart,
	})
}

// GetSegments returns the vehicle table. Without ?interval= it serves the polled
// table for the current interval; ?segment= filters by segment id.
func (h *Handler) GetSegments(c *fiber.Ctx) error {
	interval := c.Query("interval")
	segment := c.Query("segment")

	records := h.dashboardSvc.Segments(c.UserContext(), interval, segment)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

// GetTraffic returns the live state of every route segment
func (h *Handler) GetTraffic(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Snapshot().TrafficSegments,
	})
}

// GetDebug returns backend diagnostics, or null
func (h *Handler) GetDebug(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.Debug(c.UserContext()),
	})
}

// GetAlerts returns the active alerts, newest first
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	alerts := h.alertSvc.List()
	return c.JSON(fiber.Map{
		"success": true,
		"data":    alerts,
		"count":   len(alerts),
	})
}

// ResolveAlert dismisses one alert
func (h *Handler) ResolveAlert(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.alertSvc.Resolve(id) {
		return fiber.NewError(fiber.StatusNotFound, "Alert not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":     id,
			"status": "resolved",
		},
	})
}

// ErrorHandler renders fiber errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
