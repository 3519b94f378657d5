package transmission

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitaluxe/pharmacy-bridge/internal/platform/auth"
	"github.com/vitaluxe/pharmacy-bridge/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// The log carries upstream response bodies; reads stay admin-only.
	readGroup := api.Group("", auth.RequireRole("admin"))
	readGroup.GET("/transmissions", h.List)
	readGroup.GET("/transmissions/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician"))
	writeGroup.POST("/orders/:id/transmit", h.Transmit)
	writeGroup.POST("/orders/:id/cancel", h.Cancel)

	// Batch retry is an operator tool.
	api.POST("/transmissions/retry", h.RetryBatch, auth.RequireRole("admin"))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetByID(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "transmission not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) List(c echo.Context) error {
	var filter ListFilter
	if v := c.QueryParam("order_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order_id")
		}
		filter.OrderID = &id
	}
	if v := c.QueryParam("pharmacy_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid pharmacy_id")
		}
		filter.PharmacyID = &id
	}
	if v := c.QueryParam("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid success")
		}
		filter.Success = &b
	}

	page := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filter, page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, page.Limit, page.Offset))
}

func (h *Handler) Transmit(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	result, err := h.svc.TransmitOrder(c.Request().Context(), orderID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type cancelRequest struct {
	PharmacyID uuid.UUID `json:"pharmacy_id"`
	Reason     string    `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PharmacyID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pharmacy_id is required")
	}
	result, err := h.svc.CancelOrder(c.Request().Context(), orderID, req.PharmacyID, req.Reason)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "pharmacy not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type retryRequest struct {
	TransmissionIDs []uuid.UUID `json:"transmission_ids"`
}

func (h *Handler) RetryBatch(c echo.Context) error {
	var req retryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.TransmissionIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "transmission_ids are required")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	result := h.svc.RetryBatch(c.Request().Context(), req.TransmissionIDs, actor)
	return c.JSON(http.StatusOK, result)
}
