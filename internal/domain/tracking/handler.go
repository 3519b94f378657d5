package tracking

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/vitaluxe/pharmacy-bridge/internal/platform/auth"
	"github.com/vitaluxe/pharmacy-bridge/pkg/pagination"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterWebhook mounts the unauthenticated callback endpoint. Pharmacies
// authenticate by HMAC signature, not by bearer token.
func (h *Handler) RegisterWebhook(e *echo.Echo) {
	e.POST("/webhooks/pharmacy", h.Receive)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "pharmacist"))
	readGroup.GET("/tracking-updates", h.List)
}

func (h *Handler) Receive(c echo.Context) error {
	pharmacyHeader := c.Request().Header.Get("x-pharmacy-id")
	if pharmacyHeader == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing x-pharmacy-id header")
	}
	pharmacyID, err := uuid.Parse(pharmacyHeader)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid x-pharmacy-id header")
	}

	rawBody, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	signature := c.Request().Header.Get("x-pharmacy-signature")
	_, err = h.svc.ProcessWebhook(c.Request().Context(), pharmacyID, signature, rawBody)
	if err != nil {
		var payloadErr *PayloadError
		switch {
		case errors.Is(err, ErrPharmacyNotFoundOrDisabled):
			return echo.NewHTTPError(http.StatusForbidden, "unknown or disabled pharmacy")
		case errors.Is(err, ErrSignatureInvalid):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrMalformedPayload):
			return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON payload")
		case errors.As(err, &payloadErr):
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"errors":  payloadErr.Errors,
			})
		case errors.Is(err, ErrOrderLineNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order or order line not found")
		default:
			log.Error().Err(err).
				Str("pharmacy_id", pharmacyID.String()).
				Msg("webhook processing failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to record tracking update")
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) List(c echo.Context) error {
	var filter ListFilter
	if v := c.QueryParam("order_line_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order_line_id")
		}
		filter.OrderLineID = &id
	}
	if v := c.QueryParam("pharmacy_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid pharmacy_id")
		}
		filter.PharmacyID = &id
	}

	page := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filter, page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, page.Limit, page.Offset))
}
