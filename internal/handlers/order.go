package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmmart/backend/internal/authz"
	"github.com/farmmart/backend/internal/inventory"
	"github.com/farmmart/backend/internal/logging"
	"github.com/farmmart/backend/internal/mykafka"
	"github.com/farmmart/backend/internal/orders"
	"github.com/farmmart/backend/internal/util"
)

type OrderHandler struct {
	Svc      *orders.Service
	Producer *mykafka.Producer
}

type orderItemRequest struct {
	ProductID uint    `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress string             `json:"shippingAddress"`
	// TotalAmount is accepted for display reconciliation only; the server
	// recomputes the authoritative total from the persisted items.
	TotalAmount float64 `json:"totalAmount"`
}

func (h *OrderHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func orderError(err error) *echo.HTTPError {
	var stockErr *orders.InsufficientStockError
	switch {
	case errors.Is(err, orders.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &stockErr):
		he := echo.NewHTTPError(http.StatusConflict, stockErr.Error())
		he.Internal = err
		return he
	case errors.Is(err, inventory.ErrProductNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, orders.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrTransactionFailed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_create")

	ident, err := IdentityFrom(c)
	if err != nil {
		return err
	}
	if err := authz.Decide(ident, authz.ActionPlaceOrder, 0); err != nil {
		l.Warn("create_order_failed", "status", 403, "user_id", ident.UserID)
		return echo.NewHTTPError(http.StatusForbidden, "only customers can place orders")
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	items := make([]orders.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.LineInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	order, err := h.Svc.PlaceOrder(ctx, ident.UserID, items, req.ShippingAddress)
	if err != nil {
		l.Warn("create_order_failed", "user_id", ident.UserID, "error", err)
		return orderError(err)
	}

	h.publish(c, fmt.Sprint(order.ID), map[string]any{
		"type":       "order_created",
		"orderID":    order.ID,
		"customerID": order.CustomerID,
		"total":      order.TotalAmount,
	})

	l.Info("create_order_success", "order_id", order.ID, "total", order.TotalAmount)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_update_status")

	ident, err := IdentityFrom(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.UpdateStatus(ctx, ident, uint(id), orders.Status(req.Status)); err != nil {
		l.Warn("update_status_failed", "order_id", id, "user_id", ident.UserID, "error", err)
		return orderError(err)
	}

	h.publish(c, fmt.Sprint(id), map[string]any{
		"type":    "order_status_changed",
		"orderID": id,
		"status":  req.Status,
	})

	l.Info("update_status_success", "order_id", id, "status", req.Status)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	ident, err := IdentityFrom(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	view, err := h.Svc.GetOrder(ctx, ident, uint(id))
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	ident, err := IdentityFrom(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	list, total, err := h.Svc.ListOrders(ctx, ident, page, size)
	if err != nil {
		return orderError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": list,
		"meta": map[string]any{
			"page":  page,
			"total": total,
		},
	})
}
