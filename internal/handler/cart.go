package handler

import (
	"errors"
	"net/http"

	"storefront-payments/internal/dto"
	"storefront-payments/internal/model"
	"storefront-payments/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// GetCart returns an empty cart for unknown ids so clients can start fresh.
func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.QueryParam("id")
	cart, err := h.cartService.GetCart(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrCartNotFound) {
			return c.JSON(http.StatusOK, &model.ShoppingCart{ID: id, Items: []model.CartItem{}})
		}
		return err
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) UpdateCart(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.Price.IsNegative() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid cart item")
		}
	}

	updated, err := h.cartService.SetCart(ctx, req.ToModel())
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, updated)
}

func (h *CartHandler) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.cartService.DeleteCart(ctx, c.QueryParam("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}

func (h *CartHandler) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ApplyCouponRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "coupon code is required")
	}

	cart, err := h.cartService.ApplyCoupon(ctx, c.Param("id"), req.Code)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.cartService.RemoveCoupon(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, cart)
}
