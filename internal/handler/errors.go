package handler

import (
	"errors"
	"net/http"

	"storefront-payments/internal/service"

	"github.com/labstack/echo/v4"
)

// toHTTPError maps service sentinels to status codes; anything else is returned unchanged
// and ends up as a 500.
func toHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, service.ErrMissingBuyer):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCouponNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrDeliveryMethodNotFound),
		errors.Is(err, service.ErrDeliveryMethodRequired),
		errors.Is(err, service.ErrDeliveryMethodMismatch),
		errors.Is(err, service.ErrPaymentNotInitialized):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrOrderNotRefundable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrGateway):
		return echo.NewHTTPError(http.StatusBadGateway, "problem with your payment on the gateway").SetInternal(err)
	}
	return err
}
