package handler

import (
	"io"
	"net/http"

	"storefront-payments/internal/logging"
	"storefront-payments/internal/middleware"
	"storefront-payments/internal/service"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	paymentService  service.PaymentService
	signatureHeader string
}

func NewPaymentHandler(paymentService service.PaymentService, signatureHeader string) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		signatureHeader: signatureHeader,
	}
}

func (h *PaymentHandler) CreateOrUpdatePaymentTransaction(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.paymentService.CreateOrUpdatePaymentTransaction(ctx, c.Param("cartId"), middleware.BuyerEmail(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *PaymentHandler) GetDeliveryMethods(c echo.Context) error {
	ctx := c.Request().Context()

	methods, err := h.paymentService.DeliveryMethods(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, methods)
}

// PaystackWebhook answers 200 for everything it has handled or deliberately dropped,
// 401 for a bad signature and 500 only when the gateway should redeliver.
func (h *PaymentHandler) PaystackWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if len(body) > maxWebhookBody {
		logging.FromCtx(ctx, logging.New("http")).Error("paystack webhook body exceeds limit", "limit", maxWebhookBody)
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}

	_, err = h.paymentService.HandleWebhook(ctx, c.Request().Header.Get(h.signatureHeader), body)
	if err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusOK)
}
