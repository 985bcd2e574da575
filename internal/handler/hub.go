package handler

import (
	"storefront-payments/internal/middleware"
	"storefront-payments/internal/notify"

	"github.com/labstack/echo/v4"
)

type HubHandler struct {
	hub *notify.Hub
}

func NewHubHandler(hub *notify.Hub) *HubHandler {
	return &HubHandler{hub: hub}
}

func (h *HubHandler) Notifications(c echo.Context) error {
	h.hub.Handler(middleware.BuyerEmail(c)).ServeHTTP(c.Response(), c.Request())
	return nil
}
