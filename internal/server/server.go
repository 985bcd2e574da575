package server

import (
	"context"
	"log/slog"
	"net/http"

	"storefront-payments/internal/handler"
	"storefront-payments/internal/metrics"
	appmw "storefront-payments/internal/middleware"
	"storefront-payments/internal/notify"
	"storefront-payments/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Services struct {
	Payment service.PaymentService
	Cart    service.CartService
	Order   service.OrderService
	Catalog service.CatalogService
}

type Options struct {
	SignatureHeader string
	RateLimit       float64 // requests/second per client on buyer routes, 0 disables
}

type Server struct {
	echo           *echo.Echo
	auth           *appmw.Authenticator
	rateLimit      float64
	paymentHandler *handler.PaymentHandler
	cartHandler    *handler.CartHandler
	orderHandler   *handler.OrderHandler
	catalogHandler *handler.CatalogHandler
	hubHandler     *handler.HubHandler
}

func NewServer(services Services, auth *appmw.Authenticator, hub *notify.Hub, logger *slog.Logger, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())
	e.Use(appmw.RequestLogger(logger))
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		auth:           auth,
		rateLimit:      opts.RateLimit,
		paymentHandler: handler.NewPaymentHandler(services.Payment, opts.SignatureHeader),
		cartHandler:    handler.NewCartHandler(services.Cart),
		orderHandler:   handler.NewOrderHandler(services.Order),
		catalogHandler: handler.NewCatalogHandler(services.Catalog),
		hubHandler:     handler.NewHubHandler(hub),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- paystack webhook (HMAC authenticated, never rate limited) --------
	api.POST("/payments/paystack-webhook", s.paymentHandler.PaystackWebhook)

	buyer := api.Group("")
	if s.rateLimit > 0 {
		buyer.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.rateLimit))))
	}
	requireAuth := s.auth.Require()

	// -------- payments --------
	buyer.GET("/payments/delivery-methods", s.paymentHandler.GetDeliveryMethods)
	buyer.POST("/payments/:cartId", s.paymentHandler.CreateOrUpdatePaymentTransaction, requireAuth)

	// -------- cart --------
	buyer.GET("/cart", s.cartHandler.GetCart)
	buyer.POST("/cart", s.cartHandler.UpdateCart)
	buyer.DELETE("/cart", s.cartHandler.DeleteCart)
	buyer.POST("/cart/:id/coupon", s.cartHandler.ApplyCoupon)
	buyer.DELETE("/cart/:id/coupon", s.cartHandler.RemoveCoupon)

	// -------- catalog --------
	buyer.GET("/products", s.catalogHandler.ListProducts)
	buyer.GET("/products/:id", s.catalogHandler.GetProduct)

	// -------- orders --------
	orders := buyer.Group("/orders", requireAuth)
	orders.POST("", s.orderHandler.CreateOrder)
	orders.GET("", s.orderHandler.ListOrders)
	orders.GET("/:id", s.orderHandler.GetOrder)

	s.echo.GET("/hub/notifications", s.hubHandler.Notifications, requireAuth)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
