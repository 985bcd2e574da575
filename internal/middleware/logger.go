package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"storefront-payments/internal/logging"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestLogger logs one line per request and stores a request-scoped logger in the context.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := req.Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			l := base.With(
				"req_id", reqID,
				"method", req.Method,
				"path", c.Path(),
				"remote", c.RealIP(),
			)
			c.SetRequest(req.WithContext(logging.WithCtx(req.Context(), l)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				"status", status,
				"dur_ms", time.Since(start).Milliseconds(),
				"resp_bytes", c.Response().Size,
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}

			if status >= http.StatusInternalServerError {
				l.Error("http_request", attrs...)
				return nil
			}
			l.Info("http_request", attrs...)
			return nil
		}
	}
}
