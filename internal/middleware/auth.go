package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront-payments/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const buyerEmailKey = "buyer_email"

// BuyerClaims identifies the authenticated buyer by email.
type BuyerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	cfg config.Auth
}

func NewAuthenticator(cfg config.Auth) *Authenticator {
	return &Authenticator{cfg: cfg}
}

// IssueToken signs an HS256 token for email, valid for the configured TTL.
func (a *Authenticator) IssueToken(email string, now time.Time) (string, error) {
	claims := BuyerClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
}

func (a *Authenticator) Parse(raw string) (*BuyerClaims, error) {
	claims := &BuyerClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(a.cfg.JWTSecret), nil
	},
		jwt.WithLeeway(30*time.Second),
		jwt.WithIssuer(a.cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Email == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Require rejects requests without a valid bearer token. Browsers cannot set headers on
// websocket upgrades, so the token may also arrive as the access_token query parameter.
func (a *Authenticator) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			} else {
				raw = c.QueryParam("access_token")
			}
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := a.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			SetBuyerEmail(c, claims.Email)
			return next(c)
		}
	}
}

func SetBuyerEmail(c echo.Context, email string) {
	c.Set(buyerEmailKey, email)
}

// BuyerEmail returns the email set by Require, or "" on unauthenticated routes.
func BuyerEmail(c echo.Context) string {
	email, _ := c.Get(buyerEmailKey).(string)
	return email
}
