package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	RoleClient = "client"

	defaultTokenTTL = 24 * time.Hour

	// ClaimsContextKey is where Middleware stores the validated claims
	ClaimsContextKey = "auth.claims"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks HS256 client tokens. A zero secret disables it.
type Authenticator struct {
	secret []byte
	apiKey string
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. apiKey guards token issuance.
func NewAuthenticator(secret, apiKey string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		apiKey: apiKey,
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
}

// Enabled reports whether a signing secret is configured
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// GenerateClientToken exchanges a valid api key for a signed token
func (a *Authenticator) GenerateClientToken(clientID, apiKey string) (string, time.Time, error) {
	if a.apiKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.apiKey)) != 1 {
		return "", time.Time{}, ErrInvalidAPIKey
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := &JWTClaims{
		ClientID: clientID,
		Role:     RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func (a *Authenticator) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}

// Middleware rejects requests without a valid bearer token. Paths listed in
// skip pass through. When the authenticator is disabled every request passes.
func (a *Authenticator) Middleware(logger *zap.Logger, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.Enabled() || skipped[c.Path()] {
				return next(c)
			}

			token, err := BearerToken(c.Request().Header.Get("Authorization"))
			if err != nil {
				logger.Warn("Request rejected: missing token", zap.String("path", c.Path()))
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "JWT token is required in Authorization header",
				})
			}

			claims, err := a.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.String("path", c.Path()), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "Invalid or expired JWT token",
				})
			}

			c.Set(ClaimsContextKey, claims)
			return next(c)
		}
	}
}
