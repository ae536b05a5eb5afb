// Package auth implements the static bearer-token gate in front of the
// gateway and its collaborator services.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

const bearerPrefix = "Bearer "

// Errors returned by ExtractBearer and Guard.Validate.
var (
	ErrMissingHeader   = errors.New("missing authorization header")
	ErrMalformedHeader = errors.New("malformed authorization header")
	ErrInvalidToken    = errors.New("invalid token")
)

// Response details, kept stable for existing clients.
const (
	detailInvalidHeader = "Invalid authorization header"
	detailInvalidToken  = "Invalid token"
)

// ExtractBearer returns everything after "Bearer " as the token.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}

	rest, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", ErrMalformedHeader
	}

	return rest, nil
}

// Guard admits requests carrying the configured token.
type Guard struct {
	token         []byte
	invalidDetail string
	logger        infralogger.Logger
}

// NewGuard creates a guard for token.
func NewGuard(token string, log infralogger.Logger) *Guard {
	return &Guard{token: []byte(token), invalidDetail: detailInvalidToken, logger: log}
}

// WithInvalidTokenDetail overrides the 401 detail sent for a wrong token.
func (g *Guard) WithInvalidTokenDetail(detail string) *Guard {
	g.invalidDetail = detail
	return g
}

// Validate checks an Authorization header value and returns its token.
func (g *Guard) Validate(header string) (string, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return "", err
	}

	if subtle.ConstantTimeCompare([]byte(token), g.token) != 1 {
		return "", ErrInvalidToken
	}

	return token, nil
}

// Middleware rejects unauthenticated requests with 401 {"detail": ...}
// before any handler runs.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := g.Validate(c.GetHeader("Authorization")); err != nil {
			detail := detailInvalidHeader
			if errors.Is(err, ErrInvalidToken) {
				detail = g.invalidDetail
			}

			g.logger.Warn("Rejected unauthenticated request",
				infralogger.String("path", c.Request.URL.Path),
				infralogger.String("reason", err.Error()),
				infralogger.String("client_ip", c.ClientIP()),
			)

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
			return
		}

		c.Next()
	}
}
