// Package channel implements the Message Channel component (spec.md §4.3/E):
// the station's WebSocket transport to its supervision URL, generalized from
// backend/services/ocpp-server/internal/ws/connection.go's server-side
// Connection into a client-Dial equivalent.
package channel

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials carries the station's supervision-URL authentication. Exactly
// one of the two constructors below should be used; a zero-value Credentials
// sends no Authorization header.
type Credentials struct {
	basicUser     string
	basicPassword string
	bearerToken   string
}

// BasicAuth builds header-ready credentials for HTTP Basic auth, the default
// OCPP security profile 1/2 mechanism (spec.md §3's basicAuthUser/Password).
func BasicAuth(user, password string) Credentials {
	return Credentials{basicUser: user, basicPassword: password}
}

// BearerToken builds header-ready credentials carrying a pre-issued JWT,
// grounded on backend/services/api-gateway/internal/http/middleware/auth.go's
// "Bearer <token>" parsing, mirrored here as construction instead of parsing.
func BearerToken(token string) Credentials {
	return Credentials{bearerToken: token}
}

// IssueBearerToken signs a short-lived HS256 token identifying stationID,
// grounded on backend/services/auth-service/internal/service/token_service.go.
// It is offered as an alternative to a supervisor-issued token when the
// simulator needs to self-mint one (e.g. against a test CSMS that validates
// a shared secret).
func IssueBearerToken(secret, stationID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"station_id": stationID,
		"iat":        jwt.NewNumericDate(now),
		"exp":        jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("channel: sign bearer token: %w", err)
	}
	return signed, nil
}

// ApplyTo sets the Authorization header (or none) on header for the upgrade
// request.
func (c Credentials) ApplyTo(header http.Header) {
	switch {
	case c.bearerToken != "":
		header.Set("Authorization", "Bearer "+c.bearerToken)
	case c.basicUser != "":
		raw := c.basicUser + ":" + c.basicPassword
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	}
}
