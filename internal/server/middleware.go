package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// VerifyConfig configures bearer JWT verification (HS256 only).
type VerifyConfig struct {
	Secret          []byte
	AllowedIssuer   string
	AllowedAudience string
	ClockSkew       time.Duration
}

const (
	claimsKey    = "zephyrrun.claims"
	requestIDKey = "zephyrrun.request_id"
	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
)

// JWTMiddleware rejects requests without a valid HS256 bearer token and stores the claims
// on the gin context.
func JWTMiddleware(cfg VerifyConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.ClockSkew),
	}
	if cfg.AllowedIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.AllowedIssuer))
	}
	if cfg.AllowedAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.AllowedAudience))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		if len(cfg.Secret) == 0 {
			abort(c, http.StatusInternalServerError, "jwt secret not configured")
			return
		}
		h := c.GetHeader("Authorization")
		if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
			abort(c, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		claims := jwt.MapClaims{}
		tok, err := parser.ParseWithClaims(strings.TrimSpace(h[len("Bearer "):]), claims, func(*jwt.Token) (interface{}, error) {
			return cfg.Secret, nil
		})
		if err != nil || !tok.Valid {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims, nil when the route is unauthenticated.
func ClaimsFrom(c *gin.Context) jwt.MapClaims {
	if v, ok := c.Get(claimsKey); ok {
		if m, ok := v.(jwt.MapClaims); ok {
			return m
		}
	}
	return nil
}

// requestID tags each request with an id, reusing the caller's when present.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
