package httpgin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/logging"
	"github.com/kirinyoku/gigbook/internal/service"
	"github.com/rs/zerolog"
)

const (
	ctxUserID  = "user_id"
	ctxProfile = "profile"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set("request_id", reqID)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), reqID))

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
			"Idempotency-Key",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		reqID, _ := c.Get("request_id")
		ev := logger.Info()
		if len(c.Errors) > 0 {
			ev = logger.Error().Str("errors", c.Errors.String())
		}

		ev.Int("status", c.Writer.Status()).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Str("ua", c.Request.UserAgent()).
			Interface("request_id", reqID).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Msg("http")
	}
}

// AuthMiddleware verifies an HS256 bearer token and stores its subject as
// the user id. Token issuance lives outside this service.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		var claims jwt.RegisteredClaims
		tok, err := jwt.ParseWithClaims(
			strings.TrimPrefix(auth, "Bearer "),
			&claims,
			func(*jwt.Token) (any, error) { return key, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid subject"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// ActiveProfileMiddleware resolves the caller's active profile. Every
// booking operation acts as that profile.
func ActiveProfileMiddleware(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svcs.Profiles.Active(c.Request.Context(), userID(c))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "no active profile"})
				return
			}
			respondErr(c, err)
			c.Abort()
			return
		}

		c.Set(ctxProfile, p)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func activeProfile(c *gin.Context) *domain.Profile {
	p, _ := c.Get(ctxProfile)
	profile, _ := p.(*domain.Profile)
	return profile
}
