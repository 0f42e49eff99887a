package transport

import (
	"net/http"
	"strings"
	"time"

	apperrors "go-meal-analyzer/internal/errors"
	"go-meal-analyzer/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	subjectKey      = "auth_subject"
	maxRequestIDLen = 64
)

// requestID reuses a sane inbound X-Request-ID or mints one, and threads it
// through the request context for logging.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLen || strings.ContainsAny(id, " \t\r\n") {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// recovery turns a panic into a 500 failed body with the correlation id.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
					"panic": r,
					"path":  c.Request.URL.Path,
				}).Error("Recovered from panic")

				code, body := errorBody(apperrors.NewInternalError("panic", nil), logger.RequestID(c.Request.Context()))
				c.AbortWithStatusJSON(code, body)
			}
		}()
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}).Info("Request handled")
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

// authenticate requires an HS256 bearer token with a subject. Browsers
// cannot set headers on a websocket upgrade, so upgrades may pass the token
// as access_token instead.
func authenticate(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	return func(c *gin.Context) {
		raw := bearerToken(c.Request)
		if raw == "" {
			respondError(c, apperrors.NewUnauthorizedError("missing bearer token", nil))
			return
		}

		token, err := parser.Parse(raw, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			respondError(c, apperrors.NewUnauthorizedError("invalid bearer token", err))
			return
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			respondError(c, apperrors.NewUnauthorizedError("token has no subject", err))
			return
		}

		c.Set(subjectKey, sub)
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// checkSubject rejects requests whose user_id differs from the token
// subject. Without auth there is nothing to compare.
func checkSubject(c *gin.Context, userID string) error {
	sub := c.GetString(subjectKey)
	if sub == "" || userID == "" {
		return nil
	}
	if sub != userID {
		return apperrors.NewForbiddenError("user_id does not match token subject", nil)
	}
	return nil
}
