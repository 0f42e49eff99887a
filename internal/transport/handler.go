package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-meal-analyzer/internal/config"
	apperrors "go-meal-analyzer/internal/errors"
	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/internal/observer"
	"go-meal-analyzer/internal/service"
	"go-meal-analyzer/pkg/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewHandler builds the HTTP API. metrics may be nil.
func NewHandler(svc service.MealAnalysisService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		requestID(),
		recovery(),
		requestLogger(),
	)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	}
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)

	v1 := r.Group("/v1")
	if cfg.AuthEnabled() {
		v1.Use(authenticate([]byte(cfg.JWTSecret)))
	}
	v1.POST("/meal-analysis", analyzeMeal(svc, cfg))
	v1.GET("/meal-analysis/ws", streamMealAnalysis(svc, cfg))
	v1.GET("/stats", stats(metrics))
	v1.POST("/admin/cache/clean", cleanCache(svc))

	return r
}

func analyzeMeal(svc service.MealAnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.MealAnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindError(err))
			return
		}
		if err := checkSubject(c, req.UserID); err != nil {
			respondError(c, err)
			return
		}

		resp, err := svc.Analyze(ctx, req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
				err = apperrors.NewTimeoutError("meal analysis timed out", err)
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func stats(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.JSON(http.StatusOK, observer.Stats{})
			return
		}
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func cleanCache(svc service.MealAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := svc.CleanCache(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// bindError maps a JSON binding failure to an AppError.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewPayloadTooLargeError("request body too large", err)
	}
	return apperrors.NewValidationError("invalid request format", err)
}

// statusClientClosedRequest is the nginx convention for a client that went
// away before the response was ready.
const statusClientClosedRequest = 499

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the client-facing error. Internal failures carry the
// failed status and correlation id but never the underlying error text.
func errorBody(err error, correlationID string) (int, models.ErrorResponse) {
	code := determineStatusCode(err)
	body := models.ErrorResponse{
		Error:         http.StatusText(code),
		CorrelationID: correlationID,
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Type != apperrors.ErrorTypeInternal {
		body.Reason = appErr.Reason
		body.Message = appErr.Message
		return code, body
	}
	if code == statusClientClosedRequest {
		body.Error = "Client Closed Request"
		body.Reason = apperrors.ReasonRequestCanceled
		return code, body
	}
	if code >= http.StatusInternalServerError {
		body.Status = models.StatusFailed
		body.Items = &[]models.AnalyzedItem{}
		body.Reason = apperrors.ReasonInternal
		body.Message = "meal analysis failed"
	}
	return code, body
}

func respondError(c *gin.Context, err error) {
	code, body := errorBody(err, logger.RequestID(c.Request.Context()))

	entry := logger.FromContext(c.Request.Context()).WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"reason":      body.Reason,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, body)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
