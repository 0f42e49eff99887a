package transport

import (
	"context"
	"net/http"
	"time"

	"go-meal-analyzer/internal/config"
	apperrors "go-meal-analyzer/internal/errors"
	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/internal/observer"
	"go-meal-analyzer/internal/service"
	"go-meal-analyzer/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const firstMessageTimeout = 30 * time.Second

// streamFrame is a server-to-client websocket message besides events.
type streamFrame struct {
	Type     string                       `json:"type"`
	Response *models.MealAnalysisResponse `json:"response,omitempty"`
	Error    *models.ErrorResponse        `json:"error,omitempty"`
}

// streamMealAnalysis accepts one analysis request over a websocket, streams
// the pipeline events of that request and finishes with the response.
func streamMealAnalysis(svc service.MealAnalysisService, cfg *config.Config) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader already wrote the HTTP error
			logger.FromContext(c.Request.Context()).WithError(err).Warn("Websocket upgrade failed")
			c.Abort()
			return
		}
		defer conn.Close()

		conn.SetReadLimit(cfg.MaxRequestBodySize)
		conn.SetReadDeadline(time.Now().Add(firstMessageTimeout))

		stream := observer.NewStreamObserver(conn)
		correlationID := logger.RequestID(c.Request.Context())

		var req models.MealAnalysisRequest
		if err := conn.ReadJSON(&req); err != nil {
			stream.WriteJSON(errorFrame(apperrors.NewValidationError("invalid request format", err), correlationID))
			return
		}
		if err := checkSubject(c, req.UserID); err != nil {
			stream.WriteJSON(errorFrame(err, correlationID))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()
		ctx = observer.WithRequestObserver(ctx, stream)

		resp, err := svc.Analyze(ctx, req)
		if err != nil {
			stream.WriteJSON(errorFrame(err, correlationID))
			return
		}
		if err := stream.WriteJSON(streamFrame{Type: "result", Response: resp}); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to write websocket result")
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
}

func errorFrame(err error, correlationID string) streamFrame {
	_, body := errorBody(err, correlationID)
	return streamFrame{Type: "error", Error: &body}
}

// originChecker allows same-host requests and the configured CORS origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[origin] {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
