package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"matching-core/internal/engine"
	"matching-core/internal/projection"
	"matching-core/internal/symbolspec"
)

// RequestIDHeader carries the correlation ID of a request
const RequestIDHeader = "X-Request-ID"

// Router sets up HTTP routes for the API
type Router struct {
	handler *Handler
	engine  *gin.Engine
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(eng *engine.Engine, entries projection.EntryRepository, specs *symbolspec.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := NewHandler(eng, entries, specs, logger)

	router := &Router{
		handler: handler,
		engine:  gin.New(),
		logger:  logger,
	}
	router.engine.Use(gin.Recovery(), router.requestLogger())

	router.setupRoutes()
	return router
}

// setupRoutes configures all HTTP routes
func (r *Router) setupRoutes() {
	r.engine.GET("/healthz", r.handler.Health)

	books := r.engine.Group("/v1/books/:symbol")
	books.GET("", r.handler.GetBook)
	books.PUT("/trading-status", r.handler.SetTradingStatus)

	// Order endpoints
	books.POST("/orders", r.handler.PlaceOrder)
	books.DELETE("/orders/:client_order_id", r.handler.CancelOrder)

	// Quote endpoints
	books.POST("/quotes", r.handler.PlaceMassQuote)
	books.DELETE("/quotes", r.handler.CancelMassQuote)

	books.GET("/entries/:request_id", r.handler.GetEntries)
}

// requestLogger tags every request with a correlation ID and logs it
func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		r.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

// Handler returns the underlying HTTP handler
func (r *Router) Handler() http.Handler {
	return r.engine
}
