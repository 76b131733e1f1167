// Package transport предоставляет REST и WebSocket интерфейсы приложения.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akrylov/sagalab/orders"
	"github.com/akrylov/sagalab/saga"
	"github.com/akrylov/sagalab/simulators"
	"github.com/akrylov/sagalab/store"
)

// RESTConfig конфигурация REST сервера
type RESTConfig struct {
	Port          int
	BasePath      string
	EnableMetrics bool
}

// DefaultRESTConfig возвращает конфигурацию REST по умолчанию
func DefaultRESTConfig() RESTConfig {
	return RESTConfig{
		Port:          8080,
		BasePath:      "/concepts/saga",
		EnableMetrics: true,
	}
}

// Server HTTP сервер демонстрации saga pattern
type Server struct {
	config        RESTConfig
	router        *gin.Engine
	orchestration *orders.OrchestrationService
	choreography  *orders.ChoreographyService
	registry      store.Store
	inventory     *simulators.Inventory
	feed          *EventFeed
	logger        *slog.Logger
	routesReady   bool
	running       bool
	server        *http.Server
}

// NewServer создает новый HTTP сервер
func NewServer(
	config RESTConfig,
	orchestration *orders.OrchestrationService,
	choreography *orders.ChoreographyService,
	registry store.Store,
	inventory *simulators.Inventory,
) *Server {
	return &Server{
		config:        config,
		router:        gin.Default(),
		orchestration: orchestration,
		choreography:  choreography,
		registry:      registry,
		inventory:     inventory,
		logger:        slog.Default(),
	}
}

// WithLogger устанавливает логгер
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.logger = logger
	return s
}

// WithEventFeed подключает WebSocket трансляцию событий
func (s *Server) WithEventFeed(feed *EventFeed) *Server {
	s.feed = feed
	return s
}

// WithMiddleware добавляет middleware к роутеру
func (s *Server) WithMiddleware(middleware ...gin.HandlerFunc) *Server {
	s.router.Use(middleware...)
	return s
}

// Router возвращает настроенный роутер
func (s *Server) Router() *gin.Engine {
	s.registerRoutes()
	return s.router
}

func (s *Server) registerRoutes() {
	if s.routesReady {
		return
	}
	s.routesReady = true

	s.router.GET("/healthz", s.handleHealth)
	if s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	group := s.router.Group(s.config.BasePath)
	group.POST("/orders/orchestration", s.handleOrchestration)
	group.POST("/orders/choreography", s.handleChoreography)
	group.GET("/status/:sagaId", s.handleStatus)
	group.GET("/sagas", s.handleListSagas)
	group.GET("/inventory", s.handleInventory)
	if s.feed != nil {
		group.GET("/events/ws", s.feed.Handler)
	}
}

// Start запускает сервер (реализация Lifecycle)
func (s *Server) Start(ctx context.Context) error {
	s.registerRoutes()
	s.running = true

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()

	s.logger.Info("http server started", "port", s.config.Port)
	return nil
}

// Stop останавливает сервер (реализация Lifecycle)
func (s *Server) Stop(ctx context.Context) error {
	s.running = false
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// IsRunning проверяет, запущен ли сервер
func (s *Server) IsRunning() bool {
	return s.running
}

type createOrderRequest struct {
	UserID string            `json:"userId" binding:"required"`
	Items  []simulators.Item `json:"items" binding:"required,min=1,dive"`
}

type sagaResponse struct {
	Success        bool     `json:"success"`
	SagaID         string   `json:"sagaId"`
	Status         string   `json:"status"`
	CompletedSteps []string `json:"completedSteps"`
	FailedStep     string   `json:"failedStep,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func newSagaResponse(result *saga.Result) sagaResponse {
	response := sagaResponse{
		Success:        result.Success(),
		SagaID:         result.SagaID,
		Status:         string(result.Status),
		CompletedSteps: result.CompletedSteps,
		FailedStep:     result.FailedStep,
	}
	if result.Err != nil {
		response.Error = result.Err.Error()
	}
	return response
}

// handleOrchestration выполняет оркестрируемую сагу синхронно.
// Бизнес-сбой саги - это не ошибка HTTP: ответ всегда 201 с описанием
// исхода в теле.
func (s *Server) handleOrchestration(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := orders.NewOrder(req.UserID, req.Items)
	result, err := s.orchestration.ExecuteSaga(c.Request.Context(), order)
	if err != nil {
		s.logger.Error("orchestration failed", "order_id", order.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
		"saga":  newSagaResponse(result),
	})
}

// handleChoreography запускает хореографическую сагу fire-and-forget
func (s *Server) handleChoreography(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := orders.NewOrder(req.UserID, req.Items)
	sagaID, err := s.choreography.StartSaga(c.Request.Context(), order)
	if err != nil {
		s.logger.Error("failed to start choreography saga", "order_id", order.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":   order,
		"sagaId":  sagaID,
		"message": "saga started, track progress via GET " + s.config.BasePath + "/status/" + sagaID,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	record, err := s.registry.Get(c.Request.Context(), c.Param("sagaId"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "saga not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to get saga record", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleListSagas(c *gin.Context) {
	records, err := s.registry.List(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list saga records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleInventory(c *gin.Context) {
	c.JSON(http.StatusOK, s.inventory.Snapshot())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
