// Package api exposes the print endpoint over HTTP and job events over WebSocket
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/metrics"
	"github.com/storekit/thermalprint/internal/preview"
	"github.com/storekit/thermalprint/internal/printer"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// MessagePrinted is returned when a print request succeeds
const MessagePrinted = "Order printed successfully"

// DeviceLister enumerates printers attached to the host
type DeviceLister func(ctx context.Context) ([]printer.Device, error)

// Options wires the server's collaborators. Service is required.
type Options struct {
	Service      *printer.Service
	Devices      DeviceLister
	SerialPorts  func() ([]printer.Device, error)
	Preview      *preview.Renderer
	Metrics      *metrics.Metrics
	AllowOrigins []string
	Logger       *zap.Logger
}

// Server is the HTTP API server
type Server struct {
	service     *printer.Service
	devices     DeviceLister
	serialPorts func() ([]printer.Device, error)
	preview     *preview.Renderer
	metrics     *metrics.Metrics
	logger      *zap.Logger

	hub      *Hub
	router   *gin.Engine
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer creates an API server and subscribes its hub to job changes
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	serialPorts := opts.SerialPorts
	if serialPorts == nil {
		serialPorts = printer.ListSerialPorts
	}

	s := &Server{
		service:     opts.Service,
		devices:     opts.Devices,
		serialPorts: serialPorts,
		preview:     opts.Preview,
		metrics:     opts.Metrics,
		logger:      logger.Named("api"),
		hub:         NewHub(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.Use(cors.New(corsConfig(opts.AllowOrigins)))
	s.router = router
	s.setupRoutes()

	s.service.Jobs().OnChange(s.hub.BroadcastJob)
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	return cfg
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.POST("/print", s.handlePrint)
	api.POST("/preview", s.handlePreview)
	api.GET("/jobs", s.handleGetJobs)
	api.GET("/jobs/:id", s.handleGetJob)
	api.DELETE("/jobs", s.handleClearJobs)
	api.GET("/printers", s.handleGetPrinters)
	api.GET("/printers/serial", s.handleGetSerialPorts)

	s.router.GET("/ws", s.handleWebSocket)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves on addr until Shutdown is called
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes WebSocket clients
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// printOutcome maps a print error to the HTTP status and operator message
func printOutcome(err error) (int, string) {
	if err == nil {
		return http.StatusOK, MessagePrinted
	}
	var f *printer.Failure
	if errors.As(err, &f) {
		return f.StatusCode(), f.Message()
	}
	if errors.Is(err, printer.ErrInvalidRequest) {
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "Failed to print receipt."
}

func (s *Server) handlePrint(c *gin.Context) {
	var req receipt.PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, receipt.PrintResponse{Message: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	_, err := s.service.Print(c.Request.Context(), &req)
	status, message := printOutcome(err)
	c.JSON(status, receipt.PrintResponse{Message: message})
}

func (s *Server) handlePreview(c *gin.Context) {
	if s.preview == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "preview is not enabled"})
		return
	}

	var order receipt.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if err := receipt.ValidateOrder(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "image/png")
	if err := s.preview.WritePNG(c.Writer, order.Data()); err != nil {
		s.logger.Error("preview failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}

func (s *Server) handleGetJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.service.Jobs().All()})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job := s.service.Jobs().Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleClearJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": s.service.Jobs().ClearFinished()})
}

func (s *Server) handleGetPrinters(c *gin.Context) {
	if s.devices == nil {
		c.JSON(http.StatusOK, gin.H{"printers": []printer.Device{}})
		return
	}
	devices, err := s.devices(c.Request.Context())
	if err != nil {
		s.logger.Warn("device enumeration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"printers": nonNil(devices)})
}

func (s *Server) handleGetSerialPorts(c *gin.Context) {
	ports, err := s.serialPorts()
	if err != nil {
		s.logger.Warn("serial enumeration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ports": nonNil(ports)})
}

func nonNil(devices []printer.Device) []printer.Device {
	if devices == nil {
		return []printer.Device{}
	}
	return devices
}
