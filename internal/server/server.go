package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"galleryupload/internal/config"
	"galleryupload/internal/handler"
	"galleryupload/internal/session"
)

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func NewRouter(sess *session.Session, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := handler.NewHandler(sess, log)

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/token", h.GetToken)
		api.PUT("/token", h.SetToken)
		api.POST("/pick", h.PickImages)
		api.GET("/images", h.ListImages)
		api.POST("/upload", h.UploadImages)
		api.GET("/progress", h.GetProgress)
		api.GET("/logs", h.ListLogs)
		api.DELETE("/logs", h.ClearLogs)
		api.POST("/logs/:index/toggle", h.ToggleLog)
	}

	return router
}

func New(cfg *config.Config, sess *session.Session, log *zap.Logger) *Server {
	server := &Server{
		httpServer: &http.Server{
			Addr:        cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:     NewRouter(sess, log),
			ReadTimeout: 10 * time.Second,
			// an upload run holds the request open for every image and retry
			WriteTimeout:   0,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
		cfg: cfg,
		log: log,
	}

	log.Info("Server created successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port))

	return server
}

func (s *Server) Run() error {
	s.log.Info("Server is running",
		zap.String("address", s.httpServer.Addr),
		zap.String("endpoint", s.cfg.Upload.Endpoint))

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
