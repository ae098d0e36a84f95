package api

import (
	"net/http"
	"time"

	"ccce-notify/internal/notification/usecase"
	"ccce-notify/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	notificationUsecase usecase.NotificationUsecase
	config              *config.Config
}

func NewHandler(notificationUsecase usecase.NotificationUsecase, cfg *config.Config) *Handler {
	return &Handler{
		notificationUsecase: notificationUsecase,
		config:              cfg,
	}
}

// Router builds the Gin engine with middleware and routes
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), corsMiddleware())

	SetupRoutes(r, h.notificationUsecase, h.config)
	return r
}

// Server returns an http.Server for addr; the caller owns ListenAndServe and Shutdown
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
