package api

import (
	"net/http"

	"ccce-notify/internal/notification/delivery"
	"ccce-notify/internal/notification/usecase"
	"ccce-notify/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, notificationUsecase usecase.NotificationUsecase, cfg *config.Config) {
	notificationHandler := delivery.NewNotificationHandler(notificationUsecase)
	auth := delivery.AuthMiddleware(delivery.NewTokenValidator(cfg.JWTSecret))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(auth)
		{
			fcm.POST("/register", notificationHandler.RegisterFCMToken)
		}

		notifications := api.Group("/notifications")
		notifications.Use(auth)
		{
			notifications.POST("/test", notificationHandler.SendTestNotification)
			notifications.POST("/broadcast", delivery.RequireAdmin(), notificationHandler.CreateBroadcast)
			notifications.POST("/sweep", delivery.RequireAdmin(), notificationHandler.ProcessDue)
			notifications.POST("/:id/dispatch", delivery.RequireAdmin(), notificationHandler.DispatchNotification)
		}

		// Operator trigger for events created outside the Pub/Sub pipeline
		events := api.Group("/events")
		events.Use(auth, delivery.RequireAdmin())
		{
			events.POST("/:id/reminder", notificationHandler.ScheduleEventReminder)
		}
	}
}
