package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/request-code", handler.RequestCode)
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/logout", handler.Logout)
		authGroup.GET("/me", handler.RequireSession(), handler.Me)

		photos := v1.Group("/photos", handler.RequireSession())
		photos.GET("", handler.ListPhotos)
		photos.POST("", handler.CapturePhoto)
		photos.GET("/stats", handler.PhotoStats)
		photos.POST("/delete", handler.DeletePhotos)
		photos.DELETE("/:id", handler.DeletePhoto)
		photos.POST("/:id/uploaded", handler.MarkUploaded)

		syncGroup := v1.Group("/sync", handler.RequireSession())
		syncGroup.POST("/upload", handler.UploadPhotos)
		syncGroup.POST("/jobs", handler.EnqueueSync)
		syncGroup.GET("/jobs/:id", handler.GetSyncJob)
	}
}
