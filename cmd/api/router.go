package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"physlib-backend/internal/shared/middleware"
	"physlib-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupAuthRoutes(v1, c)
		setupBookRoutes(v1, c)
		setupUploadRoutes(v1, c)
		setupCategoryRoutes(v1, c)
		setupBorrowRoutes(v1, c)
		setupFavoriteRoutes(v1, c)
		setupDonationRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": c.Config.App.Version,
		})
	}
}

func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.UserHandler.Register)
		auth.POST("/login", c.UserHandler.Login)
		auth.POST("/setup", c.UserHandler.CompleteSetup)
	}

	v1.GET("/me", middleware.AuthMiddleware(c.JWTManager), c.UserHandler.Me)
}

func setupBookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	books := v1.Group("/books")
	{
		books.GET("", c.BookHandler.ListBooks)
		books.GET("/popular", c.BookHandler.ListPopular)
		books.GET("/slug/:slug", c.BookHandler.GetBookBySlug)
		books.GET("/:id", c.BookHandler.GetBook)
	}

	staff := v1.Group("/books", middleware.AuthMiddleware(c.JWTManager), middleware.StaffMiddleware())
	{
		staff.POST("", c.BookHandler.CreateBook)
		staff.POST("/:id/save", c.BookHandler.SaveBook)
		staff.DELETE("/:id", c.BookHandler.DeleteBook)
		staff.PUT("/:id/images/:imageId/cover", c.BookHandler.SetCover)
		staff.PUT("/:id/images/:imageId/alt-text", c.BookHandler.UpdateImageAltText)
		staff.DELETE("/:id/images/:imageId", c.BookHandler.DeleteImage)
	}
}

func setupUploadRoutes(v1 *gin.RouterGroup, c *container.Container) {
	authed := middleware.AuthMiddleware(c.JWTManager)
	staff := middleware.StaffMiddleware()

	v1.POST("/books/:id/upload-sessions", authed, staff, c.UploadHandler.OpenSession)

	sessions := v1.Group("/upload-sessions", authed, staff)
	{
		sessions.GET("/:sessionId", c.UploadHandler.GetSession)
		sessions.POST("/:sessionId/files", c.UploadHandler.AcceptFiles)
		sessions.POST("/:sessionId/images/:imageId/cancel", c.UploadHandler.CancelUpload)
		sessions.DELETE("/:sessionId/images/:imageId", c.UploadHandler.RemoveImage)
		sessions.PUT("/:sessionId/images/:imageId/cover", c.UploadHandler.SetCover)
		sessions.DELETE("/:sessionId", c.UploadHandler.CloseSession)
	}
}

func setupCategoryRoutes(v1 *gin.RouterGroup, c *container.Container) {
	v1.GET("/categories", c.CategoryHandler.List)

	staff := v1.Group("/categories", middleware.AuthMiddleware(c.JWTManager), middleware.StaffMiddleware())
	{
		staff.POST("", c.CategoryHandler.Create)
		staff.PUT("/:id", c.CategoryHandler.Update)
		staff.DELETE("/:id", c.CategoryHandler.Delete)
	}
}

func setupBorrowRoutes(v1 *gin.RouterGroup, c *container.Container) {
	authed := v1.Group("/borrow-requests", middleware.AuthMiddleware(c.JWTManager))
	{
		authed.POST("", c.BorrowHandler.Create)
		authed.GET("/mine", c.BorrowHandler.ListMine)
	}
}

func setupFavoriteRoutes(v1 *gin.RouterGroup, c *container.Container) {
	authed := middleware.AuthMiddleware(c.JWTManager)

	v1.GET("/favorites", authed, c.FavoriteHandler.ListMine)
	v1.GET("/books/:id/heart", authed, c.FavoriteHandler.Status)
	v1.PUT("/books/:id/heart", authed, c.FavoriteHandler.Heart)
	v1.DELETE("/books/:id/heart", authed, c.FavoriteHandler.Unheart)
}

func setupDonationRoutes(v1 *gin.RouterGroup, c *container.Container) {
	v1.GET("/donors", c.DonationHandler.TopDonors)
	v1.GET("/donations/mine", middleware.AuthMiddleware(c.JWTManager), c.DonationHandler.ListMine)
}

func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	staff := v1.Group("/admin", middleware.AuthMiddleware(c.JWTManager), middleware.StaffMiddleware())
	{
		staff.GET("/borrow-requests", c.BorrowHandler.ListByStatus)
		staff.POST("/borrow-requests/:id/approve", c.BorrowHandler.Approve)
		staff.POST("/borrow-requests/:id/reject", c.BorrowHandler.Reject)
		staff.POST("/borrow-requests/:id/return", c.BorrowHandler.Return)
		staff.POST("/donations", c.DonationHandler.Record)
		staff.GET("/stats", c.StatsHandler.Overview)
		staff.GET("/books/export", c.BookHandler.ExportCatalog)
	}

	admin := v1.Group("/admin", middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		admin.POST("/users/invite", c.UserHandler.Invite)
		admin.GET("/users", c.UserHandler.List)
		admin.PUT("/users/:id/role", c.UserHandler.UpdateRole)
	}
}
