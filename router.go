package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/controllers"
	"github.com/kendall-kelly/powder-coating-api/logger"
	"github.com/kendall-kelly/powder-coating-api/middleware"
)

// setupRouter builds the HTTP API. auth guards every route except the public ones;
// AUTH0_REQUIRED_SCOPE, when set, must also be granted to the token.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinLogger())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowsAnyOrigin(origins),
	}))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.GET("/files/types", controllers.AllowedFileTypes)
	}

	guards := []gin.HandlerFunc{auth}
	if cfg.Auth0RequiredScope != "" {
		guards = append(guards, middleware.RequireScope(cfg.Auth0RequiredScope))
	}

	api := v1.Group("", guards...)
	{
		api.POST("/users", controllers.CreateUser)
		api.GET("/users/me", controllers.GetMyProfile)
		api.PUT("/users/me", controllers.UpdateMyProfile)

		api.POST("/orders", controllers.CreateOrder)
		api.GET("/orders", controllers.ListOrders)
		api.GET("/orders/:id", controllers.GetOrder)
		api.PUT("/orders/:id", controllers.UpdateOrder)
		api.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
		api.GET("/orders/:id/history", controllers.GetOrderHistory)
		api.POST("/orders/:id/files", controllers.UploadOrderFile)
		api.GET("/orders/:id/quotes", controllers.ListQuotes)
		api.POST("/orders/:id/quotes", controllers.CreateQuote)
		api.POST("/orders/:id/quotes/accept", controllers.AcceptQuote)
		api.POST("/orders/:id/quotes/reject", controllers.RejectQuote)
		api.PUT("/orders/:id/assignments", controllers.SetOrderAssignments)

		api.GET("/team/assignments", controllers.ListMyAssignments)
		api.POST("/team-members", controllers.CreateTeamMember)
		api.GET("/team-members", controllers.ListTeamMembers)
		api.PATCH("/team-members/:id/availability", controllers.UpdateTeamMemberAvailability)

		api.GET("/notifications", controllers.ListNotifications)
		api.PATCH("/notifications/:id/read", controllers.MarkNotificationRead)

		api.GET("/changes", controllers.StreamChanges)
	}

	return router
}

// browsers refuse credentialed responses for a wildcard origin
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Powder Coating API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database is not connected",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
