package server

import (
	"net/http"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/techagentng/ireporter/models"
)

func (s *Server) setupRouter() *gin.Engine {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestLogger())
	r.Use(gin.Recovery())
	r.Use(metricsMiddleware())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := s.Config.AllowedOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = origins
	}
	r.Use(cors.New(corsConfig))

	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": http.StatusNotFound, "error": "route not found"})
	})
	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/uploads/*key", s.handleServeUpload())

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  s.Config.AuthRateWindow,
		Limit: s.Config.AuthRateLimit,
	})
	limitAuth := limitRate(store)

	apirouter := router.Group("/api/v1")
	apirouter.POST("/auth/signup", limitAuth, s.handleSignup())
	apirouter.POST("/auth/login", limitAuth, s.handleLogin())
	apirouter.POST("/auth/forgot-password", limitAuth, s.handleForgotPassword())
	apirouter.POST("/auth/reset-password/:token", limitAuth, s.handleResetPassword())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.GET("/auth/logout", s.handleLogout())
	authorized.GET("/auth/profile", s.handleShowProfile())
	authorized.PATCH("/auth/profile", s.handleEditUserProfile())
	authorized.POST("/auth/profile/picture", s.handleUploadProfilePicture())
	authorized.GET("/auth/users", s.RequireAdmin(), s.handleGetAllUsers())

	for _, kind := range models.Kinds {
		reports := authorized.Group("/" + kind.Collection())
		reports.GET("", s.handleListReports(kind))
		reports.POST("", s.handleCreateReport(kind))
		reports.GET("/:id", s.handleGetReport(kind))
		reports.PUT("/:id", s.handleUpdateReport(kind))
		reports.DELETE("/:id", s.handleDeleteReport(kind))
		reports.PATCH("/:id/location", s.handleUpdateLocation(kind))
		reports.PATCH("/:id/status", s.RequireAdmin(), s.handleUpdateStatus(kind))

		// comments and upvotes are addressed by both the singular and plural kind
		for _, prefix := range []string{string(kind), kind.Collection()} {
			g := authorized.Group("/" + prefix)
			g.GET("/:id/comments", s.handleGetComments(kind))
			g.POST("/:id/comments", s.handleAddComment(kind))
			g.GET("/:id/upvotes", s.handleGetUpvotes(kind))
			g.POST("/:id/upvotes", s.handleUpvote(kind))
			g.DELETE("/:id/upvotes", s.handleRemoveUpvote(kind))
			g.POST("/:id/toggle-upvote", s.handleToggleUpvote(kind))
		}
	}

	authorized.DELETE("/comments/:id", s.handleDeleteComment())
	authorized.GET("/notifications", s.handleGetNotifications())
	authorized.PUT("/notifications/read", s.handleMarkNotificationsRead())
	authorized.GET("/notifications/ws", s.handleNotificationSocket())
}
