package httpgin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/gigbook/internal/repository/redis"
	"github.com/kirinyoku/gigbook/internal/service"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterConfig struct {
	// JWTSecret verifies HS256 bearer tokens.
	JWTSecret string
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger zerolog.Logger,
	cfg RouterConfig,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1", AuthMiddleware(cfg.JWTSecret))

	// Profiles are managed per user; everything else acts as the active profile.
	profiles := v1.Group("/profiles")
	{
		profiles.POST("", handleCreateProfile(svcs))
		profiles.GET("", handleListProfiles(svcs))
		profiles.GET("/active", handleGetActiveProfile(svcs))
		profiles.GET("/:id", handleGetProfile(svcs))
		profiles.POST("/:id/activate", handleActivateProfile(svcs))
		profiles.DELETE("/:id", handleDeleteProfile(svcs))
	}

	notifications := v1.Group("/notifications")
	{
		notifications.GET("", handleListNotifications(svcs))
		notifications.POST("/:id/read", handleMarkNotificationRead(svcs))
		notifications.GET("/stream", handleNotificationStream(svcs))
	}

	lineup := v1.Group("/lineup")
	{
		lineup.POST("/add", handleLineupAdd())
		lineup.POST("/remove", handleLineupRemove())
		lineup.POST("/reorder", handleLineupReorder())
	}

	acting := v1.Group("", ActiveProfileMiddleware(svcs))
	{
		acting.GET("/availability", handleGetAvailability(svcs))

		acting.POST("/calendar/events", handleCreateCalendarEvent(svcs))
		acting.GET("/calendar/events", handleListCalendarEvents(svcs))
		acting.DELETE("/calendar/events/:id", handleDeleteCalendarEvent(svcs))

		acting.POST("/booking-requests", handleCreateBookingRequest(svcs, idem))
		acting.GET("/booking-requests", handleListBookingRequests(svcs))
		acting.GET("/booking-requests/:id", handleGetBookingRequest(svcs))
		acting.PATCH("/booking-requests/:id", handleUpdateBookingStatus(svcs))

		acting.POST("/contract-proposals", handleCreateProposal(svcs, idem))
		acting.GET("/contract-proposals", handleListProposals(svcs))
		acting.GET("/contract-proposals/:id", handleGetProposal(svcs))
		acting.POST("/contract-proposals/:id/accept", handleAcceptProposal(svcs))
		acting.POST("/contract-proposals/:id/reject", handleRejectProposal(svcs))
		acting.POST("/contract-proposals/:id/negotiate", handleNegotiateProposal(svcs))
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseInt64Default(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
