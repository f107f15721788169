package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"valo-coach/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	chatLimiter service.RateLimiter,
	userH *UserHandler,
	profileH *ProfileHandler,
	chatH *ChatHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares básicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	auth := r.Group("/api/auth")
	auth.POST("/signup", userH.SignUp)
	auth.POST("/login", userH.Login)
	auth.POST("/refresh", userH.RefreshToken)
	auth.POST("/logout", userH.Logout)
	auth.GET("/confirm", userH.Confirm)
	auth.POST("/resend", userH.ResendConfirmation)

	authed := r.Group("/api/auth")
	authed.Use(JWTAuthMiddleware(jwtSvc))
	authed.GET("/me", userH.Me)
	authed.GET("/profile", profileH.GetProfile)
	authed.PUT("/profile", profileH.UpdateProfile)
	authed.PATCH("/profile", profileH.AutosaveProfile)

	chat := r.Group("/api")
	chat.Use(OptionalJWTAuthMiddleware(jwtSvc))
	chat.POST("/chat", rateLimitMiddleware(chatLimiter), chatH.Generate)
	chat.POST("/conversations", rateLimitMiddleware(chatLimiter), chatH.CreateConversation)
	chat.POST("/conversations/:id/messages", rateLimitMiddleware(chatLimiter), chatH.PostConversationMessage)
	chat.GET("/conversations/:id/messages", chatH.ListConversationMessages)

	history := r.Group("/api/sessions")
	history.Use(JWTAuthMiddleware(jwtSvc))
	history.GET("", chatH.ListSessions)
	history.GET("/:id/messages", chatH.ListSessionMessages)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// rateLimitMiddleware limita generaciones por IP cliente.
func rateLimitMiddleware(limiter service.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
