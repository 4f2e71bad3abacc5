package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"investaccred/backend/internal/security"
)

// requestMeta stamps the caller's IP and user agent into the request
// context so audit-trail writes deep in service code can pick them up.
func requestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, ctxKeyIP, c.ClientIP())
		ctx = context.WithValue(ctx, ctxKeyUserAgent, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requestLogger logs one line per request with zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// authRequired validates the Bearer access token and stores the user and
// session ids in the request context. MFA continuation tokens carry no
// session id and are rejected here.
func authRequired(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		sessionID, userID, err := tokens.ValidateAccess(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeySessionID, sessionID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
