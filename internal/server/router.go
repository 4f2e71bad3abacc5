// Package server is the HTTP boundary: route registration, bearer-token
// authentication, and request/response mapping. No business logic lives
// here.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"investaccred/backend/internal/security"
)

// HealthChecker verifies one dependency is serviceable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps collects everything the router needs.
type Deps struct {
	Auth          *AuthHandler
	Account       *AccountHandler
	Accreditation *AccreditationHandler
	Tokens        *security.TokenProvider
	DB            *sqlx.DB
	Authz         HealthChecker
	Log           *zap.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log), requestMeta())

	r.GET("/healthz", healthHandler(d.DB, d.Authz))

	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", d.Account.Register)
		api.POST("/auth/verify-email", d.Account.VerifyEmail)
		api.POST("/auth/resend-verification", d.Account.ResendVerification)
		api.POST("/auth/forgot-password", d.Account.ForgotPassword)
		api.POST("/auth/reset-password", d.Account.ResetPassword)

		api.POST("/auth/login", d.Auth.Login)
		api.POST("/auth/mfa/verify", d.Auth.VerifyMFA)
		api.POST("/auth/mfa/resend", d.Auth.ResendMFA)
		api.POST("/auth/refresh", d.Auth.Refresh)
		api.POST("/auth/logout", d.Auth.Logout)
	}

	authed := r.Group("/api/v1")
	authed.Use(authRequired(d.Tokens))
	{
		authed.GET("/sessions", d.Auth.ListSessions)
		authed.DELETE("/sessions/:id", d.Auth.RevokeSession)
		authed.POST("/sessions/revoke-others", d.Auth.RevokeOtherSessions)

		authed.POST("/auth/2fa/enable", d.Auth.EnableTwoFactor)
		authed.POST("/auth/2fa/verify-setup", d.Auth.VerifyTwoFactorSetup)
		authed.POST("/auth/2fa/disable", d.Auth.DisableTwoFactor)

		authed.POST("/accreditation", d.Accreditation.Submit)
		authed.GET("/accreditation/status", d.Accreditation.GetStatus)
		authed.GET("/accreditation/can-invest", d.Accreditation.CanInvest)

		authed.PUT("/admin/accreditations/:id/status", d.Accreditation.UpdateStatus)
	}

	return r
}

// healthHandler reports readiness: database reachable, policy engine
// evaluating.
func healthHandler(db *sqlx.DB, authz HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		if authz != nil {
			if err := authz.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "authz": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
