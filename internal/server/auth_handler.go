package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authservice "investaccred/backend/internal/auth/service"
	"investaccred/backend/internal/mfa"
	preferencedomain "investaccred/backend/internal/preference/domain"
)

// AuthHandler exposes login, MFA, token, and session endpoints.
type AuthHandler struct {
	auth *authservice.AuthService
	log  *zap.Logger
}

// NewAuthHandler returns an AuthHandler backed by the auth service.
func NewAuthHandler(auth *authservice.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Successful   bool      `json:"successful"`
	Message      string    `json:"message,omitempty"`
	RequiresMFA  bool      `json:"requiresMfa"`
	MFAMethods   []string  `json:"mfaMethods,omitempty"`
	MFAToken     string    `json:"mfaToken,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
	UserID       string    `json:"userId,omitempty"`
}

func toLoginResponse(res *authservice.LoginResult) loginResponse {
	out := loginResponse{
		Successful:  res.Successful,
		Message:     res.Message,
		RequiresMFA: res.RequiresMFA,
		MFAMethods:  res.MFAMethods,
		MFAToken:    res.MFAToken,
		UserID:      res.UserID,
	}
	if res.Tokens != nil {
		out.AccessToken = res.Tokens.AccessToken
		out.RefreshToken = res.Tokens.RefreshToken
		out.ExpiresAt = res.Tokens.AccessExpiresAt
	}
	return out
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), authservice.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.internalError(c, err)
		return
	}
	if !res.Successful {
		c.JSON(http.StatusUnauthorized, toLoginResponse(res))
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(res))
}

type verifyMFARequest struct {
	MFAToken string `json:"mfaToken" binding:"required"`
	Method   string `json:"method" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// VerifyMFA handles POST /auth/mfa/verify.
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req verifyMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.auth.VerifyMFA(c.Request.Context(), authservice.VerifyMFAInput{
		Token:     req.MFAToken,
		Method:    req.Method,
		Code:      req.Code,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.internalError(c, err)
		return
	}
	if !res.Successful {
		c.JSON(http.StatusUnauthorized, toLoginResponse(res))
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(res))
}

type resendMFARequest struct {
	MFAToken string `json:"mfaToken" binding:"required"`
	Method   string `json:"method" binding:"required"`
}

// ResendMFA handles POST /auth/mfa/resend.
func (h *AuthHandler) ResendMFA(c *gin.Context) {
	var req resendMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.auth.ResendMFA(c.Request.Context(), req.MFAToken, req.Method)
	if err != nil {
		h.internalError(c, err)
		return
	}
	status := http.StatusOK
	if !res.Successful {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"successful": res.Successful, "message": res.Message})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidRefreshToken) || errors.Is(err, authservice.ErrRefreshTokenReuse) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
			return
		}
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresAt":    pair.AccessExpiresAt,
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type sessionResponse struct {
	ID             string     `json:"id"`
	IssuedAt       time.Time  `json:"issuedAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
	IPAddress      string     `json:"ipAddress"`
	UserAgent      string     `json:"userAgent"`
	IsActive       bool       `json:"isActive"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
	Current        bool       `json:"current"`
}

// ListSessions handles GET /sessions.
func (h *AuthHandler) ListSessions(c *gin.Context) {
	userID, _ := UserIDFromContext(c.Request.Context())
	currentID, _ := SessionIDFromContext(c.Request.Context())
	sessions, err := h.auth.ListSessions(c.Request.Context(), userID)
	if err != nil {
		h.internalError(c, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:             s.ID,
			IssuedAt:       s.IssuedAt,
			ExpiresAt:      s.ExpiresAt,
			LastActivityAt: s.LastActivityAt,
			IPAddress:      s.IPAddress,
			UserAgent:      s.UserAgent,
			IsActive:       s.IsActive,
			RevokedAt:      s.RevokedAt,
			Current:        s.ID == currentID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// RevokeSession handles DELETE /sessions/:id. Missing and foreign
// sessions get the same answer.
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	userID, _ := UserIDFromContext(c.Request.Context())
	err := h.auth.RevokeSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, authservice.ErrSessionNotFound) || errors.Is(err, authservice.ErrSessionNotOwned) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found or not permitted"})
			return
		}
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session revoked"})
}

// RevokeOtherSessions handles POST /sessions/revoke-others, keeping only
// the session bound to the presented access token.
func (h *AuthHandler) RevokeOtherSessions(c *gin.Context) {
	userID, _ := UserIDFromContext(c.Request.Context())
	sessionID, _ := SessionIDFromContext(c.Request.Context())
	if err := h.auth.RevokeAllExceptCurrent(c.Request.Context(), userID, sessionID); err != nil {
		if errors.Is(err, authservice.ErrSessionNotFound) || errors.Is(err, authservice.ErrSessionNotOwned) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found or not permitted"})
			return
		}
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "other sessions revoked"})
}

type enableTwoFactorRequest struct {
	Method string `json:"method" binding:"required"`
}

// EnableTwoFactor handles POST /auth/2fa/enable.
func (h *AuthHandler) EnableTwoFactor(c *gin.Context) {
	var req enableTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := UserIDFromContext(c.Request.Context())
	res, err := h.auth.EnableTwoFactor(c.Request.Context(), userID, preferencedomain.TwoFactorMethod(req.Method))
	if err != nil {
		h.mapTwoFactorError(c, err)
		return
	}
	status := http.StatusOK
	if !res.Successful {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"successful": res.Successful,
		"message":    res.Message,
		"secret":     res.Secret,
		"otpauthUrl": res.OTPAuthURL,
	})
}

type verifySetupRequest struct {
	Method string `json:"method" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// VerifyTwoFactorSetup handles POST /auth/2fa/verify-setup.
func (h *AuthHandler) VerifyTwoFactorSetup(c *gin.Context) {
	var req verifySetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := UserIDFromContext(c.Request.Context())
	res, err := h.auth.VerifyTwoFactorSetup(c.Request.Context(), userID, preferencedomain.TwoFactorMethod(req.Method), req.Code)
	if err != nil {
		h.mapTwoFactorError(c, err)
		return
	}
	status := http.StatusOK
	if !res.Successful {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"successful": res.Successful, "message": res.Message})
}

// DisableTwoFactor handles POST /auth/2fa/disable.
func (h *AuthHandler) DisableTwoFactor(c *gin.Context) {
	userID, _ := UserIDFromContext(c.Request.Context())
	if err := h.auth.DisableTwoFactor(c.Request.Context(), userID); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "two-factor authentication disabled"})
}

func (h *AuthHandler) mapTwoFactorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authservice.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, mfa.ErrUnknownMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown two-factor method"})
	default:
		h.internalError(c, err)
	}
}

func (h *AuthHandler) internalError(c *gin.Context, err error) {
	h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
