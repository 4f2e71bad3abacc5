package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	accrdomain "investaccred/backend/internal/accreditation/domain"
	accrservice "investaccred/backend/internal/accreditation/service"
)

// AccreditationHandler exposes investor accreditation endpoints.
type AccreditationHandler struct {
	accreditations *accrservice.Service
	log            *zap.Logger
}

// NewAccreditationHandler returns an AccreditationHandler backed by the engine.
func NewAccreditationHandler(accreditations *accrservice.Service, log *zap.Logger) *AccreditationHandler {
	return &AccreditationHandler{accreditations: accreditations, log: log}
}

type submitRequest struct {
	Classification             string     `json:"classification" binding:"required"`
	IncomeLevel                *int64     `json:"incomeLevel"`
	NetWorth                   *int64     `json:"netWorth"`
	YearsInvesting             int        `json:"yearsInvesting"`
	HasPriorPrivateInvestments bool       `json:"hasPriorPrivateInvestments"`
	InvestmentExperience       []string   `json:"investmentExperience"`
	DocumentIDs                []string   `json:"documentIds"`
	EntityName                 string     `json:"entityName"`
	EntityType                 string     `json:"entityType"`
	EntityRegistrationNumber   string     `json:"entityRegistrationNumber"`
	EntityRegistrationDate     *time.Time `json:"entityRegistrationDate"`
	CertificationMethod        string     `json:"certificationMethod"`
}

// Submit handles POST /accreditation.
func (h *AccreditationHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := UserIDFromContext(c.Request.Context())

	res, err := h.accreditations.Submit(c.Request.Context(), accrservice.SubmitInput{
		UserID:                     userID,
		Classification:             accrdomain.InvestorClassification(req.Classification),
		IncomeLevel:                toMoney(req.IncomeLevel),
		NetWorth:                   toMoney(req.NetWorth),
		YearsInvesting:             req.YearsInvesting,
		HasPriorPrivateInvestments: req.HasPriorPrivateInvestments,
		InvestmentExperience:       req.InvestmentExperience,
		DocumentIDs:                req.DocumentIDs,
		EntityName:                 req.EntityName,
		EntityType:                 req.EntityType,
		EntityRegistrationNumber:   req.EntityRegistrationNumber,
		EntityRegistrationDate:     req.EntityRegistrationDate,
		CertificationMethod:        req.CertificationMethod,
	})
	if err != nil {
		if errors.Is(err, accrservice.ErrInvalidClassification) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}
	status := http.StatusCreated
	if !res.Successful {
		// Business-rule conflict: an application is already open.
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{
		"successful":        res.Successful,
		"message":           res.Message,
		"accreditationId":   res.AccreditationID,
		"status":            res.Status,
		"classification":    res.Classification,
		"submittedAt":       res.SubmittedAt,
		"requiredDocuments": res.RequiredDocuments,
	})
}

// GetStatus handles GET /accreditation/status.
func (h *AccreditationHandler) GetStatus(c *gin.Context) {
	userID, _ := UserIDFromContext(c.Request.Context())
	view, err := h.accreditations.GetStatus(c.Request.Context(), userID)
	if err != nil {
		h.internalError(c, err)
		return
	}
	out := gin.H{
		"accreditationId":   view.AccreditationID,
		"status":            view.Status,
		"classification":    view.Classification,
		"submittedAt":       view.SubmittedAt,
		"expiresAt":         view.ExpiresAt,
		"reviewNotes":       view.ReviewNotes,
		"uploadedDocuments": view.UploadedDocuments,
		"requiredDocuments": view.RequiredDocuments,
		"missingDocuments":  view.MissingDocuments,
		"nextStep":          view.NextStep,
	}
	if view.InvestmentLimit != nil {
		out["investmentLimit"] = gin.H{
			"unbounded": view.InvestmentLimit.Unbounded,
			"amount":    view.InvestmentLimit.Amount,
		}
	}
	c.JSON(http.StatusOK, out)
}

// CanInvest handles GET /accreditation/can-invest?amount=N.
func (h *AccreditationHandler) CanInvest(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a non-negative integer"})
		return
	}
	userID, _ := UserIDFromContext(c.Request.Context())
	ok, err := h.accreditations.CanInvest(c.Request.Context(), userID, accrdomain.Money(amount))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canInvest": ok, "amount": amount})
}

type updateStatusRequest struct {
	NewStatus     string     `json:"newStatus" binding:"required"`
	ReviewNotes   string     `json:"reviewNotes"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	LimitOverride *int64     `json:"investmentLimitOverride"`
}

// UpdateStatus handles PUT /admin/accreditations/:id/status.
func (h *AccreditationHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	adminID, _ := UserIDFromContext(c.Request.Context())

	res, err := h.accreditations.UpdateStatus(c.Request.Context(), accrservice.UpdateStatusInput{
		AdminID:         adminID,
		AccreditationID: c.Param("id"),
		NewStatus:       accrdomain.Status(req.NewStatus),
		ReviewNotes:     req.ReviewNotes,
		ExpiresAt:       req.ExpiresAt,
		LimitOverride:   toMoney(req.LimitOverride),
	})
	if err != nil {
		switch {
		case errors.Is(err, accrservice.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, accrservice.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, accrservice.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			h.internalError(c, err)
		}
		return
	}
	out := gin.H{"successful": res.Successful, "message": res.Message}
	if res.Accreditation != nil {
		acc := res.Accreditation
		out["accreditation"] = gin.H{
			"id":             acc.ID,
			"userId":         acc.UserID,
			"classification": acc.InvestorClassification,
			"status":         acc.Status,
			"approvedAt":     acc.ApprovedAt,
			"approvedBy":     acc.ApprovedBy,
			"expiresAt":      acc.ExpiresAt,
			"reviewNotes":    acc.ReviewNotes,
		}
		if acc.InvestmentLimit != nil {
			out["accreditation"].(gin.H)["investmentLimit"] = gin.H{
				"unbounded": acc.InvestmentLimit.Unbounded,
				"amount":    acc.InvestmentLimit.Amount,
			}
		}
	}
	status := http.StatusOK
	if !res.Successful {
		status = http.StatusConflict
	}
	c.JSON(status, out)
}

func toMoney(v *int64) *accrdomain.Money {
	if v == nil {
		return nil
	}
	m := accrdomain.Money(*v)
	return &m
}

func (h *AccreditationHandler) internalError(c *gin.Context, err error) {
	h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
