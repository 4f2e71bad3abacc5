package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"investaccred/backend/internal/accreditation/domain"
	activitydomain "investaccred/backend/internal/activity/domain"
	documentdomain "investaccred/backend/internal/document/domain"
	userdomain "investaccred/backend/internal/user/domain"
)

// Sentinel errors for the accreditation service; the handler maps them
// to HTTP statuses.
var (
	ErrInvalidClassification = errors.New("unknown investor classification")
	ErrInvalidStatus         = errors.New("unknown accreditation status")
	ErrNotAuthorized         = errors.New("not authorized to review accreditations")
	ErrNotFound              = errors.New("accreditation not found")
)

// defaultValidity is how long an approval lasts when the reviewer does
// not pick an explicit expiry.
const defaultValidity = 365 * 24 * time.Hour

// AccreditationRepo is the minimal accreditation repository needed by the service.
type AccreditationRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Accreditation, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Accreditation, error)
	Create(ctx context.Context, a *domain.Accreditation) error
	Update(ctx context.Context, a *domain.Accreditation) error
}

// DocumentRepo is the minimal document repository needed by the service.
type DocumentRepo interface {
	GetByID(ctx context.Context, id string) (*documentdomain.Document, error)
	GetByUserID(ctx context.Context, userID string) ([]*documentdomain.Document, error)
	Update(ctx context.Context, d *documentdomain.Document) error
}

// UserRepo is the minimal user repository needed by the service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Notifier sends accreditation lifecycle emails.
type Notifier interface {
	SendAccreditationSubmitted(ctx context.Context, emailAddr, name, classification string) error
	SendAccreditationApproved(ctx context.Context, emailAddr, name string, expiresAt time.Time) error
	SendAccreditationRejected(ctx context.Context, emailAddr, name, reviewNotes string) error
}

// Recorder appends audit-trail entries.
type Recorder interface {
	Record(ctx context.Context, userID string, typ activitydomain.Type, status activitydomain.Status, details, failureReason string)
}

// Authorizer decides whether a user may perform a privileged action.
type Authorizer interface {
	Authorize(ctx context.Context, userID, action string) (bool, error)
}

// ActionReviewAccreditation is the privileged action gate for status updates.
const ActionReviewAccreditation = "accreditation:review"

// Service drives the accreditation application lifecycle.
type Service struct {
	accreditations AccreditationRepo
	documents      DocumentRepo
	users          UserRepo
	notifier       Notifier
	activity       Recorder
	authz          Authorizer
	log            *zap.Logger
}

// NewService returns a Service with the given dependencies.
func NewService(
	accreditations AccreditationRepo,
	documents DocumentRepo,
	users UserRepo,
	notifier Notifier,
	activity Recorder,
	authz Authorizer,
	log *zap.Logger,
) *Service {
	return &Service{
		accreditations: accreditations,
		documents:      documents,
		users:          users,
		notifier:       notifier,
		activity:       activity,
		authz:          authz,
		log:            log,
	}
}

// SubmitInput carries an investor's application.
type SubmitInput struct {
	UserID                     string
	Classification             domain.InvestorClassification
	IncomeLevel                *domain.Money
	NetWorth                   *domain.Money
	YearsInvesting             int
	HasPriorPrivateInvestments bool
	InvestmentExperience       []string
	DocumentIDs                []string
	EntityName                 string
	EntityType                 string
	EntityRegistrationNumber   string
	EntityRegistrationDate     *time.Time
	CertificationMethod        string
}

// SubmitResult is the outcome of a submission attempt. Successful is
// false for guard rejections (already-open application, bad input);
// Message explains either way.
type SubmitResult struct {
	Successful        bool
	Message           string
	AccreditationID   string
	Status            domain.Status
	Classification    domain.InvestorClassification
	SubmittedAt       time.Time
	RequiredDocuments []documentdomain.Type
}

// Submit files a new application, or refiles a rejected one in place.
// An open application in any other status blocks submission without
// mutating anything.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if !in.Classification.Valid() {
		return nil, ErrInvalidClassification
	}

	existing, err := s.accreditations.GetByUserID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var acc *domain.Accreditation

	switch {
	case existing == nil:
		if _, err := domain.Apply(domain.StatusNotStarted, domain.EventSubmit); err != nil {
			return nil, err
		}
		acc = &domain.Accreditation{
			ID:        uuid.New().String(),
			UserID:    in.UserID,
			Status:    domain.StatusPending,
			Version:   1,
			CreatedAt: now,
		}
		applyInput(acc, in, now)
		if err := s.accreditations.Create(ctx, acc); err != nil {
			return nil, err
		}
	case existing.Status == domain.StatusRejected:
		t, err := domain.Apply(existing.Status, domain.EventResubmit)
		if err != nil {
			return nil, err
		}
		acc = existing
		acc.Status = t.Next
		if t.ResetReviewArtifacts {
			acc.ReviewNotes = ""
			acc.ApprovedAt = nil
			acc.ApprovedBy = ""
			acc.ExpiresAt = nil
			acc.InvestmentLimit = nil
			acc.OverrideEnabled = false
			acc.OverrideBy = ""
		}
		applyInput(acc, in, now)
		if err := s.accreditations.Update(ctx, acc); err != nil {
			return nil, err
		}
	default:
		return &SubmitResult{
			Successful: false,
			Message:    fmt.Sprintf("user already has an accreditation application with status %s", existing.Status),
			Status:     existing.Status,
		}, nil
	}

	s.flagDocumentsPending(ctx, in.UserID, in.DocumentIDs)

	s.activity.Record(ctx, in.UserID, activitydomain.TypeAccreditationSubmit, activitydomain.StatusSuccess,
		fmt.Sprintf("classification=%s accreditation=%s", acc.InvestorClassification, acc.ID), "")

	// Best effort; a notification failure must not fail the submission.
	if user, err := s.users.GetByID(ctx, in.UserID); err == nil && user != nil {
		if err := s.notifier.SendAccreditationSubmitted(ctx, user.Email, user.Name, string(acc.InvestorClassification)); err != nil {
			s.log.Warn("accreditation submitted notification failed", zap.String("user_id", in.UserID), zap.Error(err))
		}
	}

	return &SubmitResult{
		Successful:        true,
		Message:           "accreditation application submitted for review",
		AccreditationID:   acc.ID,
		Status:            acc.Status,
		Classification:    acc.InvestorClassification,
		SubmittedAt:       acc.LastUpdatedAt,
		RequiredDocuments: domain.RequiredDocuments(acc.InvestorClassification),
	}, nil
}

func applyInput(acc *domain.Accreditation, in SubmitInput, now time.Time) {
	acc.InvestorClassification = in.Classification
	acc.IncomeLevel = in.IncomeLevel
	acc.NetWorth = in.NetWorth
	acc.YearsInvesting = in.YearsInvesting
	acc.HasPriorPrivateInvestments = in.HasPriorPrivateInvestments
	acc.InvestmentExperience = domain.JoinExperience(in.InvestmentExperience)
	acc.EntityName = in.EntityName
	acc.EntityType = in.EntityType
	acc.EntityRegistrationNumber = in.EntityRegistrationNumber
	acc.EntityRegistrationDate = in.EntityRegistrationDate
	acc.CertificationMethod = in.CertificationMethod
	acc.LastUpdatedAt = now
}

// flagDocumentsPending moves the referenced uploads into Pending review.
// Documents belonging to other users are skipped.
func (s *Service) flagDocumentsPending(ctx context.Context, userID string, documentIDs []string) {
	for _, id := range documentIDs {
		doc, err := s.documents.GetByID(ctx, id)
		if err != nil || doc == nil || doc.UserID != userID {
			continue
		}
		doc.VerificationStatus = documentdomain.VerificationPending
		doc.UpdatedAt = time.Now().UTC()
		if err := s.documents.Update(ctx, doc); err != nil {
			s.log.Warn("document flag failed", zap.String("document_id", id), zap.Error(err))
		}
	}
}

// UpdateStatusInput carries a reviewer's decision.
type UpdateStatusInput struct {
	AdminID         string
	AccreditationID string
	NewStatus       domain.Status
	ReviewNotes     string
	ExpiresAt       *time.Time    // Approved only; nil picks the default validity
	LimitOverride   *domain.Money // Approved only; nil computes the limit
}

// UpdateStatusResult is the outcome of a review decision.
type UpdateStatusResult struct {
	Successful    bool
	Message       string
	Accreditation *domain.Accreditation
}

// UpdateStatus applies a reviewer's decision to an application. Internal
// failures come back as a failure result with a generic message rather
// than an error, so callers always get a structured response.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*UpdateStatusResult, error) {
	if !in.NewStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	allowed, err := s.authz.Authorize(ctx, in.AdminID, ActionReviewAccreditation)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotAuthorized
	}

	acc, err := s.accreditations.GetByID(ctx, in.AccreditationID)
	if err != nil {
		s.log.Error("accreditation lookup failed", zap.String("accreditation_id", in.AccreditationID), zap.Error(err))
		return &UpdateStatusResult{Message: "could not update accreditation status"}, nil
	}
	if acc == nil {
		return nil, ErrNotFound
	}

	ev, err := domain.AdminEvent(in.NewStatus)
	if err != nil {
		return nil, ErrInvalidStatus
	}
	t, err := domain.Apply(acc.Status, ev)
	if err != nil {
		return &UpdateStatusResult{Message: err.Error()}, nil
	}

	oldStatus := acc.Status
	now := time.Now().UTC()
	acc.Status = t.Next
	acc.ReviewNotes = in.ReviewNotes
	acc.LastUpdatedAt = now

	if t.ClearApproval {
		acc.ApprovedAt = nil
		acc.ApprovedBy = ""
		acc.ExpiresAt = nil
		acc.InvestmentLimit = nil
		acc.OverrideEnabled = false
		acc.OverrideBy = ""
	}
	if t.ComputeLimit {
		acc.ApprovedAt = &now
		acc.ApprovedBy = in.AdminID
		if in.ExpiresAt != nil {
			acc.ExpiresAt = in.ExpiresAt
		} else {
			exp := now.Add(defaultValidity)
			acc.ExpiresAt = &exp
		}
		if in.LimitOverride != nil {
			acc.InvestmentLimit = &domain.Limit{Amount: *in.LimitOverride}
			acc.OverrideEnabled = true
			acc.OverrideBy = in.AdminID
		} else {
			acc.OverrideEnabled = false
			acc.OverrideBy = ""
			limit := domain.CalculateLimit(acc)
			acc.InvestmentLimit = &limit
		}
	}

	if err := s.accreditations.Update(ctx, acc); err != nil {
		s.log.Error("accreditation update failed", zap.String("accreditation_id", acc.ID), zap.Error(err))
		return &UpdateStatusResult{Message: "could not update accreditation status"}, nil
	}

	s.activity.Record(ctx, acc.UserID, activitydomain.TypeAccreditationStatus, activitydomain.StatusSuccess,
		fmt.Sprintf("status %s -> %s by admin %s", oldStatus, acc.Status, in.AdminID), "")

	s.notifyDecision(ctx, acc, t)

	return &UpdateStatusResult{
		Successful:    true,
		Message:       fmt.Sprintf("accreditation status updated to %s", acc.Status),
		Accreditation: acc,
	}, nil
}

func (s *Service) notifyDecision(ctx context.Context, acc *domain.Accreditation, t domain.Transition) {
	if !t.NotifyApproved && !t.NotifyRejected {
		return
	}
	user, err := s.users.GetByID(ctx, acc.UserID)
	if err != nil || user == nil {
		return
	}
	switch {
	case t.NotifyApproved:
		err = s.notifier.SendAccreditationApproved(ctx, user.Email, user.Name, *acc.ExpiresAt)
	case t.NotifyRejected:
		err = s.notifier.SendAccreditationRejected(ctx, user.Email, user.Name, acc.ReviewNotes)
	}
	if err != nil {
		s.log.Warn("accreditation decision notification failed",
			zap.String("user_id", acc.UserID), zap.Error(err))
	}
}

// StatusView is the investor-facing snapshot of an application.
type StatusView struct {
	AccreditationID   string
	Status            domain.Status
	Classification    domain.InvestorClassification
	SubmittedAt       *time.Time
	ExpiresAt         *time.Time
	InvestmentLimit   *domain.Limit
	ReviewNotes       string
	UploadedDocuments []*documentdomain.Document
	RequiredDocuments []documentdomain.Type
	MissingDocuments  []documentdomain.Type
	NextStep          string
}

// accreditationDocumentTypes is the catalogue of document types the
// engine cares about; uploads of other types are filtered out of views.
var accreditationDocumentTypes = map[documentdomain.Type]bool{
	documentdomain.TypeIDCard:                   true,
	documentdomain.TypeIncomeProof:              true,
	documentdomain.TypeTaxReturn:                true,
	documentdomain.TypeFinancialStatement:       true,
	documentdomain.TypeAccreditationCertificate: true,
	documentdomain.TypeCompanyRegistration:      true,
	documentdomain.TypeBankStatement:            true,
}

// GetStatus reports where a user stands. Users without an application
// get a synthetic NotStarted view carrying the full document catalogue.
func (s *Service) GetStatus(ctx context.Context, userID string) (*StatusView, error) {
	acc, err := s.accreditations.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var uploaded []*documentdomain.Document
	var uploadedTypes []documentdomain.Type
	for _, d := range docs {
		if accreditationDocumentTypes[d.DocumentType] {
			uploaded = append(uploaded, d)
			uploadedTypes = append(uploadedTypes, d.DocumentType)
		}
	}

	if acc == nil {
		catalogue := []documentdomain.Type{
			documentdomain.TypeIDCard,
			documentdomain.TypeIncomeProof,
			documentdomain.TypeTaxReturn,
			documentdomain.TypeFinancialStatement,
			documentdomain.TypeAccreditationCertificate,
			documentdomain.TypeCompanyRegistration,
			documentdomain.TypeBankStatement,
		}
		return &StatusView{
			Status:            domain.StatusNotStarted,
			UploadedDocuments: uploaded,
			RequiredDocuments: catalogue,
			NextStep:          "start your accreditation application by choosing an investor classification",
		}, nil
	}

	missing := domain.MissingDocuments(acc.InvestorClassification, uploadedTypes)
	view := &StatusView{
		AccreditationID:   acc.ID,
		Status:            acc.Status,
		Classification:    acc.InvestorClassification,
		SubmittedAt:       &acc.CreatedAt,
		ExpiresAt:         acc.ExpiresAt,
		InvestmentLimit:   acc.InvestmentLimit,
		ReviewNotes:       acc.ReviewNotes,
		UploadedDocuments: uploaded,
		RequiredDocuments: domain.RequiredDocuments(acc.InvestorClassification),
		MissingDocuments:  missing,
		NextStep:          nextStep(acc.Status, missing),
	}
	return view, nil
}

func nextStep(status domain.Status, missing []documentdomain.Type) string {
	switch status {
	case domain.StatusPending:
		return "your application is awaiting review"
	case domain.StatusApproved:
		return "congratulations, you have full access to investment opportunities"
	case domain.StatusRejected:
		return "review the feedback and resubmit your application with corrections"
	case domain.StatusExpired:
		return "your accreditation has expired; renew it to keep investing"
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, t := range missing {
			names = append(names, string(t))
		}
		return fmt.Sprintf("upload the following documents: %v", names)
	}
	return "complete and submit your application"
}

// CanInvest reports whether a user may invest the given amount under
// their current accreditation. Every check is audited.
func (s *Service) CanInvest(ctx context.Context, userID string, amount domain.Money) (bool, error) {
	acc, err := s.accreditations.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	ok, reason := canInvest(acc, amount, time.Now().UTC())

	status := activitydomain.StatusSuccess
	if !ok {
		status = activitydomain.StatusFailure
	}
	s.activity.Record(ctx, userID, activitydomain.TypeInvestmentLimitCheck, status,
		fmt.Sprintf("amount=%d", amount), reason)
	return ok, nil
}

func canInvest(acc *domain.Accreditation, amount domain.Money, now time.Time) (bool, string) {
	if acc == nil {
		return false, "no accreditation on record"
	}
	if acc.Status != domain.StatusApproved {
		return false, fmt.Sprintf("accreditation status is %s", acc.Status)
	}
	if acc.Expired(now) {
		return false, "accreditation has expired"
	}
	if !domain.CalculateLimit(acc).Allows(amount) {
		return false, "amount exceeds investment limit"
	}
	return true, ""
}
