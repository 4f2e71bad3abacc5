package domain

import "time"

// Status is the outcome recorded on an activity log entry.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// Type identifies the kind of user activity being recorded.
type Type string

const (
	TypeRegistration          Type = "Registration"
	TypeLogin                 Type = "Login"
	TypeLogout                Type = "Logout"
	TypeTokenRefresh          Type = "TokenRefresh"
	TypeSessionRevoked        Type = "SessionRevoked"
	TypeAllSessionsRevoked    Type = "AllSessionsRevoked"
	TypeMFAChallengeSent      Type = "MFAChallengeSent"
	TypeMFAVerified           Type = "MFAVerified"
	TypeMFAFailed             Type = "MFAFailed"
	TypeTwoFactorEnabled      Type = "TwoFactorEnabled"
	TypeTwoFactorDisabled     Type = "TwoFactorDisabled"
	TypePasswordChanged       Type = "PasswordChanged"
	TypePasswordResetRequest  Type = "PasswordResetRequest"
	TypeEmailVerified         Type = "EmailVerified"
	TypePhoneVerified         Type = "PhoneVerified"
	TypeProfileUpdated        Type = "ProfileUpdated"
	TypePreferencesUpdated    Type = "PreferencesUpdated"
	TypeDocumentUploaded      Type = "DocumentUploaded"
	TypeDocumentDeleted       Type = "DocumentDeleted"
	TypeAccreditationSubmit   Type = "AccreditationSubmitted"
	TypeAccreditationStatus   Type = "AccreditationStatusChanged"
	TypeInvestmentLimitCheck  Type = "InvestmentLimitChecked"
	TypeKYCVerificationStart  Type = "KYCVerificationStarted"
	TypeKYCVerificationResult Type = "KYCVerificationResult"
)

// Entry is one append-only audit trail record. Entries are never mutated or
// deleted after creation.
type Entry struct {
	ID            string
	UserID        string
	ActivityType  Type
	Status        Status
	IPAddress     string
	UserAgent     string
	Details       string
	FailureReason string
	CreatedAt     time.Time
}
