package domain

import "time"

// Type identifies what a document evidences. The accreditation engine's
// required-document tables are built from these values.
type Type string

const (
	TypeIDCard                   Type = "IdCard"
	TypeIncomeProof              Type = "IncomeProof"
	TypeTaxReturn                Type = "TaxReturn"
	TypeFinancialStatement       Type = "FinancialStatement"
	TypeAccreditationCertificate Type = "AccreditationCertificate"
	TypeCompanyRegistration      Type = "CompanyRegistration"
	TypeBankStatement            Type = "BankStatement"
)

// VerificationStatus tracks review state of an uploaded document.
type VerificationStatus string

const (
	VerificationNotSubmitted VerificationStatus = "NotSubmitted"
	VerificationPending      VerificationStatus = "Pending"
	VerificationVerified     VerificationStatus = "Verified"
	VerificationRejected     VerificationStatus = "Rejected"
)

// Document is a KYC/accreditation evidence file reference. Storage of the
// file itself is a collaborator concern; only metadata lives here.
type Document struct {
	ID                 string
	UserID             string
	DocumentType       Type
	FileName           string
	VerificationStatus VerificationStatus
	UploadedAt         time.Time
	UpdatedAt          time.Time
}
