package domain

import (
	"fmt"
	"strings"
	"time"
)

// Money is an amount in whole currency units. Limit arithmetic uses
// integer division so the same inputs always yield the same limit.
type Money int64

// InvestorClassification is the self-declared investor category. It drives
// both the required-document set and the investment-limit formula.
type InvestorClassification string

const (
	ClassificationAccredited    InvestorClassification = "Accredited"
	ClassificationQualified     InvestorClassification = "Qualified"
	ClassificationInstitutional InvestorClassification = "Institutional"
	ClassificationNonAccredited InvestorClassification = "NonAccredited"
)

// Valid reports whether c is a known classification.
func (c InvestorClassification) Valid() bool {
	switch c {
	case ClassificationAccredited, ClassificationQualified,
		ClassificationInstitutional, ClassificationNonAccredited:
		return true
	}
	return false
}

// Status is the review state of an accreditation application.
// StatusNotStarted never reaches storage; it is synthesized for users
// who have no application on record.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusExpired    Status = "Expired"
)

// Valid reports whether s is a storable status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Limit is an investment ceiling. Unbounded means no ceiling applies;
// Amount is only meaningful when Unbounded is false.
type Limit struct {
	Unbounded bool
	Amount    Money
}

// NoLimit is the ceiling for classifications that invest without cap.
var NoLimit = Limit{Unbounded: true}

// Allows reports whether an investment of amount fits under the limit.
func (l Limit) Allows(amount Money) bool {
	if l.Unbounded {
		return true
	}
	return amount <= l.Amount
}

func (l Limit) String() string {
	if l.Unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", l.Amount)
}

// Accreditation is a single investor's application. Each user holds at
// most one row; resubmission after rejection reuses it in place.
type Accreditation struct {
	ID                         string
	UserID                     string
	InvestorClassification     InvestorClassification
	Status                     Status
	IncomeLevel                *Money
	NetWorth                   *Money
	YearsInvesting             int
	HasPriorPrivateInvestments bool
	InvestmentExperience       string
	EntityName                 string
	EntityType                 string
	EntityRegistrationNumber   string
	EntityRegistrationDate     *time.Time
	CertificationMethod        string
	ReviewNotes                string
	ApprovedAt                 *time.Time
	ApprovedBy                 string
	ExpiresAt                  *time.Time
	InvestmentLimit            *Limit
	OverrideEnabled            bool
	OverrideBy                 string
	Version                    int64
	CreatedAt                  time.Time
	LastUpdatedAt              time.Time
}

// Expired reports whether an approved accreditation has passed its
// expiry instant. Applications without an expiry never expire.
func (a *Accreditation) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// JoinExperience flattens free-form experience entries for storage.
func JoinExperience(entries []string) string {
	return strings.Join(entries, ";")
}
