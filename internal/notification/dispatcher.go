// Package notification delivers verification codes and status-change notices.
// Every send is fire-and-forget from the caller's perspective: the core logs
// a failed dispatch and continues, it never rolls back the primary operation.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"investaccred/backend/internal/notification/email"
	"investaccred/backend/internal/notification/sms"
)

const dispatchTimeout = 15 * time.Second

// Dispatcher is the outbound notification surface the core depends on.
type Dispatcher interface {
	// SendTwoFactorCode delivers a one-time code. destination is either a
	// phone number or an email address; the dispatcher routes accordingly.
	SendTwoFactorCode(ctx context.Context, destination, code string) error
	SendVerificationCode(ctx context.Context, emailAddr, code string) error
	SendAccreditationSubmitted(ctx context.Context, emailAddr, name, classification string) error
	SendAccreditationApproved(ctx context.Context, emailAddr, name string, expiresAt time.Time) error
	SendAccreditationRejected(ctx context.Context, emailAddr, name, reviewNotes string) error
}

// Service implements Dispatcher over the SMS gateway and email provider clients.
type Service struct {
	sms   *sms.Client
	email *email.Client
}

// NewService returns a Dispatcher using the given clients. Either may be a
// client with empty credentials; sends through it then fail with a config error.
func NewService(smsClient *sms.Client, emailClient *email.Client) *Service {
	return &Service{sms: smsClient, email: emailClient}
}

// SendTwoFactorCode routes the code by destination shape: addresses containing
// "@" go by email, anything else by SMS.
func (s *Service) SendTwoFactorCode(ctx context.Context, destination, code string) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if strings.Contains(destination, "@") {
		return s.email.Send(ctx, destination, "Your verification code",
			fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code))
	}
	return s.sms.SendOTP(ctx, destination, code)
}

// SendVerificationCode emails a confirmation code (email/phone confirmation flows).
func (s *Service) SendVerificationCode(ctx context.Context, emailAddr, code string) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	return s.email.Send(ctx, emailAddr, "Confirm your email",
		fmt.Sprintf("Your confirmation code is %s.", code))
}

// SendAccreditationSubmitted confirms receipt of an accreditation application.
func (s *Service) SendAccreditationSubmitted(ctx context.Context, emailAddr, name, classification string) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	return s.email.Send(ctx, emailAddr, "Accreditation application received",
		fmt.Sprintf("Hi %s,\n\nWe received your %s accreditation application. Our team will review it and get back to you.", name, classification))
}

// SendAccreditationApproved notifies the investor their accreditation was approved.
func (s *Service) SendAccreditationApproved(ctx context.Context, emailAddr, name string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	return s.email.Send(ctx, emailAddr, "Accreditation approved",
		fmt.Sprintf("Hi %s,\n\nCongratulations, your investor accreditation has been approved. It is valid until %s.", name, expiresAt.Format("January 2, 2006")))
}

// SendAccreditationRejected notifies the investor their application was rejected.
func (s *Service) SendAccreditationRejected(ctx context.Context, emailAddr, name, reviewNotes string) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	body := fmt.Sprintf("Hi %s,\n\nYour accreditation application was not approved.", name)
	if reviewNotes != "" {
		body += "\n\nReviewer notes: " + reviewNotes
	}
	body += "\n\nYou may correct the issues and resubmit."
	return s.email.Send(ctx, emailAddr, "Accreditation application update", body)
}
