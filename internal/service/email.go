package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
)

const dateLayout = "2006-01-02 15:04"

// mailClient is the part of the SendGrid client the service uses.
type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type emailService struct {
	client    mailClient
	fromEmail string
	fromName  string
	loc       *time.Location
}

// NewEmailService sends through SendGrid. With an empty API key messages are
// only logged, which keeps local runs and tests offline. Dates are written in
// loc, the business time zone.
func NewEmailService(apiKey, fromEmail, fromName string, loc *time.Location) EmailService {
	s := &emailService{client: logOnlyClient{}, fromEmail: fromEmail, fromName: fromName, loc: loc}
	if apiKey != "" {
		s.client = sendgrid.NewSendClient(apiKey)
	}
	return s
}

func (s *emailService) date(t time.Time) string {
	if s.loc != nil {
		t = t.In(s.loc)
	}
	return t.Format(dateLayout)
}

func (s *emailService) SendBookingConfirmation(ctx context.Context, to *domain.User, r *domain.Rental, v *domain.Vehicle) error {
	subject := fmt.Sprintf("Booking confirmed: %s %s", v.Make, v.Model)
	plain := fmt.Sprintf("Hello %s,\n\nYour rental #%d of the %s %s (%s) is confirmed.\n\n"+
		"Pick-up: %s\nReturn: %s\nDays: %d\nBase price: %s\nInsurance: %s\nDistance fee: %s\nDiscount: %s\nTotal charged: %s\n\n"+
		"Status: %s\n",
		to.FullName(), r.ID, v.Make, v.Model, v.RegistrationNumber,
		s.date(r.StartAt), s.date(r.PlannedEndAt), r.Days,
		r.BasePrice.StringFixed(2), r.InsurancePrice.StringFixed(2), r.DistanceFee.StringFixed(2),
		r.DiscountAmount.StringFixed(2), r.TotalPrice.StringFixed(2), r.Status)
	html := fmt.Sprintf(`<html><body><h2>Booking confirmed</h2>
<p>Your rental <strong>#%d</strong> of the <strong>%s %s</strong> is confirmed.</p>
<p>%s &ndash; %s</p><p>Total charged: <strong>%s</strong></p></body></html>`,
		r.ID, v.Make, v.Model, s.date(r.StartAt), s.date(r.PlannedEndAt), r.TotalPrice.StringFixed(2))
	return s.send(ctx, to, subject, plain, html)
}

func (s *emailService) SendCancellationNotice(ctx context.Context, to *domain.User, r *domain.Rental, v *domain.Vehicle) error {
	subject := fmt.Sprintf("Rental #%d closed", r.ID)
	vehicle := "your vehicle"
	if v != nil {
		vehicle = v.Make + " " + v.Model
	}
	plain := fmt.Sprintf("Hello %s,\n\nYour rental #%d of %s was closed early (%s).\nRefund credited to your balance: %s\n",
		to.FullName(), r.ID, vehicle, r.Status, r.RefundAmount.StringFixed(2))
	if r.CancellationReason != "" {
		plain += fmt.Sprintf("Reason: %s\n", r.CancellationReason)
	}
	html := fmt.Sprintf(`<html><body><h2>Rental #%d closed</h2><p>Refund: <strong>%s</strong></p></body></html>`,
		r.ID, r.RefundAmount.StringFixed(2))
	return s.send(ctx, to, subject, plain, html)
}

func (s *emailService) SendReturnDecision(ctx context.Context, to *domain.User, r *domain.Rental, approved bool, reason string) error {
	decision := "approved"
	if !approved {
		decision = "rejected"
	}
	subject := fmt.Sprintf("Return of rental #%d %s", r.ID, decision)
	plain := fmt.Sprintf("Hello %s,\n\nThe return of rental #%d was %s.\n", to.FullName(), r.ID, decision)
	if !approved && reason != "" {
		plain += fmt.Sprintf("Reason: %s\nThe rental stays active until the vehicle is returned.\n", reason)
	}
	html := fmt.Sprintf(`<html><body><h2>Return %s</h2><p>Rental #%d</p></body></html>`, decision, r.ID)
	return s.send(ctx, to, subject, plain, html)
}

func (s *emailService) send(ctx context.Context, to *domain.User, subject, plain, html string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(to.FullName(), to.Email)
	message := mail.NewSingleEmail(from, subject, recipient, plain, html)

	logger.ExternalServiceCall("sendgrid", "send", "to", to.Email, "subject", subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", to.Email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logOnlyClient struct{}

func (logOnlyClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	logger.Info("Email delivery disabled, message dropped", "subject", email.Subject)
	return &rest.Response{StatusCode: 202}, nil
}
