package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/mail"
)

const jobTypeMail = "mail"

type mailEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// MailService composes outbound e-mails and hands them to the background queue.
type MailService struct {
	sender mail.Sender
	queue  mailEnqueuer
	logger *zap.Logger
}

// NewMailService constructs the service. Without a queue messages are sent inline.
func NewMailService(sender mail.Sender, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailService{sender: sender, logger: logger}
}

// UseQueue routes future messages through queue.
func (s *MailService) UseQueue(queue mailEnqueuer) {
	s.queue = queue
}

// Handle is the jobs.Handler delivering queued messages.
func (s *MailService) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		s.logger.Error("dropping mail job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sender.Send(ctx, msg)
}

// SendResetLink e-mails a password reset link. It is a no-op when no mail transport is configured.
func (s *MailService) SendResetLink(ctx context.Context, to mail.Address, link string) error {
	if s.sender == nil || !s.sender.Configured() {
		s.logger.Info("mail transport not configured, skipping reset link", zap.String("email", to.Email))
		return nil
	}
	msg := mail.Message{
		To:       []mail.Address{to},
		Subject:  "Password Reset Request",
		TextBody: fmt.Sprintf("To reset your password, click the link below:\n%s\n\nThe link expires in 24 hours. If you did not request a reset you can ignore this e-mail.", link),
	}
	return s.dispatch(ctx, msg)
}

// Notify e-mails a short notice to a user. It is a no-op without a transport or address.
func (s *MailService) Notify(ctx context.Context, to mail.Address, subject, body string) error {
	if s.sender == nil || !s.sender.Configured() || to.Email == "" {
		return nil
	}
	return s.dispatch(ctx, mail.Message{To: []mail.Address{to}, Subject: subject, TextBody: body})
}

func (s *MailService) dispatch(ctx context.Context, msg mail.Message) error {
	if s.queue == nil {
		return s.sender.Send(ctx, msg)
	}
	err := s.queue.Enqueue(jobs.Job{Type: jobTypeMail, Payload: msg})
	if errors.Is(err, jobs.ErrQueueNotRunning) {
		s.logger.Warn("mail queue not running, sending inline")
		return s.sender.Send(ctx, msg)
	}
	return err
}
