package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envío de correos de confirmación.
type Sender interface {
	SendSignupConfirmation(ctx context.Context, toEmail, confirmURL string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendSignupConfirmation(_ context.Context, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
