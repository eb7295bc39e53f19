package users

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// NotifyAccountCreatedMessage is dispatched after a successful signup so the
// new account holder receives their welcome email.
type NotifyAccountCreatedMessage struct {
	Email     string `json:"email" example:"pepe.rone@example.com" doc:"New account email."`
	FirstName string `json:"firstname" example:"Pepe" doc:"New account first name."`
	Password  string `json:"-"`
}

func (p NotifyAccountCreatedMessage) Type() string { return "user.notify_account_created" }

type NotifyAccountCreatedHandler struct {
	mailer Mailer
	logger Logger
}

func NewNotifyAccountCreatedHandler(mailer Mailer, logger Logger) *NotifyAccountCreatedHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &NotifyAccountCreatedHandler{mailer: mailer, logger: logger}
}

func (h NotifyAccountCreatedHandler) Execute(ctx context.Context, event NotifyAccountCreatedMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account notification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h NotifyAccountCreatedHandler) execute(ctx context.Context, event NotifyAccountCreatedMessage) error {
	if h.mailer == nil {
		return goerrors.New("no mailer configured for account notifications", goerrors.CategoryOperation)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	subject := "Welcome, your account is ready"
	body := accountCreatedBody(event)

	if err := h.mailer.Send(ctx, event.Email, subject, body); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send account notification").
			WithMetadata(map[string]any{
				"email": event.Email,
			})
	}

	h.logger.Info("account notification sent", "email", event.Email)

	return nil
}

func accountCreatedBody(event NotifyAccountCreatedMessage) string {
	name := event.FirstName
	if name == "" {
		name = event.Email
	}

	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Your account <strong>%s</strong> was created. You can sign in with the password you chose.</p>",
		name, event.Email,
	)
}
