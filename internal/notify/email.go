// Package notify delivers alert notifications to indicator contacts and
// exports alert events to external systems.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/contact"
	"github.com/pulsewatch/pulsewatch/internal/resilience"
)

const defaultSendGridBaseURL = "https://api.sendgrid.com"

// EmailNotifierConfig holds configuration for the email notifier.
type EmailNotifierConfig struct {
	// APIKey is the SendGrid API key.
	APIKey string

	// FromEmail is the sender address for alert mail.
	FromEmail string

	// FromName is the sender display name.
	FromName string

	// Contacts resolves contact IDs to email addresses.
	Contacts *contact.Service

	// Client is the HTTP client used for delivery. If nil, a resilient
	// client named "alert-mailer" is created and registered globally.
	Client *resilience.Client

	// BaseURL overrides the SendGrid API base URL in tests.
	BaseURL string

	Logger zerolog.Logger
}

// EmailNotifier sends alert mail to an indicator's contacts through
// SendGrid. Delivery is best effort: the alert row is already persisted
// before the notifier runs.
type EmailNotifier struct {
	apiKey    string
	fromEmail string
	fromName  string
	contacts  *contact.Service
	client    *resilience.Client
	registry  *resilience.Registry
	baseURL   string
	logger    zerolog.Logger
}

// NewEmailNotifier creates a new SendGrid-backed email notifier.
func NewEmailNotifier(cfg EmailNotifierConfig) *EmailNotifier {
	client := cfg.Client
	if client == nil {
		clientCfg := resilience.DefaultClientConfig("alert-mailer")
		clientCfg.Registry = resilience.GlobalRegistry
		client = resilience.NewClient(clientCfg)
	}

	fromName := cfg.FromName
	if fromName == "" {
		fromName = "PulseWatch"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSendGridBaseURL
	}

	return &EmailNotifier{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  fromName,
		contacts:  cfg.Contacts,
		client:    client,
		registry:  resilience.GlobalRegistry,
		baseURL:   baseURL,
		logger:    cfg.Logger.With().Str("component", "email_notifier").Logger(),
	}
}

// NotifyAlert sends the alert to every contact that has an email address.
func (n *EmailNotifier) NotifyAlert(ctx context.Context, a *alert.Alert, contactIDs []string) error {
	if n.apiKey == "" || n.fromEmail == "" {
		n.logger.Debug().Msg("sendgrid not configured, skipping alert mail")
		return nil
	}
	if len(contactIDs) == 0 {
		return nil
	}

	contacts, err := n.contacts.GetMany(ctx, contactIDs)
	if err != nil {
		return fmt.Errorf("resolving contacts: %w", err)
	}

	recipients := make([]*mail.Email, 0, len(contacts))
	for _, c := range contacts {
		if c.Email == "" {
			continue
		}
		recipients = append(recipients, mail.NewEmail(c.Name, c.Email))
	}
	if len(recipients) == 0 {
		n.logger.Debug().Str("alert_id", a.ID).Msg("no contacts with email, skipping alert mail")
		return nil
	}

	message := n.buildMessage(a, recipients)

	body := mail.GetRequestBody(message)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.registry.RecordFailure(n.client.Name(), err)
		return fmt.Errorf("sending alert mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
		n.registry.RecordFailure(n.client.Name(), err)
		return err
	}

	n.registry.RecordSuccess(n.client.Name())
	n.logger.Info().
		Str("alert_id", a.ID).
		Str("indicator_id", a.IndicatorID).
		Int("recipients", len(recipients)).
		Msg("alert mail sent")

	return nil
}

func (n *EmailNotifier) buildMessage(a *alert.Alert, recipients []*mail.Email) *mail.SGMailV3 {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(a.Severity)), a.IndicatorName)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", a.Message)
	fmt.Fprintf(&b, "Indicator: %s\n", a.IndicatorName)
	fmt.Fprintf(&b, "Severity:  %s\n", a.Severity)
	fmt.Fprintf(&b, "Value:     %g (threshold %s %g)\n", a.TriggeredValue, a.ThresholdField, a.ThresholdValue)
	fmt.Fprintf(&b, "Raised:    %s\n", a.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "\nAlert ID: %s\n", a.ID)
	content := b.String()

	from := mail.NewEmail(n.fromName, n.fromEmail)
	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = subject

	p := mail.NewPersonalization()
	p.AddTos(recipients...)
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", content))
	return message
}
