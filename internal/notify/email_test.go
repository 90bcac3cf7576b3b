package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/contact"
	"github.com/pulsewatch/pulsewatch/internal/notify"
	"github.com/pulsewatch/pulsewatch/internal/resilience"
)

func newContactService(t *testing.T, contacts ...*contact.Contact) *contact.Service {
	t.Helper()
	svc := contact.NewService(contact.NewInMemoryRepository())
	for _, c := range contacts {
		_, err := svc.Create(context.Background(), c)
		require.NoError(t, err)
	}
	return svc
}

func testAlert() *alert.Alert {
	return &alert.Alert{
		ID:             "alr_test1",
		IndicatorID:    "ind_test1",
		IndicatorName:  "Orders per minute",
		Severity:       alert.SeverityCritical,
		Message:        "Orders per minute: throughput is 2 (threshold 100)",
		TriggeredValue: 2,
		ThresholdField: "throughput",
		ThresholdValue: 100,
		CreatedAt:      time.Now(),
	}
}

func TestEmailNotifier_SendsMail(t *testing.T) {
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-test-key", r.Header.Get("Authorization"))
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	svc := newContactService(t, &contact.Contact{Name: "On-call", Email: "oncall@example.com"})
	contacts, err := svc.List(context.Background())
	require.NoError(t, err)

	notifier := notify.NewEmailNotifier(notify.EmailNotifierConfig{
		APIKey:    "sg-test-key",
		FromEmail: "alerts@pulsewatch.io",
		Contacts:  svc,
		Client:    resilience.NewClient(resilience.DefaultClientConfig("alert-mailer-test")),
		BaseURL:   server.URL,
		Logger:    zerolog.Nop(),
	})

	err = notifier.NotifyAlert(context.Background(), testAlert(), []string{contacts[0].ID})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(captured, &payload))
	assert.Contains(t, payload["subject"], "CRITICAL")
	assert.Contains(t, payload["subject"], "Orders per minute")
}

func TestEmailNotifier_SkipsWhenUnconfigured(t *testing.T) {
	notifier := notify.NewEmailNotifier(notify.EmailNotifierConfig{
		Contacts: newContactService(t),
		Logger:   zerolog.Nop(),
	})

	// No API key configured: delivery is skipped, not an error.
	err := notifier.NotifyAlert(context.Background(), testAlert(), []string{"cnt_missing"})
	assert.NoError(t, err)
}

func TestEmailNotifier_NoRecipients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected when no contact has an email")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	svc := newContactService(t, &contact.Contact{Name: "Pager only", Phone: "+15550100"})
	contacts, err := svc.List(context.Background())
	require.NoError(t, err)

	notifier := notify.NewEmailNotifier(notify.EmailNotifierConfig{
		APIKey:    "sg-test-key",
		FromEmail: "alerts@pulsewatch.io",
		Contacts:  svc,
		Client:    resilience.NewClient(resilience.DefaultClientConfig("alert-mailer-none")),
		BaseURL:   server.URL,
		Logger:    zerolog.Nop(),
	})

	err = notifier.NotifyAlert(context.Background(), testAlert(), []string{contacts[0].ID})
	assert.NoError(t, err)
}

func TestEmailNotifier_ServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := newContactService(t, &contact.Contact{Name: "On-call", Email: "oncall@example.com"})
	contacts, err := svc.List(context.Background())
	require.NoError(t, err)

	notifier := notify.NewEmailNotifier(notify.EmailNotifierConfig{
		APIKey:    "bad-key",
		FromEmail: "alerts@pulsewatch.io",
		Contacts:  svc,
		Client:    resilience.NewClient(resilience.DefaultClientConfig("alert-mailer-reject")),
		BaseURL:   server.URL,
		Logger:    zerolog.Nop(),
	})

	err = notifier.NotifyAlert(context.Background(), testAlert(), []string{contacts[0].ID})
	assert.Error(t, err)
}
