package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/alert"
)

// AlertExporter publishes raised alerts to a Pub/Sub topic so external
// consumers (incident tooling, data warehouse loads) can react to them.
type AlertExporter struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// AlertExporterConfig holds configuration for the alert exporter.
type AlertExporterConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// AlertEvent is the wire shape of an exported alert.
type AlertEvent struct {
	AlertID        string    `json:"alertId"`
	IndicatorID    string    `json:"indicatorId"`
	IndicatorName  string    `json:"indicatorName"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	TriggeredValue float64   `json:"triggeredValue"`
	ThresholdField string    `json:"thresholdField"`
	ThresholdValue float64   `json:"thresholdValue"`
	RaisedAt       time.Time `json:"raisedAt"`
}

// NewAlertExporter creates a new Pub/Sub alert exporter.
func NewAlertExporter(ctx context.Context, cfg AlertExporterConfig) (*AlertExporter, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &AlertExporter{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger.With().Str("component", "alert_exporter").Logger(),
	}, nil
}

// Export publishes the alert and waits for the broker acknowledgement.
func (e *AlertExporter) Export(ctx context.Context, a *alert.Alert) error {
	event := AlertEvent{
		AlertID:        a.ID,
		IndicatorID:    a.IndicatorID,
		IndicatorName:  a.IndicatorName,
		Severity:       string(a.Severity),
		Message:        a.Message,
		TriggeredValue: a.TriggeredValue,
		ThresholdField: a.ThresholdField,
		ThresholdValue: a.ThresholdValue,
		RaisedAt:       a.CreatedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding alert event: %w", err)
	}

	result := e.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"severity":    string(a.Severity),
			"indicatorId": a.IndicatorID,
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing alert event: %w", err)
	}

	e.logger.Debug().
		Str("alert_id", a.ID).
		Str("message_id", id).
		Str("topic", e.topicName).
		Msg("alert event exported")

	return nil
}

// Close stops the publisher and closes the Pub/Sub client.
func (e *AlertExporter) Close() error {
	e.publisher.Stop()
	return e.client.Close()
}
