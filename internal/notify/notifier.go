package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/alert"
)

// Fanout delivers an alert through email and, when configured, exports
// it to Pub/Sub. Email errors are returned; export is best effort.
type Fanout struct {
	Email    *EmailNotifier
	Exporter *AlertExporter
	Logger   zerolog.Logger
}

// NotifyAlert delivers the alert to all configured channels.
func (f *Fanout) NotifyAlert(ctx context.Context, a *alert.Alert, contactIDs []string) error {
	if f.Exporter != nil {
		if err := f.Exporter.Export(ctx, a); err != nil {
			f.Logger.Warn().Err(err).Str("alert_id", a.ID).Msg("alert export failed")
		}
	}

	if f.Email != nil {
		return f.Email.NotifyAlert(ctx, a, contactIDs)
	}
	return nil
}
