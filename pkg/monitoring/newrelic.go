package monitoring

import (
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// NewRelicApp wraps the New Relic application. A zero-value (disabled) app is
// safe to call everywhere.
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return &NewRelicApp{nil, false}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr.enabled
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Custom metric helpers

// RecordLocationIngested records an accepted driver location report
func (nr *NewRelicApp) RecordLocationIngested() {
	nr.RecordCustomMetric("custom/dispatch/location_ingested", 1)
}

// RecordOfferResolved records an offer reaching a terminal state
func (nr *NewRelicApp) RecordOfferResolved(outcome string) {
	nr.RecordCustomEvent("OfferResolved", map[string]interface{}{
		"outcome":   outcome,
		"timestamp": time.Now().Unix(),
	})
}

// RecordDeliveryCreated records delivery creation
func (nr *NewRelicApp) RecordDeliveryCreated(deliveryID string) {
	nr.RecordCustomEvent("DeliveryCreated", map[string]interface{}{
		"delivery_id": deliveryID,
		"timestamp":   time.Now().Unix(),
	})
}

// RecordDeliveryAccepted records a driver winning a delivery offer
func (nr *NewRelicApp) RecordDeliveryAccepted(deliveryID, driverID string) {
	nr.RecordCustomEvent("DeliveryAccepted", map[string]interface{}{
		"delivery_id": deliveryID,
		"driver_id":   driverID,
	})
}
