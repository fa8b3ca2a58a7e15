package lifecycle

import "log/slog"

// LogNotifier implements NotificationSink by logging. It is the default
// sink for headless deployments; a UI-backed sink replaces it on devices.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notification sink.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "cache.notifier")}
}

// Warn logs the pre-expiry warning.
func (n *LogNotifier) Warn() {
	n.logger.Warn("cache window is about to expire")
}

// Expired logs the expiry signal.
func (n *LogNotifier) Expired() {
	n.logger.Info("cache window expired, cached files released")
}

// NopNotifier implements NotificationSink with no-ops, for tests and for
// callers that surface expiry purely through state observation.
type NopNotifier struct{}

// Warn implements NotificationSink.
func (NopNotifier) Warn() {}

// Expired implements NotificationSink.
func (NopNotifier) Expired() {}
