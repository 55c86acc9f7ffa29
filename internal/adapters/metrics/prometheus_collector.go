package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all metrics
	namespace = "pharmasim"
	// Subsystem for engine metrics
	subsystem = "engine"
)

// Registry is the global Prometheus registry for all metrics
var Registry *prometheus.Registry

// InitRegistry initializes the Prometheus registry with Go runtime collectors.
// Should be called once at application startup if metrics are enabled.
func InitRegistry() {
	Registry = prometheus.NewRegistry()
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// GetRegistry returns the global Prometheus registry.
// Returns nil if metrics are not initialized.
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	if Registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func register(metrics ...prometheus.Collector) error {
	if Registry == nil {
		return nil // Metrics not enabled
	}
	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}
	return nil
}
