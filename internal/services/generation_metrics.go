package services

import "time"

// GenerationMetrics receives generation observations. internal/metrics.Collector
// implements it for Prometheus.
type GenerationMetrics interface {
	ProviderAttempt(provider, outcome string, elapsed time.Duration)
	GenerationCompleted(kind, outcome string)
	CountMismatch(kind string, requested, got int)
}

type noopMetrics struct{}

func (noopMetrics) ProviderAttempt(string, string, time.Duration) {}
func (noopMetrics) GenerationCompleted(string, string)            {}
func (noopMetrics) CountMismatch(string, int, int)                {}

func metricsOrNoop(m GenerationMetrics) GenerationMetrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
