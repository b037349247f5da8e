/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Seednode/namewheel/spin"
)

const (
	metricsNamespace = "namewheel"
	metricsSubsystem = "wheel"
)

// wheelMetrics tracks spins across every wheel. It uses its own registry so
// only wheel metrics are exposed.
type wheelMetrics struct {
	registry *prometheus.Registry

	spinsStarted     prometheus.Counter
	spinsCancelled   prometheus.Counter
	winnersAnnounced prometheus.Counter
	spinRejections   *prometheus.CounterVec
	spinDuration     prometheus.Histogram
	activeWheels     prometheus.Gauge
	connectedClients prometheus.Gauge
	exports          *prometheus.CounterVec
}

func newWheelMetrics() *wheelMetrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &wheelMetrics{
		registry: registry,
		spinsStarted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "spins_started_total",
			Help:      "Total number of spins started",
		}),
		spinsCancelled: auto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "spins_cancelled_total",
			Help:      "Total number of spins reset before a winner was announced",
		}),
		winnersAnnounced: auto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "winners_announced_total",
			Help:      "Total number of winners announced",
		}),
		spinRejections: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "spin_rejections_total",
			Help:      "Total number of spin requests refused, by reason",
		}, []string{"reason"}),
		spinDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "spin_seconds",
			Help:      "Time from spin start to winner announcement",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 61},
		}),
		activeWheels: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "active",
			Help:      "Number of wheel sessions currently open",
		}),
		connectedClients: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "clients",
			Help:      "Number of connected WebSocket clients",
		}),
		exports: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "exports_total",
			Help:      "Total number of wheel exports, by format",
		}, []string{"format"}),
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, spin.ErrAlreadySpinning):
		return "already_spinning"
	case errors.Is(err, spin.ErrInsufficientSegments):
		return "insufficient_segments"
	case errors.Is(err, spin.ErrEngineClosed):
		return "closed"
	default:
		return "invalid_request"
	}
}

func (m *wheelMetrics) spinRejected(err error) {
	m.spinRejections.WithLabelValues(rejectionReason(err)).Inc()
}

func (m *wheelMetrics) winner(started time.Time) {
	m.winnersAnnounced.Inc()
	if !started.IsZero() {
		m.spinDuration.Observe(time.Since(started).Seconds())
	}
}

func (m *wheelMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
