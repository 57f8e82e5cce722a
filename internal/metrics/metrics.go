// Package metrics exposes the Prometheus collectors of the reservation
// service.  A nil *Metrics is valid and records nothing, which keeps
// tests free of registry plumbing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reservation outcomes used as the "outcome" label.
const (
	OutcomeSuccess             = "success"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeSlotUnavailable     = "slot_unavailable"
	OutcomeConflict            = "conflict"
	OutcomeReplayed            = "replayed"
	OutcomeError               = "error"
)

// Metrics bundles the service collectors.
type Metrics struct {
	reservations       *prometheus.CounterVec
	reservationAttempt prometheus.Histogram
	accounts           *prometheus.CounterVec
	shortCodeProbes    prometheus.Histogram
	topUps             prometheus.Counter
	publishFailures    prometheus.Counter
}

// New creates the collectors under namespace and registers them with reg.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reservations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reservations_total",
				Help:      "Reserve calls by outcome",
			},
			[]string{"outcome"},
		),
		reservationAttempt: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reservation_attempts",
				Help:      "Transaction attempts needed per reserve call",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
		),
		accounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accounts_provisioned_total",
				Help:      "Account provisioning calls by result (created, existing)",
			},
			[]string{"result"},
		),
		shortCodeProbes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "short_code_probes",
				Help:      "Short code candidates generated per created account",
				Buckets:   []float64{1, 2, 3, 5, 10, 20},
			},
		),
		topUps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wallet_topups_total",
				Help:      "Successful wallet top-ups",
			},
		),
		publishFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_publish_failures_total",
				Help:      "Reservation events that could not be published",
			},
		),
	}
	for _, c := range []prometheus.Collector{
		m.reservations, m.reservationAttempt, m.accounts, m.shortCodeProbes, m.topUps, m.publishFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveReservation records the outcome of one reserve call and, when
// attempts is positive, how many transaction attempts it took.
func (m *Metrics) ObserveReservation(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		m.reservationAttempt.Observe(float64(attempts))
	}
}

// AccountCreated records a newly provisioned account and its probe count.
func (m *Metrics) AccountCreated(probes int) {
	if m == nil {
		return
	}
	m.accounts.WithLabelValues("created").Inc()
	m.shortCodeProbes.Observe(float64(probes))
}

// AccountExisting records a provisioning call that found the account.
func (m *Metrics) AccountExisting() {
	if m == nil {
		return
	}
	m.accounts.WithLabelValues("existing").Inc()
}

// TopUp records a wallet credit.
func (m *Metrics) TopUp() {
	if m == nil {
		return
	}
	m.topUps.Inc()
}

// PublishFailed records an event that was dropped.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}
