package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.ObserveReservation(OutcomeSuccess, 1)
	m.AccountCreated(3)
	m.AccountExisting()
	m.TopUp()
	m.PublishFailed()
}

// counter returns the value of the counter series name{label=value}.
func counter(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("test", reg)
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveReservation(OutcomeSuccess, 2)
	m.ObserveReservation(OutcomeSuccess, 1)
	m.ObserveReservation(OutcomeConflict, 5)
	m.ObserveReservation(OutcomeReplayed, 0)
	m.AccountCreated(1)
	m.AccountExisting()
	m.AccountExisting()

	if got := counter(t, reg, "test_reservations_total", "outcome", OutcomeSuccess); got != 2 {
		t.Fatalf("success = %v, want 2", got)
	}
	if got := counter(t, reg, "test_accounts_provisioned_total", "result", "existing"); got != 2 {
		t.Fatalf("existing = %v, want 2", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == "test_reservation_attempts" {
			if n := f.GetMetric()[0].GetHistogram().GetSampleCount(); n != 3 {
				t.Fatalf("attempt samples = %d, want 3", n)
			}
		}
	}

	if _, err := New("test", reg); err == nil {
		t.Fatal("registering twice should fail")
	}
}
