package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.ObserveOperation("diff", time.Now(), true)
	m.ObserveOperation("diff", time.Now(), false)
	m.ObserveOperation("diff", time.Now(), false)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("diff", "success")); got != 1 {
		t.Errorf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("diff", "failure")); got != 2 {
		t.Errorf("expected 2 failures, got %v", got)
	}
}

func TestRegisteredTypesGauge(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.SetRegisteredTypes(12)
	if got := testutil.ToFloat64(m.registered); got != 12 {
		t.Errorf("expected 12, got %v", got)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := New(reg)
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadyRegisteredError, got %v", err)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("x", time.Now(), true)
	m.ObserveGraph(3)
	m.ObserveDiff(3)
	m.SetRegisteredTypes(1)
}
