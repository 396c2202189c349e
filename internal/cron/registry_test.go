package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	reconcile := &stubJob{name: "payment-source-reconcile"}
	retention := &stubJob{name: "outbox-retention"}
	registry := NewRegistry(reconcile, nil, retention)

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != reconcile || jobs[1] != retention {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "outbox-retention"})
	if err := registry.Register(&stubJob{name: "outbox-retention"}, time.Hour); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
	if err := registry.Register(nil, 0); err == nil {
		t.Fatalf("expected nil job to be rejected")
	}
}

func TestRegistryDueHonorsPeriod(t *testing.T) {
	reconcile := &stubJob{name: "payment-source-reconcile"}
	retention := &stubJob{name: "outbox-retention"}
	registry := NewRegistry(reconcile)
	if err := registry.Register(retention, time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if due := registry.Due(start); len(due) != 2 {
		t.Fatalf("expected both jobs due on first tick, got %d", len(due))
	}

	due := registry.Due(start.Add(5 * time.Minute))
	if len(due) != 1 || due[0] != reconcile {
		t.Fatalf("expected only reconcile after 5m, got %v", due)
	}

	if due := registry.Due(start.Add(time.Hour)); len(due) != 2 {
		t.Fatalf("expected retention due again after an hour, got %d", len(due))
	}
}
