package service

import (
	"context"
	"testing"
	"time"

	"github.com/hourstack/hourstack/internal/domain/usage"
)

func TestCycleService_RunResetsDueClients(t *testing.T) {
	f := newFakeStore()
	usageSvc := NewUsageService(f, nil, 0, nil, nil)
	svc := NewCycleService(f, usageSvc, nil, nil)
	ctx := context.Background()

	due := f.addClient(40, "")
	if _, err := usageSvc.Append(ctx, usage.AppendRequest{ClientID: due.ID, Hours: 7}); err != nil {
		t.Fatalf("append: %v", err)
	}

	future := f.addClient(40, "")
	f.mu.Lock()
	f.clients[future.ID].CycleStart = today().AddDate(0, 0, 10)
	f.clients[future.ID].HoursUsedMonth = 5
	f.mu.Unlock()

	ids, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ids) != 1 || ids[0] != due.ID {
		t.Fatalf("expected only the due client reset, got %v", ids)
	}

	gotDue, _ := f.GetClient(ctx, due.ID)
	if gotDue.HoursUsedMonth != 0 || !gotDue.CycleStart.Equal(today()) {
		t.Fatalf("due client not reset: %+v", gotDue)
	}
	gotFuture, _ := f.GetClient(ctx, future.ID)
	if gotFuture.HoursUsedMonth != 5 {
		t.Fatalf("future client must be untouched, got %v", gotFuture.HoursUsedMonth)
	}
}

func TestCycleService_RunEmptySweep(t *testing.T) {
	f := newFakeStore()
	svc := NewCycleService(f, NewUsageService(f, nil, 0, nil, nil), nil, nil)

	ids, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no resets, got %v", ids)
	}
}

func TestCycleService_SchedulerStopsOnCancel(t *testing.T) {
	f := newFakeStore()
	svc := NewCycleService(f, NewUsageService(f, nil, 0, nil, nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	svc.StartScheduler(ctx, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()
	// No assertion beyond not panicking and not leaking past cancel.
	time.Sleep(20 * time.Millisecond)
}
