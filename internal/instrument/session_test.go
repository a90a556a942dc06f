package instrument

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession()

	if s.State() != StateDisconnected {
		t.Fatalf("initial state = %s, want disconnected", s.State())
	}

	if err := s.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect() error = %v", err)
	}
	if s.State() != StateConnecting {
		t.Errorf("state = %s, want connecting", s.State())
	}

	// A second connect attempt while connecting is rejected.
	if err := s.BeginConnect(); !errors.Is(err, ErrDeviceNotReady) {
		t.Errorf("BeginConnect() while connecting error = %v, want ErrDeviceNotReady", err)
	}

	s.Connected()
	if err := s.CheckReady(); err != nil {
		t.Errorf("CheckReady() error = %v after Connected()", err)
	}

	s.Disconnect()
	if err := s.CheckReady(); !errors.Is(err, ErrDeviceNotReady) {
		t.Errorf("CheckReady() error = %v after Disconnect(), want ErrDeviceNotReady", err)
	}
}

func TestSession_RepeatedFaultsTripToFaulted(t *testing.T) {
	s := NewSession()
	if err := s.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect() error = %v", err)
	}
	s.Connected()

	s.CommandFailed()
	s.CommandFailed()
	if s.State() != StateConnected {
		t.Fatalf("state = %s after 2 faults, want connected", s.State())
	}

	if got := s.CommandFailed(); got != StateFaulted {
		t.Errorf("state = %s after 3 faults, want faulted", got)
	}
}

func TestSession_SuccessResetsFaultCount(t *testing.T) {
	s := NewSession()
	if err := s.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect() error = %v", err)
	}
	s.Connected()

	s.CommandFailed()
	s.CommandFailed()
	s.CommandOK()
	s.CommandFailed()
	s.CommandFailed()

	if s.State() != StateConnected {
		t.Errorf("state = %s, want connected (fault count reset)", s.State())
	}
}

func TestSession_FaultedRequiresReconnect(t *testing.T) {
	s := NewSession()
	if err := s.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect() error = %v", err)
	}
	s.Connected()
	s.Fault()

	if err := s.CheckReady(); !errors.Is(err, ErrDeviceNotReady) {
		t.Errorf("CheckReady() error = %v on faulted session", err)
	}

	// Reconnect path: disconnect then connect again.
	s.Disconnect()
	if err := s.BeginConnect(); err != nil {
		t.Errorf("BeginConnect() after fault recovery error = %v", err)
	}
}

func TestGate_SecondCallerRejectedBusy(t *testing.T) {
	g := NewGate(20 * time.Millisecond)
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}

	err := g.Acquire(ctx)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("second Acquire() error = %v, want ErrBusy", err)
	}

	g.Release()
	if err := g.Acquire(ctx); err != nil {
		t.Errorf("Acquire() after Release() error = %v", err)
	}
}

func TestGate_WaiterAdmittedWhenFreed(t *testing.T) {
	g := NewGate(time.Second)
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Acquire(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	g.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("waiting Acquire() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not admitted after Release()")
	}
}

func TestGate_CancelledWhileWaiting(t *testing.T) {
	g := NewGate(time.Second)

	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Acquire(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestGate_NeverInterleaves(t *testing.T) {
	g := NewGate(time.Second)
	ctx := context.Background()

	inFlight := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(ctx); err != nil {
				return
			}
			defer g.Release()

			mu.Lock()
			inFlight++
			if inFlight > 1 {
				t.Error("more than one command in flight")
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
	}
	wg.Wait()
}
