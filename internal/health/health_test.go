package health

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMonitorTicksUntilCancelled(t *testing.T) {
	m := &Monitor{Log: zap.NewNop(), Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestMonitorNilMetricsDoesNotPanic(t *testing.T) {
	m := &Monitor{Log: zap.NewNop(), Interval: 2 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	m.Run(ctx)
}
