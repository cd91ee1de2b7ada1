package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type comp struct {
	runErr   error
	block    chan struct{}
	shutdown atomic.Int32
}

func (c *comp) Run() error {
	if c.block != nil {
		<-c.block
		return nil
	}
	return c.runErr
}

func (c *comp) Shutdown(ctx context.Context) error {
	if c.shutdown.Add(1) == 1 && c.block != nil {
		close(c.block)
	}
	return nil
}

func TestRunStopsAllOnComponentError(t *testing.T) {
	boom := errors.New("listen failed")
	failing := &comp{runErr: boom}
	waiting := &comp{block: make(chan struct{})}
	a := NewWith(waiting, failing)
	a.SetShutdownTimeout(0)

	if err := a.Run(); !errors.Is(err, boom) {
		t.Fatalf("run got %v want %v", err, boom)
	}
	if waiting.shutdown.Load() != 1 || failing.shutdown.Load() != 1 {
		t.Fatalf("shutdown calls got %d/%d want 1/1", waiting.shutdown.Load(), failing.shutdown.Load())
	}
	if a.timeout != DefaultShutdownTimeout {
		t.Fatalf("timeout got %v", a.timeout)
	}
}
