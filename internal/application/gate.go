package application

import (
	"sync"
	"sync/atomic"
)

// Gate blocks query handling until ingestion has completed. It starts
// closed; MarkReady opens it exactly once.
type Gate struct {
	ready atomic.Bool
	once  sync.Once
	done  chan struct{}
}

// NewGate returns a closed gate.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// MarkReady opens the gate. Further calls are no-ops.
func (g *Gate) MarkReady() {
	g.once.Do(func() {
		g.ready.Store(true)
		close(g.done)
	})
}

// Ready reports whether the gate is open.
func (g *Gate) Ready() bool { return g.ready.Load() }

// Done is closed once the gate opens.
func (g *Gate) Done() <-chan struct{} { return g.done }
