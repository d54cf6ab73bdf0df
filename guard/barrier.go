// guard/barrier.go
package guard

import (
	"context"
	"sync"
)

// ContextID names one of the two execution contexts.
type ContextID uint8

const (
	ContextNet ContextID = iota // core 0: network / API side
	ContextRT                   // core 1: real-time hardware side
)

// Barrier is the one-shot startup rendezvous between the two execution
// contexts. Each side calls Ready exactly once after finishing its
// one-time initialization; Wait blocks until both have. There is no
// timeout: if one side never becomes ready the waiter stalls forever,
// which is preferred over steady-state work starting with half the
// system missing.
type Barrier struct {
	once [2]sync.Once
	ch   [2]chan struct{}
}

func NewBarrier() *Barrier {
	return &Barrier{ch: [2]chan struct{}{make(chan struct{}), make(chan struct{})}}
}

// Ready marks the given context as initialized. Idempotent; the flag is
// monotonic for the life of the process.
func (b *Barrier) Ready(id ContextID) {
	b.once[id].Do(func() { close(b.ch[id]) })
}

// ReadyCh exposes the readiness signal of one context, for select use.
func (b *Barrier) ReadyCh(id ContextID) <-chan struct{} { return b.ch[id] }

// Wait blocks until both contexts are ready. Intentionally unbounded.
func (b *Barrier) Wait() {
	<-b.ch[ContextNet]
	<-b.ch[ContextRT]
}

// WaitContext is Wait for steady-state tasks that must still unwind on
// process shutdown. It returns false if ctx ended first.
func (b *Barrier) WaitContext(ctx context.Context) bool {
	for _, ch := range b.ch {
		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
