// Package workerpool runs CPU heavy jobs on a bounded set of goroutines,
// separate from the goroutines serving requests.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

var (
	ErrClosed      = errors.New("worker pool closed")
	ErrWorkerPanic = errors.New("worker panicked")
)

type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// mu orders wg.Add in Run against wg.Wait in Close.
	mu     sync.RWMutex
	closed bool

	inFlight prometheus.Gauge
}

// New returns a pool running at most size jobs at a time. inFlight may be nil.
func New(size int, inFlight prometheus.Gauge) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(size)),
		inFlight: inFlight,
	}
}

type result[T any] struct {
	val T
	err error
}

// Run hands fn to the pool and waits for its result. If ctx ends while
// waiting for a free slot the job never starts. If ctx ends after the job
// started, Run returns ctx.Err() and the job keeps running to completion;
// its result is dropped.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return zero, ErrClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return zero, err
	}

	done := make(chan result[T], 1)
	p.track(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.track(-1)
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("%w: %v", ErrWorkerPanic, r)}
			}
		}()
		v, err := fn()
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops accepting jobs and waits for the running and queued ones.
// It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) track(delta float64) {
	if p.inFlight != nil {
		p.inFlight.Add(delta)
	}
}
