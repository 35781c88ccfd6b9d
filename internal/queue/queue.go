// Package queue serializes tasks per key while running different keys in
// parallel.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanic wraps a panic recovered from a task.
var ErrPanic = errors.New("queue: task panicked")

// Registry maps each key to the last task scheduled for it.
type Registry struct {
	mu    sync.Mutex
	tails map[string]*link
}

type link struct {
	done chan struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tails: make(map[string]*link)}
}

// Len returns the number of keys with a pending or running task.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tails)
}

// Future is the eventual result of an enqueued task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the task has settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the task settles or ctx ends. Abandoning the wait does
// not cancel the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Enqueue schedules task to start after every task previously enqueued
// under key has settled, whether it succeeded, failed or panicked.
func Enqueue[T any](r *Registry, key string, task func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	l := &link{done: f.done}

	r.mu.Lock()
	prev := r.tails[key]
	r.tails[key] = l
	r.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev.done
		}
		f.val, f.err = run(task)

		r.mu.Lock()
		if r.tails[key] == l {
			delete(r.tails, key)
		}
		r.mu.Unlock()
		close(f.done)
	}()
	return f
}

func run[T any](task func() (T, error)) (val T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			val, err = zero, fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return task()
}
