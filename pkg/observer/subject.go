// Package observer provides a small generic fan-out of events to observers.
package observer

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Observer receives published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// ObserverFunc adapts a plain function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) error

// Notify calls f.
func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Publisher publishes events to downstream observers.
type Publisher[T any] interface {
	Publish(context.Context, T) error
}

// Subject keeps a list of observers and notifies each of them in registration order.
type Subject[T any] struct {
	observers []Observer[T]
	mu        sync.RWMutex
}

var _ Publisher[struct{}] = (*Subject[struct{}])(nil)

// NewSubject constructs a Subject with optional initial observers.
func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	s := &Subject[T]{}
	s.Attach(observers...)
	return s
}

// Attach registers observers. Nil observers are ignored.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range observers {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Len reports the number of attached observers.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Publish notifies every observer, even after a failure, and returns all errors combined.
func (s *Subject[T]) Publish(ctx context.Context, evt T) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	observers := append([]Observer[T](nil), s.observers...)
	s.mu.RUnlock()

	var err error
	for _, o := range observers {
		err = multierr.Append(err, o.Notify(ctx, evt))
	}
	return err
}
