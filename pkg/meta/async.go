// SPDX-License-Identifier: MPL-2.0

package meta

import (
	"context"
	"errors"
)

// ErrNoResult is returned by FromChan when the channel closes without a value.
var ErrNoResult = errors.New("channel closed without a result")

type (
	// Async is a deferred computation. Repository wrappers normalize every
	// supported method shape to an Async.
	Async[T any] func(ctx context.Context) (T, error)

	// Result is one value or error delivered over a channel.
	Result[T any] struct {
		Value T
		Err   error
	}
)

// Value returns an Async that yields v.
func Value[T any](v T) Async[T] {
	return func(context.Context) (T, error) { return v, nil }
}

// Resolved returns an Async that yields v and err.
func Resolved[T any](v T, err error) Async[T] {
	return func(context.Context) (T, error) { return v, err }
}

// Fail returns an Async that yields err.
func Fail[T any](err error) Async[T] {
	return func(context.Context) (T, error) {
		var zero T
		return zero, err
	}
}

// FromChan returns an Async that waits for the first Result on ch.
func FromChan[T any](ch <-chan Result[T]) Async[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case r, ok := <-ch:
			if !ok {
				return zero, ErrNoResult
			}
			return r.Value, r.Err
		}
	}
}

// Await runs a with ctx.
func (a Async[T]) Await(ctx context.Context) (T, error) { return a(ctx) }
