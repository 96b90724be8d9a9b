package controller

import "github.com/mesh-intelligence/journal/internal/logger"

// Consumer receives the outcome of an asynchronous controller call. Exactly
// one of Success or Fail is called, on the controller's worker goroutine.
type Consumer[T any] interface {
	Success(value T)
	Fail(err error)
}

// Success is the value passed to consumers of calls that return nothing.
type Success struct{}

// ConsumerFuncs adapts plain functions to Consumer. Nil fields ignore the
// outcome.
type ConsumerFuncs[T any] struct {
	OnSuccess func(value T)
	OnFail    func(err error)
}

func (f ConsumerFuncs[T]) Success(value T) {
	if f.OnSuccess != nil {
		f.OnSuccess(value)
	}
}

func (f ConsumerFuncs[T]) Fail(err error) {
	if f.OnFail != nil {
		f.OnFail(err)
	}
}

// LoggingConsumer logs failures as errors under the operation name and
// passes successes to OnSuccess. OnFail, if set, runs after logging.
type LoggingConsumer[T any] struct {
	Logger    logger.Logger
	Operation string
	OnSuccess func(value T)
	OnFail    func(err error)
}

func (c LoggingConsumer[T]) Success(value T) {
	if c.OnSuccess != nil {
		c.OnSuccess(value)
	}
}

func (c LoggingConsumer[T]) Fail(err error) {
	if c.Logger != nil {
		c.Logger.Errorw("failed to "+c.Operation, "err", err)
	}
	if c.OnFail != nil {
		c.OnFail(err)
	}
}
