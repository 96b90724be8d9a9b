// Package controller gives concurrent callers asynchronous access to a
// journal manager. Every call is queued and run on a single worker
// goroutine, and its outcome is delivered to a Consumer.
package controller

import (
	"errors"
	"io"
	"sync"

	"github.com/mesh-intelligence/journal/internal/journal"
	"github.com/mesh-intelligence/journal/internal/logger"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// ErrClosed is delivered to consumers of calls made after Close.
var ErrClosed = errors.New("controller is closed")

// Controller owns a Manager. Consumers run on the worker goroutine; they
// may queue further calls but must not block waiting for them, or call Close.
type Controller struct {
	m    *journal.Manager
	lggr logger.Logger

	mu     sync.Mutex
	closed bool
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
}

// New starts the worker goroutine. The controller takes ownership of m.
func New(m *journal.Manager, lggr logger.Logger) *Controller {
	if lggr == nil {
		lggr = logger.Nop()
	}
	c := &Controller{
		m:    m,
		lggr: lggr.Named("DataController"),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go c.run()
	return c
}

// run executes queued jobs in order until the controller is closed and the
// queue is empty.
func (c *Controller) run() {
	defer close(c.done)
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			<-c.wake
			continue
		}
		job := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.mu.Unlock()
		job()
	}
}

// submit queues job without blocking, so consumers running on the worker
// can make further calls.
func (c *Controller) submit(job func(), fail func(error)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fail(ErrClosed)
		return
	}
	c.queue = append(c.queue, job)
	c.mu.Unlock()
	c.signal()
}

func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// call runs fn on the worker and reports its result to consumer.
func call[T any](c *Controller, consumer Consumer[T], fn func() (T, error)) {
	c.submit(func() {
		v, err := fn()
		if err != nil {
			consumer.Fail(err)
			return
		}
		consumer.Success(v)
	}, consumer.Fail)
}

// GetExperimentByID loads an experiment and makes it active.
func (c *Controller) GetExperimentByID(id string, consumer Consumer[*types.Experiment]) {
	call(c, consumer, func() (*types.Experiment, error) {
		return c.m.GetExperimentByID(id)
	})
}

// UpdateExperiment records changes made to the in-memory copy of the
// active experiment with the given id.
func (c *Controller) UpdateExperiment(id string, consumer Consumer[Success]) {
	call(c, consumer, func() (Success, error) {
		return Success{}, c.m.UpdateExperimentByID(id)
	})
}

// CreateExperiment creates an experiment and makes it active.
func (c *Controller) CreateExperiment(title string, consumer Consumer[*types.Experiment]) {
	call(c, consumer, func() (*types.Experiment, error) {
		return c.m.NewExperiment(title)
	})
}

// SetTitle renames an experiment.
func (c *Controller) SetTitle(id, title string, consumer Consumer[Success]) {
	call(c, consumer, func() (Success, error) {
		return Success{}, c.m.SetTitle(id, title)
	})
}

// SetArchived archives or restores an experiment.
func (c *Controller) SetArchived(id string, archived bool, consumer Consumer[Success]) {
	call(c, consumer, func() (Success, error) {
		return Success{}, c.m.SetArchived(id, archived)
	})
}

// AddAsset copies r into the experiment's assets under name. The consumer
// receives the path relative to the experiment directory.
func (c *Controller) AddAsset(id, name string, r io.Reader, consumer Consumer[string]) {
	call(c, consumer, func() (string, error) {
		return c.m.AddAsset(id, name, r)
	})
}

// Check inspects, and with fix set repairs, every stored experiment.
func (c *Controller) Check(fix bool, consumer Consumer[[]journal.CheckResult]) {
	call(c, consumer, func() ([]journal.CheckResult, error) {
		return c.m.Check(fix)
	})
}

// DeleteExperiment removes an experiment and its files.
func (c *Controller) DeleteExperiment(id string, consumer Consumer[Success]) {
	call(c, consumer, func() (Success, error) {
		return Success{}, c.m.DeleteExperiment(id)
	})
}

// ListOverviews lists experiment overviews, most recently used first.
func (c *Controller) ListOverviews(filter types.OverviewFilter, consumer Consumer[[]types.ExperimentOverview]) {
	call(c, consumer, func() ([]types.ExperimentOverview, error) {
		return c.m.ListOverviews(filter)
	})
}

// SetCoverImage copies r into the experiment's assets under name and uses
// it as the overview image. The consumer receives the overview image path.
func (c *Controller) SetCoverImage(id, name string, r io.Reader, consumer Consumer[string]) {
	call(c, consumer, func() (string, error) {
		rel, err := c.m.AddAsset(id, name, r)
		if err != nil {
			return "", err
		}
		if err := c.m.SetCoverImage(id, rel); err != nil {
			return "", err
		}
		exp, err := c.m.GetExperimentByID(id)
		if err != nil {
			return "", err
		}
		return exp.ImagePath(), nil
	})
}

// Close stops accepting calls, waits for queued calls to finish and closes
// the manager.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.signal()

	<-c.done
	c.lggr.Debugw("controller closed")
	return c.m.Close()
}
