package worker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewContainer returns a container without any worker
func NewContainer() *Container {
	return &Container{}
}

// Container holds the installing, waiting and active workers of the process
// and decides which one controls clients.
type Container struct {
	// lifecycle serializes install and activate events
	lifecycle sync.Mutex

	m          sync.RWMutex
	installing *Worker
	waiting    *Worker
	active     *Worker
	retired    []*Worker
}

// Controller returns the active worker, or nil when no worker controls clients
func (c *Container) Controller() *Worker {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.active
}

// Waiting returns the installed worker waiting to activate
func (c *Container) Waiting() *Worker {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.waiting
}

// Installing returns the worker currently installing
func (c *Container) Installing() *Worker {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.installing
}

// Register installs w. On success w either activates right away (skip
// waiting requested or no active worker) or waits in the installed state.
// A failed install leaves the active worker in control.
func (c *Container) Register(ctx context.Context, w *Worker) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.m.Lock()
	c.installing = w
	c.m.Unlock()

	err := w.Install(ctx)

	c.m.Lock()
	c.installing = nil
	if err != nil {
		c.m.Unlock()
		return err
	}
	if c.waiting != nil {
		c.waiting.retire()
	}
	c.waiting = w
	// SKIP_WAITING sets the flag under c.m while w is still installing
	activate := w.SkipWaitingRequested() || c.active == nil
	c.m.Unlock()

	if activate {
		return c.activateWaiting()
	}
	log.WithField("version", w.Version()).Info("worker installed, waiting to activate")

	return nil
}

// PostMessage delivers a client message to the container
func (c *Container) PostMessage(msg Message) error {
	log.Debugf("received message: %s", msg.Type)

	switch msg.Type {
	case MessageSkipWaiting:
		return c.skipWaiting()
	default:
		return errors.Wrapf(ErrUnknownMessage, "%q", msg.Type)
	}
}

func (c *Container) skipWaiting() error {
	c.m.Lock()
	if c.waiting == nil {
		defer c.m.Unlock()
		if c.installing == nil {
			return ErrNoWaitingWorker
		}
		// Register activates it once install completes
		c.installing.SkipWaiting()
		return nil
	}
	c.m.Unlock()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.Waiting() == nil {
		// Register activated it in the meantime
		return nil
	}

	return c.activateWaiting()
}

// activateWaiting activates the waiting worker and hands it every client.
// The caller must hold the lifecycle lock.
func (c *Container) activateWaiting() error {
	c.m.Lock()
	w := c.waiting
	c.waiting = nil
	c.m.Unlock()
	if w == nil {
		return ErrNoWaitingWorker
	}

	if err := w.Activate(); err != nil {
		return errors.Wrap(err, "failed to activate worker")
	}
	c.claim(w)

	return nil
}

// claim makes w the controller of all clients, the next request is served by w
func (c *Container) claim(w *Worker) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.active != nil && c.active != w {
		old := c.active
		old.retire()
		c.retired = append(c.retired, old)
		go c.reap(old)
	}
	c.active = w
	log.WithField("version", w.Version()).Info("worker controls all clients")
}

// reap forgets a retired worker once its background work is done
func (c *Container) reap(w *Worker) {
	w.Wait()

	c.m.Lock()
	defer c.m.Unlock()
	for i, r := range c.retired {
		if r == w {
			c.retired = append(c.retired[:i], c.retired[i+1:]...)
			return
		}
	}
}

// Close waits for background work of every worker the container has seen
func (c *Container) Close() {
	c.m.RLock()
	workers := append([]*Worker{}, c.retired...)
	if c.active != nil {
		workers = append(workers, c.active)
	}
	c.m.RUnlock()

	for _, w := range workers {
		w.Wait()
	}
}
