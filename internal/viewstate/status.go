// Package viewstate adapts repository operations into read models with an
// explicit operation status. Containers never return errors: a failed
// operation is logged and reported through Status.
package viewstate

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	}
	return "idle"
}

// Status is the state of the most recent operation. Message is set only in
// the error phase.
type Status struct {
	Phase   Phase
	Message string
}

func Idle() Status                 { return Status{Phase: PhaseIdle} }
func Loading() Status              { return Status{Phase: PhaseLoading} }
func Success() Status              { return Status{Phase: PhaseSuccess} }
func Failed(message string) Status { return Status{Phase: PhaseError, Message: message} }

func (s Status) IsLoading() bool { return s.Phase == PhaseLoading }
func (s Status) IsError() bool   { return s.Phase == PhaseError }

func (s Status) String() string {
	if s.Phase == PhaseError {
		return "error: " + s.Message
	}
	return s.Phase.String()
}

// container holds what every state container shares: a lifetime scoped
// context, background workers and a change signal
type container struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	changes chan struct{}
	logger  *zap.Logger
}

func newContainer(parent context.Context, logger *zap.Logger) container {
	ctx, cancel := context.WithCancel(parent)
	return container{
		ctx:     ctx,
		cancel:  cancel,
		changes: make(chan struct{}, 1),
		logger:  logger,
	}
}

// Changes signals after each state change. Signals are coalesced, so
// a slow reader sees at least the latest state on its next Snapshot.
func (c *container) Changes() <-chan struct{} {
	return c.changes
}

func (c *container) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *container) goFollow(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// Close cancels every running operation and stream and waits for the
// background workers to stop
func (c *container) Close() {
	c.cancel()
	c.wg.Wait()
}
