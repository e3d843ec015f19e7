// Package testutil provides an in-memory aggregates.TxRunner for service tests.
package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/travelog-backend/internal/data/aggregates"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
)

// Event is one step observed by a FakeTx.
type Event string

const (
	EventBegin    Event = "begin"
	EventCommit   Event = "commit"
	EventRollback Event = "rollback"
)

// FakeTx runs the unit of work without a database and records what happened.
// Errors registered with FailOn are returned at that step; a failure on
// EventCommit turns the commit into a rollback.
type FakeTx struct {
	mu       sync.Mutex
	failures map[Event]error
	events   []Event
}

var _ aggregates.TxRunner = (*FakeTx)(nil)

func NewFakeTx() *FakeTx {
	return &FakeTx{failures: map[Event]error{}}
}

// FailOn makes the next and all later transactions fail at ev.
func (f *FakeTx) FailOn(ev Event, err error) *FakeTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = map[Event]error{}
	}
	f.failures[ev] = err
	return f
}

func (f *FakeTx) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if err := f.step(EventBegin); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
			f.step(EventRollback)
			return err
		}
	}
	f.mu.Lock()
	commitErr := f.failures[EventCommit]
	f.mu.Unlock()
	if commitErr != nil {
		f.step(EventRollback)
		return commitErr
	}
	return f.step(EventCommit)
}

func (f *FakeTx) step(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev == EventBegin {
		if err := f.failures[EventBegin]; err != nil {
			return err
		}
	}
	f.events = append(f.events, ev)
	return nil
}

// Count reports how many times ev occurred.
func (f *FakeTx) Count(ev Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == ev {
			n++
		}
	}
	return n
}

// Events returns a copy of the recorded sequence.
func (f *FakeTx) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}
