// SPDX-License-Identifier: MPL-2.0

// Package psychotropic runs cues, the unit of concurrent work, on a
// bounded pool. Cues declare the cues they wait for; because a wait-for
// may only point at an earlier cue in the list, the dependency graph is
// a DAG and list order is already a topological order.
package psychotropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"igor-cli/pkg/igorfile"
)

// DefaultPoolSize bounds how many cues run at once.
const DefaultPoolSize = 5

// State is the lifecycle position of one cue.
type State string

const (
	StatePending   State = "pending"
	StateWaiting   State = "waiting"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is one a cue never leaves.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

var (
	// ErrCycleOrForwardRef is the sentinel wrapped by ScheduleError when
	// a wait-for points at a cue later in the list.
	ErrCycleOrForwardRef = errors.New("cycle or forward reference")

	// ErrDuplicateCue is the sentinel wrapped by ScheduleError when two
	// cues share a name.
	ErrDuplicateCue = errors.New("duplicate cue name")
)

type (
	// RunFunc is a cue body. It receives the results of the cues it
	// waited for, so it can observe a failed predecessor.
	RunFunc func(ctx context.Context, preds []Result) error

	// Cue is one schedulable unit as declared by the caller.
	Cue struct {
		Name    igorfile.Identifier
		WaitFor []igorfile.Identifier
		Run     RunFunc
	}

	// Result is the terminal outcome of one cue.
	Result struct {
		Name  igorfile.Identifier
		State State
		Err   error
	}

	// ScheduleError reports why a cue list failed validation.
	ScheduleError struct {
		Cue  igorfile.Identifier
		Ref  igorfile.Identifier
		Err  error
	}

	// Schedule is a validated cue list ready to run.
	Schedule struct {
		cues []*trackedCue
	}

	trackedCue struct {
		name    igorfile.Identifier
		waitFor []igorfile.Identifier
		run     RunFunc

		mu    sync.Mutex
		state State
		err   error
		done  chan struct{}
	}
)

// Error implements the error interface.
func (e *ScheduleError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("cue %q: wait-for %q: %v", e.Cue, e.Ref, e.Err)
	}
	return fmt.Sprintf("cue %q: %v", e.Cue, e.Err)
}

// Unwrap exposes the sentinel for errors.Is() checks.
func (e *ScheduleError) Unwrap() error {
	return e.Err
}

// New validates the cue list and builds a schedule. A name appearing
// twice or a wait-for pointing at a later cue is rejected. A wait-for
// naming a cue that appears nowhere in the list is satisfied by
// inserting an empty cue at its first reference.
func New(cues []Cue) (*Schedule, error) {
	declared := map[igorfile.Identifier]int{}
	for i, c := range cues {
		if _, dup := declared[c.Name]; dup {
			return nil, &ScheduleError{Cue: c.Name, Err: ErrDuplicateCue}
		}
		declared[c.Name] = i
	}

	s := &Schedule{}
	seen := map[igorfile.Identifier]struct{}{}
	for i, c := range cues {
		for _, ref := range c.WaitFor {
			if _, ok := seen[ref]; ok {
				continue
			}
			if at, exists := declared[ref]; exists {
				if at >= i {
					return nil, &ScheduleError{Cue: c.Name, Ref: ref, Err: ErrCycleOrForwardRef}
				}
				continue
			}
			s.cues = append(s.cues, newTrackedCue(Cue{Name: ref}))
			seen[ref] = struct{}{}
		}
		s.cues = append(s.cues, newTrackedCue(c))
		seen[c.Name] = struct{}{}
	}
	return s, nil
}

func newTrackedCue(c Cue) *trackedCue {
	run := c.Run
	if run == nil {
		run = func(context.Context, []Result) error { return nil }
	}
	return &trackedCue{
		name:    c.Name,
		waitFor: c.WaitFor,
		run:     run,
		state:   StatePending,
		done:    make(chan struct{}),
	}
}

// Run executes the schedule on a pool of poolSize concurrent cues and
// returns one result per cue in list order. A cue failure is recorded,
// never propagated as a Run error; cancellation moves every cue that has
// not started to Cancelled.
func (s *Schedule) Run(ctx context.Context, poolSize int) []Result {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	byName := make(map[igorfile.Identifier]*trackedCue, len(s.cues))
	for _, c := range s.cues {
		byName[c.name] = c
	}

	var g errgroup.Group
	g.SetLimit(poolSize)
	for _, c := range s.cues {
		g.Go(func() error {
			c.execute(ctx, byName)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(s.cues))
	for _, c := range s.cues {
		results = append(results, c.result())
	}
	return results
}

// States returns the current state of every cue, keyed by name, for
// progress reporting while a run is in flight.
func (s *Schedule) States() map[igorfile.Identifier]State {
	out := make(map[igorfile.Identifier]State, len(s.cues))
	for _, c := range s.cues {
		c.mu.Lock()
		out[c.name] = c.state
		c.mu.Unlock()
	}
	return out
}

func (c *trackedCue) execute(ctx context.Context, byName map[igorfile.Identifier]*trackedCue) {
	defer close(c.done)

	c.setState(StateWaiting, nil)
	preds := make([]Result, 0, len(c.waitFor))
	for _, ref := range c.waitFor {
		pred := byName[ref]
		select {
		case <-pred.done:
			preds = append(preds, pred.result())
		case <-ctx.Done():
			c.setState(StateCancelled, ctx.Err())
			return
		}
	}

	if err := ctx.Err(); err != nil {
		c.setState(StateCancelled, err)
		return
	}

	c.setState(StateRunning, nil)
	if err := c.run(ctx, preds); err != nil {
		slog.Warn("cue failed", "cue", string(c.name), "error", err)
		c.setState(StateFailed, err)
		return
	}
	c.setState(StateCompleted, nil)
}

func (c *trackedCue) setState(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.err = err
	c.mu.Unlock()
}

func (c *trackedCue) result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{Name: c.name, State: c.state, Err: c.err}
}
