package bisect

import (
	"context"
	"fmt"
	"strings"
)

// NodeManager applies enable/disable side effects and lists the node
// universe. Satisfied by manager.Client; tests substitute a mock.
type NodeManager interface {
	ListEnabled(ctx context.Context) ([]string, error)
	Enable(ctx context.Context, names []string) error
	Disable(ctx context.Context, names []string) error
}

// Engine drives one bisect session across short-lived invocations. Each
// call loads the persisted state, applies one transition, persists the
// result, and then pushes the enable/disable side effect to the manager.
//
// The state file is not locked: concurrent invocations race and the last
// writer wins. A single interactive user is the intended operator.
type Engine struct {
	StateFile string
	Manager   NodeManager
}

// Start begins a new session over every currently enabled node, minus the
// pinned names, which stay enabled and are never toggled.
func (e *Engine) Start(ctx context.Context, pinned []string, launchArgs []string) (State, error) {
	cur, err := Load(e.StateFile)
	if err != nil {
		return State{}, fmt.Errorf("loading bisect state: %w", err)
	}
	if cur.Status != StatusIdle {
		return State{}, ErrAlreadyRunning
	}

	names, err := e.Manager.ListEnabled(ctx)
	if err != nil {
		return State{}, fmt.Errorf("listing custom nodes: %w", err)
	}
	names = subtract(names, pinned)
	if len(names) == 0 {
		return State{}, ErrNoNodes
	}

	st := State{
		Status:     StatusRunning,
		All:        names,
		Range:      names,
		Active:     names,
		LaunchArgs: launchArgs,
	}
	if err := st.Save(e.StateFile); err != nil {
		return State{}, fmt.Errorf("saving bisect state: %w", err)
	}
	if err := e.apply(ctx, st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Good narrows the search after a probe that did not reproduce the problem.
func (e *Engine) Good(ctx context.Context) (State, error) {
	return e.step(ctx, State.Good)
}

// Bad narrows the search after a probe that reproduced the problem.
func (e *Engine) Bad(ctx context.Context) (State, error) {
	return e.step(ctx, State.Bad)
}

// step runs one load/transition/persist/apply cycle. State is persisted
// before side effects so an interrupted relaunch keeps search progress.
// A transition into resolved skips the persist and instead re-enables
// everything through Reset; the caller reports the culprit.
func (e *Engine) step(ctx context.Context, move func(State) (State, error)) (State, error) {
	cur, err := Load(e.StateFile)
	if err != nil {
		return State{}, fmt.Errorf("loading bisect state: %w", err)
	}
	next, err := move(cur)
	if err != nil {
		return State{}, err
	}

	if next.Status == StatusResolved {
		if _, err := e.Reset(ctx); err != nil {
			return next, err
		}
		return next, nil
	}

	if err := next.Save(e.StateFile); err != nil {
		return State{}, fmt.Errorf("saving bisect state: %w", err)
	}
	if err := e.apply(ctx, next); err != nil {
		return State{}, err
	}
	return next, nil
}

// Reset re-enables every node in the session and deletes the state file.
// Returns whether a session existed. Safe to call repeatedly: resetting
// an idle session is a no-op with the same outcome.
func (e *Engine) Reset(ctx context.Context) (bool, error) {
	cur, err := Load(e.StateFile)
	if err != nil {
		return false, fmt.Errorf("loading bisect state: %w", err)
	}
	if cur.Status == StatusIdle && len(cur.All) == 0 {
		return false, nil
	}
	if len(cur.All) > 0 {
		if err := e.Manager.Enable(ctx, cur.All); err != nil {
			return true, fmt.Errorf("re-enabling nodes: %w", err)
		}
	}
	if err := Remove(e.StateFile); err != nil {
		return true, fmt.Errorf("removing bisect state: %w", err)
	}
	return true, nil
}

// apply makes the manager match the state: Active enabled, the rest of
// All disabled. A manager failure is fatal for the invocation; nodes
// already toggled stay toggled; there is no rollback, reset recovers.
func (e *Engine) apply(ctx context.Context, st State) error {
	if len(st.Active) > 0 {
		if err := e.Manager.Enable(ctx, st.Active); err != nil {
			return fmt.Errorf("enabling nodes %s: %w", strings.Join(st.Active, ", "), err)
		}
	}
	if inactive := st.Inactive(); len(inactive) > 0 {
		if err := e.Manager.Disable(ctx, inactive); err != nil {
			return fmt.Errorf("disabling nodes %s: %w", strings.Join(inactive, ", "), err)
		}
	}
	return nil
}
