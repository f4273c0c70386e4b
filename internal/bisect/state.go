package bisect

import (
	"errors"
)

const (
	StatusIdle     = "idle"
	StatusRunning  = "running"
	StatusResolved = "resolved"
)

var (
	// ErrNoSession is returned when good/bad is attempted without a running session.
	ErrNoSession = errors.New("no bisect session running")

	// ErrAlreadyRunning is returned when start is attempted over a live session.
	ErrAlreadyRunning = errors.New("a bisect session is already running")

	// ErrNoNodes is returned when start finds no custom nodes to search.
	ErrNoNodes = errors.New("no custom nodes found to bisect")

	// ErrExhausted is returned when a verdict empties the candidate range,
	// meaning the fault is not in any node under test.
	ErrExhausted = errors.New("bisect range exhausted: the fault does not appear to be caused by any node under test")
)

// State is one bisect session's full search position. Transitions return
// new values; a State is never mutated in place.
type State struct {
	Status string `json:"status"`

	// All nodes in the session, fixed at start.
	All []string `json:"all"`

	// Range is the candidate set still known to contain the bad node.
	Range []string `json:"range"`

	// Active is the subset of Range currently enabled for testing.
	Active []string `json:"active"`

	// LaunchArgs are passed to ComfyUI on every probe relaunch.
	LaunchArgs []string `json:"launch_args"`
}

// Good records that the active set did not reproduce the problem, so the
// bad node is in Range minus Active.
func (s State) Good() (State, error) {
	if s.Status != StatusRunning {
		return State{}, ErrNoSession
	}
	return s.narrow(subtract(s.Range, s.Active))
}

// Bad records that the active set reproduced the problem, so the bad node
// is within Active.
func (s State) Bad() (State, error) {
	if s.Status != StatusRunning {
		return State{}, ErrNoSession
	}
	return s.narrow(append([]string(nil), s.Active...))
}

// narrow resolves a single-candidate range, or keeps running with the
// upper half of the new range as the next probe set. The floor-division
// split must not change: persisted sessions replay against it.
func (s State) narrow(newRange []string) (State, error) {
	if len(newRange) == 0 {
		return State{}, ErrExhausted
	}
	if len(newRange) == 1 {
		return State{
			Status:     StatusResolved,
			All:        s.All,
			Range:      newRange,
			Active:     []string{},
			LaunchArgs: s.LaunchArgs,
		}, nil
	}
	return State{
		Status:     StatusRunning,
		All:        s.All,
		Range:      newRange,
		Active:     newRange[len(newRange)/2:],
		LaunchArgs: s.LaunchArgs,
	}, nil
}

// Culprit returns the diagnosed node once the session is resolved.
func (s State) Culprit() (string, bool) {
	if s.Status == StatusResolved && len(s.Range) == 1 {
		return s.Range[0], true
	}
	return "", false
}

// Inactive returns All minus Active: the nodes a probe disables.
func (s State) Inactive() []string {
	return subtract(s.All, s.Active)
}

// subtract returns the members of a not present in b, preserving a's order.
func subtract(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, s := range b {
		drop[s] = true
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if !drop[s] {
			out = append(out, s)
		}
	}
	return out
}
