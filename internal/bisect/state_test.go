package bisect

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"testing"
)

func running(all, rng, active []string) State {
	return State{Status: StatusRunning, All: all, Range: rng, Active: active}
}

func TestGood_Narrows(t *testing.T) {
	st := running(
		[]string{"node1", "node2", "node3"},
		[]string{"node1", "node2", "node3"},
		[]string{"node1"},
	)
	next, err := st.Good()
	if err != nil {
		t.Fatal(err)
	}
	if next.Status != StatusRunning {
		t.Fatalf("Status = %q, want running", next.Status)
	}
	if !reflect.DeepEqual(next.Range, []string{"node2", "node3"}) {
		t.Fatalf("Range = %v", next.Range)
	}
	if !reflect.DeepEqual(next.Active, []string{"node3"}) {
		t.Fatalf("Active = %v", next.Active)
	}
}

func TestGood_Resolves(t *testing.T) {
	st := running(
		[]string{"node1", "node2", "node3"},
		[]string{"node1", "node2", "node3"},
		[]string{"node1", "node2"},
	)
	next, err := st.Good()
	if err != nil {
		t.Fatal(err)
	}
	if next.Status != StatusResolved {
		t.Fatalf("Status = %q, want resolved", next.Status)
	}
	if !reflect.DeepEqual(next.Range, []string{"node3"}) {
		t.Fatalf("Range = %v", next.Range)
	}
	if len(next.Active) != 0 {
		t.Fatalf("Active = %v, want empty", next.Active)
	}
	culprit, ok := next.Culprit()
	if !ok || culprit != "node3" {
		t.Fatalf("Culprit = %q, %v", culprit, ok)
	}
}

func TestBad_Narrows(t *testing.T) {
	st := running(
		[]string{"node1", "node2", "node3"},
		[]string{"node1", "node2", "node3"},
		[]string{"node1", "node2"},
	)
	next, err := st.Bad()
	if err != nil {
		t.Fatal(err)
	}
	if next.Status != StatusRunning {
		t.Fatalf("Status = %q, want running", next.Status)
	}
	if !reflect.DeepEqual(next.Range, []string{"node1", "node2"}) {
		t.Fatalf("Range = %v", next.Range)
	}
	if !reflect.DeepEqual(next.Active, []string{"node2"}) {
		t.Fatalf("Active = %v", next.Active)
	}
}

func TestBad_Resolves(t *testing.T) {
	st := running(
		[]string{"node1", "node2", "node3"},
		[]string{"node1", "node2", "node3"},
		[]string{"node1"},
	)
	next, err := st.Bad()
	if err != nil {
		t.Fatal(err)
	}
	if next.Status != StatusResolved {
		t.Fatalf("Status = %q, want resolved", next.Status)
	}
	if !reflect.DeepEqual(next.Range, []string{"node1"}) {
		t.Fatalf("Range = %v", next.Range)
	}
}

func TestTransitions_RequireRunning(t *testing.T) {
	for _, status := range []string{StatusIdle, StatusResolved} {
		st := State{Status: status, All: []string{"a"}, Range: []string{"a"}}
		if _, err := st.Good(); !errors.Is(err, ErrNoSession) {
			t.Errorf("Good from %s: err = %v, want ErrNoSession", status, err)
		}
		if _, err := st.Bad(); !errors.Is(err, ErrNoSession) {
			t.Errorf("Bad from %s: err = %v, want ErrNoSession", status, err)
		}
	}
}

func TestGood_ExhaustedRange(t *testing.T) {
	// Active covering the whole range plus a good verdict is a
	// contradiction: the fault cannot be anywhere.
	st := running(
		[]string{"a", "b"},
		[]string{"a", "b"},
		[]string{"a", "b"},
	)
	if _, err := st.Good(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

// The canonical five-node walk: bad, good, bad isolates "b".
func TestScenario_FiveNodes(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e"}
	st := running(all, all, all)

	st, err := st.Bad()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.Range, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("after bad: Range = %v", st.Range)
	}
	if !reflect.DeepEqual(st.Active, []string{"c", "d", "e"}) {
		t.Fatalf("after bad: Active = %v", st.Active)
	}

	st, err = st.Good()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.Range, []string{"a", "b"}) {
		t.Fatalf("after good: Range = %v", st.Range)
	}
	if !reflect.DeepEqual(st.Active, []string{"b"}) {
		t.Fatalf("after good: Active = %v", st.Active)
	}

	st, err = st.Bad()
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != StatusResolved {
		t.Fatalf("Status = %q, want resolved", st.Status)
	}
	if culprit, _ := st.Culprit(); culprit != "b" {
		t.Fatalf("culprit = %q, want b", culprit)
	}
}

// Every reachable state keeps active ⊆ range ⊆ all, and any verdict
// sequence resolves within ceil(log2(N)) decisions.
func TestConvergenceAndInvariants(t *testing.T) {
	for n := 1; n <= 33; n++ {
		all := make([]string, n)
		for i := range all {
			all[i] = fmt.Sprintf("node%02d", i)
		}
		// The culprit's position drives the good/bad answers.
		for _, culpritIdx := range []int{0, n / 2, n - 1} {
			culprit := all[culpritIdx]
			st := running(all, all, all)
			// Initial split, as if the known-bad all-enabled probe was judged.
			st, err := st.Bad()
			if err != nil {
				t.Fatal(err)
			}
			budget := int(math.Ceil(math.Log2(float64(n)))) + 1
			steps := 0
			for st.Status == StatusRunning {
				checkSubsets(t, st)
				if steps++; steps > budget {
					t.Fatalf("n=%d culprit=%s: no resolution after %d steps", n, culprit, steps)
				}
				if contains(st.Active, culprit) {
					st, err = st.Bad()
				} else {
					st, err = st.Good()
				}
				if err != nil {
					t.Fatal(err)
				}
			}
			if got, _ := st.Culprit(); got != culprit {
				t.Fatalf("n=%d: culprit = %q, want %q", n, got, culprit)
			}
			if len(st.Active) != 0 {
				t.Fatalf("resolved state has active nodes: %v", st.Active)
			}
		}
	}
}

// Identical inputs must produce bit-identical state sequences: the
// floor-division upper-half split is part of the persisted contract.
func TestDeterminism(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e", "f", "g"}
	run := func() []State {
		st := running(all, all, all)
		var seq []State
		var err error
		for _, verdict := range []bool{true, false, true} {
			if verdict {
				st, err = st.Bad()
			} else {
				st, err = st.Good()
			}
			if err != nil {
				t.Fatal(err)
			}
			seq = append(seq, st)
		}
		return seq
	}
	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay diverged:\n%v\n%v", first, second)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), StateFileName)
	original := State{
		Status:     StatusRunning,
		All:        []string{"node1", "node2", "node3"},
		Range:      []string{"node2", "node3"},
		Active:     []string{"node3"},
		LaunchArgs: []string{"--port", "8190"},
	}
	if err := original.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Fatalf("loaded = %+v, want %+v", loaded, original)
	}
}

func TestLoad_MissingFileIsIdle(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), StateFileName))
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != StatusIdle {
		t.Fatalf("Status = %q, want idle", st.Status)
	}
	if len(st.All) != 0 || len(st.Range) != 0 || len(st.Active) != 0 {
		t.Fatalf("missing file should load as empty idle state: %+v", st)
	}
}

func checkSubsets(t *testing.T, st State) {
	t.Helper()
	inAll := toSet(st.All)
	inRange := toSet(st.Range)
	for _, n := range st.Range {
		if !inAll[n] {
			t.Fatalf("range member %q not in all", n)
		}
	}
	for _, n := range st.Active {
		if !inRange[n] {
			t.Fatalf("active member %q not in range", n)
		}
	}
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
