package bisect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// mockManager records calls and returns configurable results.
type mockManager struct {
	nodes    []string
	listErr  error
	applyErr error
	calls    []string
}

func (m *mockManager) ListEnabled(ctx context.Context) ([]string, error) {
	m.calls = append(m.calls, "list")
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.nodes, nil
}

func (m *mockManager) Enable(ctx context.Context, names []string) error {
	m.calls = append(m.calls, fmt.Sprintf("enable %v", names))
	return m.applyErr
}

func (m *mockManager) Disable(ctx context.Context, names []string) error {
	m.calls = append(m.calls, fmt.Sprintf("disable %v", names))
	return m.applyErr
}

func newTestEngine(t *testing.T, mgr *mockManager) *Engine {
	t.Helper()
	return &Engine{
		StateFile: filepath.Join(t.TempDir(), StateFileName),
		Manager:   mgr,
	}
}

func TestStart_NewSession(t *testing.T) {
	mgr := &mockManager{nodes: []string{"a", "b", "c"}}
	eng := newTestEngine(t, mgr)

	st, err := eng.Start(context.Background(), nil, []string{"--port", "8190"})
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != StatusRunning {
		t.Fatalf("Status = %q, want running", st.Status)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(st.All, want) || !reflect.DeepEqual(st.Range, want) || !reflect.DeepEqual(st.Active, want) {
		t.Fatalf("start state = %+v", st)
	}

	// State must be on disk for the next invocation.
	loaded, err := Load(eng.StateFile)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, st) {
		t.Fatalf("persisted = %+v, want %+v", loaded, st)
	}

	// Everything active, nothing to disable.
	if !reflect.DeepEqual(mgr.calls, []string{"list", "enable [a b c]"}) {
		t.Fatalf("calls = %v", mgr.calls)
	}
}

func TestStart_ExcludesPinned(t *testing.T) {
	mgr := &mockManager{nodes: []string{"a", "b", "c", "d"}}
	eng := newTestEngine(t, mgr)

	st, err := eng.Start(context.Background(), []string{"b", "d"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.All, []string{"a", "c"}) {
		t.Fatalf("All = %v, want pinned nodes excluded", st.All)
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	mgr := &mockManager{nodes: []string{"a", "b"}}
	eng := newTestEngine(t, mgr)

	if _, err := eng.Start(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Start(context.Background(), nil, nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}
}

func TestStart_NoNodes(t *testing.T) {
	eng := newTestEngine(t, &mockManager{})
	if _, err := eng.Start(context.Background(), nil, nil); !errors.Is(err, ErrNoNodes) {
		t.Fatalf("err = %v, want ErrNoNodes", err)
	}
}

func TestStart_AllNodesPinned(t *testing.T) {
	eng := newTestEngine(t, &mockManager{nodes: []string{"a"}})
	if _, err := eng.Start(context.Background(), []string{"a"}, nil); !errors.Is(err, ErrNoNodes) {
		t.Fatalf("err = %v, want ErrNoNodes", err)
	}
}

func TestBad_AppliesProbeSet(t *testing.T) {
	mgr := &mockManager{nodes: []string{"a", "b", "c", "d", "e"}}
	eng := newTestEngine(t, mgr)

	if _, err := eng.Start(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	mgr.calls = nil

	st, err := eng.Bad(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.Active, []string{"c", "d", "e"}) {
		t.Fatalf("Active = %v", st.Active)
	}
	if !reflect.DeepEqual(mgr.calls, []string{"enable [c d e]", "disable [a b]"}) {
		t.Fatalf("calls = %v", mgr.calls)
	}
}

func TestVerdict_WithoutSession(t *testing.T) {
	eng := newTestEngine(t, &mockManager{})
	if _, err := eng.Good(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Good: err = %v, want ErrNoSession", err)
	}
	if _, err := eng.Bad(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Bad: err = %v, want ErrNoSession", err)
	}
}

func TestResolve_ReenablesAllAndResets(t *testing.T) {
	mgr := &mockManager{nodes: []string{"a", "b"}}
	eng := newTestEngine(t, mgr)

	if _, err := eng.Start(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	// b is the culprit: probe the upper half, which reproduces it.
	if _, err := eng.Bad(context.Background()); err != nil {
		t.Fatal(err)
	}
	mgr.calls = nil

	st, err := eng.Bad(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if culprit, ok := st.Culprit(); !ok || culprit != "b" {
		t.Fatalf("culprit = %q, %v", culprit, ok)
	}

	// Resolution re-enables the full session set and removes the file.
	if !reflect.DeepEqual(mgr.calls, []string{"enable [a b]"}) {
		t.Fatalf("calls = %v", mgr.calls)
	}
	if _, err := os.Stat(eng.StateFile); !os.IsNotExist(err) {
		t.Fatal("state file should be gone after resolution")
	}
}

func TestReset_Idempotent(t *testing.T) {
	mgr := &mockManager{nodes: []string{"a", "b", "c"}}
	eng := newTestEngine(t, mgr)

	if _, err := eng.Start(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	mgr.calls = nil

	existed, err := eng.Reset(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !existed {
		t.Fatal("first reset should report an existing session")
	}
	if !reflect.DeepEqual(mgr.calls, []string{"enable [a b c]"}) {
		t.Fatalf("calls = %v", mgr.calls)
	}

	mgr.calls = nil
	existed, err = eng.Reset(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Fatal("second reset should find nothing")
	}
	if len(mgr.calls) != 0 {
		t.Fatalf("second reset applied side effects: %v", mgr.calls)
	}
}

func TestStep_StatePersistedBeforeApply(t *testing.T) {
	// A manager failure after the state write must not lose progress:
	// the persisted state already reflects the narrowed range.
	mgr := &mockManager{nodes: []string{"a", "b", "c", "d"}}
	eng := newTestEngine(t, mgr)

	if _, err := eng.Start(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	mgr.applyErr = errors.New("cm-cli unreachable")

	if _, err := eng.Bad(context.Background()); err == nil {
		t.Fatal("expected apply failure to propagate")
	}
	loaded, err := Load(eng.StateFile)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Active, []string{"c", "d"}) {
		t.Fatalf("persisted Active = %v, want narrowed set", loaded.Active)
	}
}

func TestStart_ListFailure(t *testing.T) {
	eng := newTestEngine(t, &mockManager{listErr: errors.New("boom")})
	if _, err := eng.Start(context.Background(), nil, nil); err == nil {
		t.Fatal("expected list failure to propagate")
	}
}
