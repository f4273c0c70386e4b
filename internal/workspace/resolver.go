package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/comfydev/comfyctl/internal/config"
)

// MarkerDir is the installation marker: a workspace is any directory
// containing a ComfyUI checkout under this name.
const MarkerDir = "ComfyUI"

// Source records which precedence rule produced a workspace.
type Source string

const (
	SourceSpecified  Source = "specified"
	SourceRecent     Source = "recent"
	SourceCurrentDir Source = "current dir"
	SourceDefault    Source = "default"
	SourceFallback   Source = "fallback"
)

// Directives are the mutually exclusive per-invocation workspace flags.
type Directives struct {
	Path      string // --workspace
	UseRecent bool   // --recent
	UseHere   bool   // --here
}

func (d Directives) count() int {
	n := 0
	if d.Path != "" {
		n++
	}
	if d.UseRecent {
		n++
	}
	if d.UseHere {
		n++
	}
	return n
}

// ConfigStore is the subset of the config store the resolver needs.
type ConfigStore interface {
	Get(key string) string
	Set(key, value string) error
}

// RemoteProber checks whether a directory sits inside a recognized
// ComfyUI checkout, returning the checkout root when it does.
type RemoteProber interface {
	CheckoutRoot(dir string) (string, bool)
}

// Workspace is the single resolved installation directory.
type Workspace struct {
	Path   string
	Source Source
}

// AppDir returns the ComfyUI checkout inside the workspace.
func (w Workspace) AppDir() string {
	return filepath.Join(w.Path, MarkerDir)
}

// StateFile returns the path of a workspace-scoped state file.
func (w Workspace) StateFile(name string) string {
	return filepath.Join(w.Path, name)
}

// ErrConflictingDirectives is returned when more than one of
// --workspace/--recent/--here is given. Never resolved by priority.
var ErrConflictingDirectives = errors.New("--workspace, --recent, and --here are mutually exclusive")

// ErrNoWorkspace is returned by Find when every rule in the chain has
// been exhausted without producing an installed workspace.
var ErrNoWorkspace = errors.New("no ComfyUI workspace found (run 'comfyctl install' to create one)")

// InvalidPathError reports an explicitly requested workspace that does
// not qualify. An explicit path is never silently substituted.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("workspace %s: %s", e.Path, e.Reason)
}

// Resolver picks exactly one workspace per invocation. All collaborators
// are explicit so the decision is testable without process-level state.
type Resolver struct {
	Config   ConfigStore
	Git      RemoteProber
	CWD      string
	Fallback string // OS-specific last-resort directory, created on demand
}

// Resolve returns the workspace an operating command should use,
// creating the fallback directory when the whole chain falls through.
func (r *Resolver) Resolve(d Directives) (Workspace, error) {
	return r.resolve(d, true)
}

// Find is the probe-only variant: it never creates anything and returns
// ErrNoWorkspace when nothing on disk qualifies.
func (r *Resolver) Find(d Directives) (Workspace, error) {
	return r.resolve(d, false)
}

func (r *Resolver) resolve(d Directives, createFallback bool) (Workspace, error) {
	if d.count() > 1 {
		return Workspace{}, ErrConflictingDirectives
	}

	// Explicit path. Wrong is wrong, no fallback.
	if d.Path != "" {
		abs, err := absPath(d.Path)
		if err != nil {
			return Workspace{}, err
		}
		if err := checkMarker(abs); err != nil {
			return Workspace{}, err
		}
		return Workspace{Path: abs, Source: SourceSpecified}, nil
	}

	// --recent. Same don't-substitute policy as an explicit path.
	if d.UseRecent {
		recent := r.Config.Get(config.KeyRecentWorkspace)
		if recent == "" {
			return Workspace{}, &InvalidPathError{Path: "(recent)", Reason: "no recent workspace has been recorded"}
		}
		if err := checkMarker(recent); err != nil {
			return Workspace{}, err
		}
		return Workspace{Path: recent, Source: SourceRecent}, nil
	}

	// --here. Marker in cwd, or cwd is itself a checkout.
	if d.UseHere {
		if hasMarker(r.CWD) {
			return Workspace{Path: r.CWD, Source: SourceCurrentDir}, nil
		}
		if root, ok := r.Git.CheckoutRoot(r.CWD); ok {
			return Workspace{Path: filepath.Dir(root), Source: SourceCurrentDir}, nil
		}
		return Workspace{}, &InvalidPathError{Path: r.CWD, Reason: "current directory is not a ComfyUI workspace or checkout"}
	}

	// No directive: ordered fallback chain.
	if def := r.Config.Get(config.KeyDefaultWorkspace); def != "" && hasMarker(def) {
		return Workspace{Path: def, Source: SourceDefault}, nil
	}
	if hasMarker(r.CWD) {
		return Workspace{Path: r.CWD, Source: SourceCurrentDir}, nil
	}
	if root, ok := r.Git.CheckoutRoot(r.CWD); ok {
		return Workspace{Path: filepath.Dir(root), Source: SourceCurrentDir}, nil
	}
	if recent := r.Config.Get(config.KeyRecentWorkspace); recent != "" && hasMarker(recent) {
		return Workspace{Path: recent, Source: SourceRecent}, nil
	}

	if !createFallback {
		if hasMarker(r.Fallback) {
			return Workspace{Path: r.Fallback, Source: SourceFallback}, nil
		}
		return Workspace{}, ErrNoWorkspace
	}
	if err := os.MkdirAll(r.Fallback, 0755); err != nil {
		return Workspace{}, fmt.Errorf("creating fallback workspace %s: %w", r.Fallback, err)
	}
	return Workspace{Path: r.Fallback, Source: SourceFallback}, nil
}

// RecordUse persists the path of a workspace an operation actually used.
// Called after a successful operation, never during resolution.
func (r *Resolver) RecordUse(path string) error {
	abs, err := absPath(path)
	if err != nil {
		return err
	}
	return r.Config.Set(config.KeyRecentWorkspace, abs)
}

// DefaultFallbackDir returns the hardcoded OS-specific workspace used
// when nothing else qualifies: ~/comfy on Linux, ~/Documents/comfy on
// macOS and Windows.
func DefaultFallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch runtime.GOOS {
	case "darwin", "windows":
		return filepath.Join(home, "Documents", "comfy")
	default:
		return filepath.Join(home, "comfy")
	}
}

func hasMarker(path string) bool {
	info, err := os.Stat(filepath.Join(path, MarkerDir))
	return err == nil && info.IsDir()
}

func checkMarker(path string) error {
	if _, err := os.Stat(path); err != nil {
		return &InvalidPathError{Path: path, Reason: "directory does not exist"}
	}
	if !hasMarker(path) {
		return &InvalidPathError{Path: path, Reason: fmt.Sprintf("no %s installation found inside", MarkerDir)}
	}
	return nil
}

// absPath expands a leading ~ and makes the path absolute.
func absPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], string(filepath.Separator)))
	}
	return filepath.Abs(path)
}
