package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotARepo is returned when a path is not inside a git work tree.
var ErrNotARepo = errors.New("not a git repository")

// Canonical origin URLs of a ComfyUI checkout. Remote membership against
// this list is how a directory is recognized as "the application itself".
var comfyOriginURLs = map[string]bool{
	"git@github.com:comfyanonymous/ComfyUI.git":    true,
	"git@github.com:drip-art/comfy.git":            true,
	"https://github.com/comfyanonymous/ComfyUI.git": true,
	"https://github.com/drip-art/ComfyUI.git":       true,
	"https://github.com/comfyanonymous/ComfyUI":     true,
	"https://github.com/drip-art/ComfyUI":           true,
}

// Discover walks up from dir looking for a .git entry and returns the
// repository root. A .git regular file (worktree/submodule) counts.
func Discover(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	current := abs
	for {
		if info, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			if info.IsDir() || info.Mode().IsRegular() {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotARepo
		}
		current = parent
	}
}

// RemoteURLs returns every configured remote URL of the repository
// containing dir. Returns ErrNotARepo when dir is outside any work tree.
func RemoteURLs(dir string) ([]string, error) {
	root, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("git", "config", "--get-regexp", `^remote\..*\.url$`)
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		// git exits 1 when the regexp matches nothing: a repo with no remotes.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("reading git remotes in %s: %w", root, err)
	}
	return parseRemoteConfig(out.String()), nil
}

// parseRemoteConfig extracts URLs from `git config --get-regexp` output,
// one "remote.<name>.url <url>" pair per line.
func parseRemoteConfig(out string) []string {
	var urls []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if len(fields) == 2 && fields[1] != "" {
			urls = append(urls, fields[1])
		}
	}
	return urls
}

// isComfyOrigin reports whether any URL matches the canonical allowlist.
func isComfyOrigin(urls []string) bool {
	for _, u := range urls {
		if comfyOriginURLs[u] {
			return true
		}
	}
	return false
}

// IsComfyCheckout reports whether dir is inside a ComfyUI checkout and
// returns the checkout root when it is.
func IsComfyCheckout(dir string) (string, bool) {
	root, err := Discover(dir)
	if err != nil {
		return "", false
	}
	urls, err := RemoteURLs(root)
	if err != nil {
		return "", false
	}
	if isComfyOrigin(urls) {
		return root, true
	}
	return "", false
}

// Prober adapts the package functions to the workspace resolver's
// collaborator interface.
type Prober struct{}

// CheckoutRoot implements workspace.RemoteProber.
func (Prober) CheckoutRoot(dir string) (string, bool) {
	return IsComfyCheckout(dir)
}

// Clone clones url into dest, streaming git's output to the terminal.
func Clone(ctx context.Context, url, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", url, dest)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone %s: %w", url, err)
	}
	return nil
}

// Pull fast-forwards the repository at dir.
func Pull(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "pull", "--ff-only")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git pull in %s: %w", dir, err)
	}
	return nil
}
