package manager

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Client shells out to the cm-cli script that ships with ComfyUI-Manager
// inside the workspace. Every call is one subprocess; a non-zero exit is
// fatal for the invocation.
type Client struct {
	AppDir  string // the ComfyUI checkout
	TempDir string // scratch dir for per-call session files
	Python  string // python interpreter; defaults to "python3"
}

// Script returns the cm-cli entry point inside the workspace.
func (c *Client) Script() string {
	return filepath.Join(c.AppDir, "custom_nodes", "ComfyUI-Manager", "cm-cli.py")
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	script := c.Script()
	if _, err := os.Stat(script); err != nil {
		return "", fmt.Errorf("ComfyUI-Manager not found at %s (run 'comfyctl install' first)", script)
	}

	python := c.Python
	if python == "" {
		python = "python3"
	}

	cmd := exec.CommandContext(ctx, python, append([]string{script}, args...)...)
	cmd.Dir = c.AppDir
	cmd.Env = append(os.Environ(),
		"__COMFY_CLI_SESSION__="+filepath.Join(c.TempDir, uuid.NewString()),
		"COMFYUI_PATH="+c.AppDir,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("cm-cli %s: %w", args[0], err)
	}
	return out.String(), nil
}

// ListEnabled returns the currently enabled custom node names, in the
// order cm-cli reports them.
func (c *Client) ListEnabled(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "simple-show", "enabled")
	if err != nil {
		return nil, err
	}
	return parseNodeList(out), nil
}

// Enable turns the named nodes on. A nil/empty set is a no-op.
func (c *Client) Enable(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := c.run(ctx, append([]string{"enable"}, names...)...)
	return err
}

// Disable turns the named nodes off. A nil/empty set is a no-op.
func (c *Client) Disable(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := c.run(ctx, append([]string{"disable"}, names...)...)
	return err
}

// parseNodeList extracts node names from simple-show output. cm-cli
// prefixes cache refreshes with FETCH DATA lines; those are noise.
func parseNodeList(out string) []string {
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "FETCH DATA") {
			continue
		}
		names = append(names, line)
	}
	return names
}
