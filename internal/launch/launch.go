package launch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// PythonBin picks the interpreter used to run ComfyUI and cm-cli.
// COMFYCTL_PYTHON overrides; otherwise the first of python3/python on PATH.
func PythonBin() string {
	if v := os.Getenv("COMFYCTL_PYTHON"); v != "" {
		return v
	}
	for _, candidate := range []string{"python3", "python"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return "python3"
}

// Run launches ComfyUI in the foreground and blocks until it exits.
// ComfyUI signals a restart request by creating a .reboot sentinel next
// to its session file; the loop consumes the sentinel and relaunches.
func Run(ctx context.Context, appDir string, extra []string, sessionDir string) error {
	if _, err := os.Stat(filepath.Join(appDir, "main.py")); err != nil {
		return fmt.Errorf("ComfyUI is not installed at %s (run 'comfyctl install')", appDir)
	}

	session := filepath.Join(sessionDir, uuid.NewString())
	rebootPath := session + ".reboot"
	env := append(os.Environ(),
		"__COMFY_CLI_SESSION__="+session,
		"PYTHONENCODING=utf-8",
	)

	for {
		cmd := exec.CommandContext(ctx, PythonBin(), append([]string{"main.py"}, extra...)...)
		cmd.Dir = appDir
		cmd.Env = env
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		runErr := cmd.Run()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := os.Stat(rebootPath); errors.Is(err, fs.ErrNotExist) {
			code, err := exitCode(runErr)
			if err != nil {
				return err
			}
			if code != 0 {
				return fmt.Errorf("ComfyUI exited with code %d", code)
			}
			return nil
		}
		if err := os.Remove(rebootPath); err != nil {
			return fmt.Errorf("clearing reboot sentinel: %w", err)
		}
	}
}

// exitCode extracts an exit code from a command error.
// Returns (code, nil) for ExitError, (0, err) for other errors, (0, nil) for nil.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
