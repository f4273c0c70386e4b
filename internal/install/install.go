package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/comfydev/comfyctl/internal/gitx"
	"github.com/comfydev/comfyctl/internal/workspace"
)

const (
	comfyURL   = "https://github.com/comfyanonymous/ComfyUI"
	managerURL = "https://github.com/ltdrdata/ComfyUI-Manager"
)

// Options configures an install/update run.
type Options struct {
	Workspace string // workspace root; the checkout goes in <workspace>/ComfyUI
	SkipDeps  bool   // skip the Python dependency install step
}

// Run clones or updates ComfyUI and ComfyUI-Manager inside the workspace,
// then hands dependency resolution to uv. All real work happens in the
// external tools; this only sequences them.
func Run(ctx context.Context, opts Options) error {
	appDir := filepath.Join(opts.Workspace, workspace.MarkerDir)

	if err := cloneOrPull(ctx, comfyURL, appDir); err != nil {
		return err
	}

	managerDir := filepath.Join(appDir, "custom_nodes", "ComfyUI-Manager")
	if err := cloneOrPull(ctx, managerURL, managerDir); err != nil {
		return err
	}

	if opts.SkipDeps {
		return nil
	}
	return installDeps(ctx, appDir)
}

func cloneOrPull(ctx context.Context, url, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		fmt.Printf("Updating %s\n", dir)
		return gitx.Pull(ctx, dir)
	}
	fmt.Printf("Cloning %s into %s\n", url, dir)
	return gitx.Clone(ctx, url, dir)
}

// installDeps delegates Python dependency installation to uv.
func installDeps(ctx context.Context, appDir string) error {
	if _, err := exec.LookPath("uv"); err != nil {
		return fmt.Errorf("uv not found in PATH (install it from https://docs.astral.sh/uv/ or re-run with --skip-deps)")
	}
	cmd := exec.CommandContext(ctx, "uv", "pip", "install", "-r", "requirements.txt")
	cmd.Dir = appDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("installing ComfyUI dependencies: %w", err)
	}
	return nil
}
