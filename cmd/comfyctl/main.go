package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/comfydev/comfyctl/internal/bisect"
	"github.com/comfydev/comfyctl/internal/config"
	"github.com/comfydev/comfyctl/internal/docs"
	"github.com/comfydev/comfyctl/internal/gitx"
	"github.com/comfydev/comfyctl/internal/install"
	"github.com/comfydev/comfyctl/internal/launch"
	"github.com/comfydev/comfyctl/internal/lockfile"
	"github.com/comfydev/comfyctl/internal/manager"
	"github.com/comfydev/comfyctl/internal/ux"
	"github.com/comfydev/comfyctl/internal/workspace"
	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:        "comfyctl",
		Usage:       "Install, launch, and manage a ComfyUI workspace",
		Description: "Run 'comfyctl docs' for documentation on workspaces, custom node bisect, and configuration.",
		Commands: []*cli.Command{
			installCmd(),
			launchCmd(),
			whichCmd(),
			setDefaultCmd(),
			envCmd(),
			nodeCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

// env bundles the per-invocation collaborators every command needs.
type env struct {
	store    *config.Store
	resolver *workspace.Resolver
}

func newEnv() (*env, error) {
	dir, err := config.DefaultDir()
	if err != nil {
		return nil, err
	}
	store, err := config.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return &env{
		store: store,
		resolver: &workspace.Resolver{
			Config:   store,
			Git:      gitx.Prober{},
			CWD:      cwd,
			Fallback: workspace.DefaultFallbackDir(),
		},
	}, nil
}

// workspaceFlags are the mutually exclusive resolution directives
// accepted by every workspace-affecting command.
func workspaceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "workspace", Usage: "Use the workspace at `PATH`"},
		&cli.BoolFlag{Name: "recent", Usage: "Use the most recently used workspace"},
		&cli.BoolFlag{Name: "here", Usage: "Use the current directory as the workspace"},
	}
}

func directives(cmd *cli.Command) workspace.Directives {
	return workspace.Directives{
		Path:      cmd.String("workspace"),
		UseRecent: cmd.Bool("recent"),
		UseHere:   cmd.Bool("here"),
	}
}

func installCmd() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Install or update ComfyUI and ComfyUI-Manager in a workspace",
		Flags: append(workspaceFlags(),
			&cli.BoolFlag{Name: "skip-deps", Usage: "Skip the Python dependency install step"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			ws, err := e.resolver.Resolve(directives(cmd))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			if err := install.Run(ctx, install.Options{
				Workspace: ws.Path,
				SkipDeps:  cmd.Bool("skip-deps"),
			}); err != nil {
				return err
			}
			if err := e.resolver.RecordUse(ws.Path); err != nil {
				return err
			}
			fmt.Printf("\n%sComfyUI installed in %s%s\n", ux.Green, ws.Path, ux.Reset)
			return nil
		},
	}
}

func launchCmd() *cli.Command {
	return &cli.Command{
		Name:      "launch",
		Usage:     "Launch ComfyUI in the foreground",
		ArgsUsage: "[-- EXTRA_ARGS...]",
		Flags:     workspaceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			ws, err := e.resolver.Find(directives(cmd))
			if err != nil {
				return err
			}

			extra := cmd.Args().Slice()
			if len(extra) == 0 && ws.Source == workspace.SourceDefault {
				if extras := e.store.Get(config.KeyDefaultLaunchExtras); extras != "" {
					extra = strings.Fields(extras)
				}
			}

			ux.LaunchBanner(ws.AppDir())
			// Bookkeeping only: a failed record must not block the launch.
			if err := e.resolver.RecordUse(ws.Path); err != nil {
				ux.Warn("could not record recent workspace: %v", err)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()
			return launch.Run(ctx, ws.AppDir(), extra, e.store.TempDir())
		},
	}
}

func whichCmd() *cli.Command {
	return &cli.Command{
		Name:  "which",
		Usage: "Print the workspace a command would operate on",
		Flags: workspaceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			ws, err := e.resolver.Find(directives(cmd))
			if err != nil {
				return err
			}
			ux.WorkspaceLine(ws.Path, string(ws.Source))
			return nil
		},
	}
}

func setDefaultCmd() *cli.Command {
	return &cli.Command{
		Name:      "set-default",
		Usage:     "Set the default workspace",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "launch-extras", Usage: "Extra launch args applied when launching the default workspace"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("path argument is required")
			}
			e, err := newEnv()
			if err != nil {
				return err
			}
			// Reuse explicit-path validation: a wrong default is rejected, not stored.
			ws, err := e.resolver.Find(workspace.Directives{Path: path})
			if err != nil {
				return err
			}
			if err := e.store.Set(config.KeyDefaultWorkspace, ws.Path); err != nil {
				return err
			}
			if extras := strings.TrimSpace(cmd.String("launch-extras")); extras != "" {
				if err := e.store.Set(config.KeyDefaultLaunchExtras, extras); err != nil {
					return err
				}
			}
			fmt.Printf("Default workspace set to %s\n", ws.Path)
			return nil
		},
	}
}

func envCmd() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Show the persisted comfyctl configuration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			ux.RenderEnv(e.store)
			return nil
		},
	}
}

func nodeCmd() *cli.Command {
	return &cli.Command{
		Name:  "node",
		Usage: "Manage custom nodes",
		Commands: []*cli.Command{
			nodeScanCmd(),
			bisectCmd(),
		},
	}
}

func nodeScanCmd() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Snapshot the custom node inventory into " + lockfile.FileName,
		Flags: workspaceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			ws, err := e.resolver.Find(directives(cmd))
			if err != nil {
				return err
			}
			doc, err := lockfile.Scan(ws.AppDir())
			if err != nil {
				return err
			}
			path := ws.StateFile(lockfile.FileName)
			if err := doc.Save(path); err != nil {
				return err
			}
			if err := e.resolver.RecordUse(ws.Path); err != nil {
				return err
			}
			fmt.Printf("Scanned %d custom nodes into %s\n", len(doc.CustomNodes), path)
			return nil
		},
	}
}

func bisectCmd() *cli.Command {
	return &cli.Command{
		Name:  "bisect",
		Usage: "Binary-search custom nodes for the one breaking ComfyUI",
		Commands: []*cli.Command{
			bisectStartCmd(),
			bisectVerdictCmd("good", "Mark the active set good: the problem is outside it",
				(*bisect.Engine).Good),
			bisectVerdictCmd("bad", "Mark the active set bad: the problem is within it",
				(*bisect.Engine).Bad),
			bisectResetCmd(),
		},
	}
}

// newBisectEngine resolves the workspace and wires the engine to the
// cm-cli manager inside it.
func newBisectEngine(cmd *cli.Command) (*env, workspace.Workspace, *bisect.Engine, error) {
	e, err := newEnv()
	if err != nil {
		return nil, workspace.Workspace{}, nil, err
	}
	ws, err := e.resolver.Find(directives(cmd))
	if err != nil {
		return nil, workspace.Workspace{}, nil, err
	}
	eng := &bisect.Engine{
		StateFile: ws.StateFile(bisect.StateFileName),
		Manager: &manager.Client{
			AppDir:  ws.AppDir(),
			TempDir: e.store.TempDir(),
			Python:  launch.PythonBin(),
		},
	}
	return e, ws, eng, nil
}

func bisectStartCmd() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a bisect session over every enabled custom node",
		ArgsUsage: "[-- EXTRA_ARGS...]",
		Flags: append(workspaceFlags(),
			&cli.StringFlag{Name: "pinned-nodes", Usage: "Comma-separated nodes to keep enabled and exclude from the search"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, ws, eng, err := newBisectEngine(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			pinned := splitCommaList(cmd.String("pinned-nodes"))
			st, err := eng.Start(ctx, pinned, cmd.Args().Slice())
			if err != nil {
				return err
			}

			fmt.Println("Bisect session started.")
			ux.BisectRound(st)
			if len(pinned) > 0 {
				ux.PinnedNodes(pinned)
			}
			fmt.Println("\nLaunch ComfyUI, test, then run 'comfyctl node bisect bad' or 'good'.")
			return e.resolver.RecordUse(ws.Path)
		},
	}
}

func bisectVerdictCmd(name, usage string, move func(*bisect.Engine, context.Context) (bisect.State, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: workspaceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, ws, eng, err := newBisectEngine(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			st, err := move(eng, ctx)
			if err != nil {
				return err
			}
			if err := e.resolver.RecordUse(ws.Path); err != nil {
				return err
			}

			if culprit, ok := st.Culprit(); ok {
				ux.Culprit(culprit)
				fmt.Println("All nodes re-enabled; session reset.")
				return nil
			}

			// Relaunch so the user can test the new probe set. State is
			// already persisted: interrupting here loses nothing.
			ux.BisectRound(st)
			ux.LaunchBanner(ws.AppDir())
			return launch.Run(ctx, ws.AppDir(), st.LaunchArgs, e.store.TempDir())
		},
	}
}

func bisectResetCmd() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Abandon the bisect session and re-enable every node",
		Flags: workspaceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, _, eng, err := newBisectEngine(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			existed, err := eng.Reset(ctx)
			if err != nil {
				return err
			}
			if existed {
				fmt.Println("Bisect session reset.")
			} else {
				fmt.Println("No bisect session to reset.")
			}
			return nil
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'comfyctl docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
