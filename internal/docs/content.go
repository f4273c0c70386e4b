package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with comfyctl",
		Content: topicQuickstart,
	},
	{
		Name:    "workspace",
		Title:   "Workspace Resolution",
		Summary: "How comfyctl picks the installation directory",
		Content: topicWorkspace,
	},
	{
		Name:    "bisect",
		Title:   "Custom Node Bisect",
		Summary: "Binary search for the custom node breaking your setup",
		Content: topicBisect,
	},
	{
		Name:    "config",
		Title:   "Configuration",
		Summary: "The config.ini store and its keys",
		Content: topicConfig,
	},
}

const topicQuickstart = `Quick Start
===========

1. Install ComfyUI and ComfyUI-Manager:

    comfyctl install

   Without flags this installs into the default workspace
   (~/comfy on Linux, ~/Documents/comfy on macOS and Windows).

2. Launch it:

    comfyctl launch

   Extra arguments after -- go straight to ComfyUI:

    comfyctl launch -- --listen 0.0.0.0 --port 8188

3. See which workspace a command would use:

    comfyctl which

4. Pin a workspace as your default:

    comfyctl set-default ~/work/comfy
`

const topicWorkspace = `Workspace Resolution
====================

A workspace is any directory containing a ComfyUI checkout (a ComfyUI/
subdirectory). Every command resolves exactly one workspace before it
runs, using the first applicable rule:

  1. --workspace PATH    the given path; it must contain ComfyUI/ or
                         the command aborts. Never substituted.
  2. --recent            the last workspace a command operated on.
                         Must still be valid, or the command aborts.
  3. --here              the current directory, either containing
                         ComfyUI/ or being a ComfyUI checkout itself
                         (its parent becomes the workspace).
  4. (no flag)           the first of: the set-default workspace, the
                         current directory (as in --here), the recent
                         workspace, then the hardcoded OS default,
                         which is created if it does not exist.

The three flags are mutually exclusive; giving more than one is an
error, not a precedence decision.

Operating commands (launch, node ...) record the workspace they used,
which is what --recent later resolves to.
`

const topicBisect = `Custom Node Bisect
==================

When ComfyUI breaks and you suspect a custom node, bisect finds the
culprit in log2(N) launches instead of N.

    comfyctl node bisect start
    comfyctl node bisect start --pinned-nodes comfyui-kjnodes
    comfyctl node bisect start -- --port 8190

start enables every node and records the session in bisect_state.json
at the workspace root. Launch ComfyUI, test, then tell comfyctl what
you saw:

    comfyctl node bisect bad     # the problem is still there
    comfyctl node bisect good    # the problem is gone

Each verdict halves the suspect set, re-applies enable/disable through
ComfyUI-Manager, and relaunches ComfyUI so you can test again. When a
single node remains it is reported and every node is re-enabled.

    comfyctl node bisect reset   # abandon the session, re-enable all

Pinned nodes stay enabled for every probe and are never suspects.
State is saved before each relaunch, so interrupting ComfyUI does not
lose search progress.
`

const topicConfig = `Configuration
=============

comfyctl keeps a small INI file in your user config directory
(~/.config/comfyctl/config.ini on Linux). Keys:

  default_workspace       set by 'comfyctl set-default'
  recent_workspace        last workspace an operation used
  default_launch_extras   extra launch args applied when launching the
                          default workspace with no explicit extras
  user_id                 stable random id generated on first run

The file is written under an advisory lock so concurrent comfyctl
invocations do not interleave partial writes.
`
