package ux

import (
	"fmt"
	"strings"

	"github.com/comfydev/comfyctl/internal/bisect"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Warn prints a yellow warning line.
func Warn(format string, args ...any) {
	fmt.Printf("%swarn:%s %s\n", Yellow, Reset, fmt.Sprintf(format, args...))
}

// LaunchBanner prints the workspace a launch is about to use.
func LaunchBanner(path string) {
	fmt.Printf("\n%sLaunching ComfyUI from:%s %s%s%s\n\n", Bold, Reset, Green, path, Reset)
}

// WorkspaceLine prints a resolved workspace path with its source.
func WorkspaceLine(path, source string) {
	fmt.Printf("%s→ %s%s %s(%s)%s\n", Green, path, Reset, Dim, source, Reset)
}

// BisectRound prints the current search position and the active probe set.
func BisectRound(st bisect.State) {
	fmt.Printf("\n%sBisect (%s)%s\n", Bold, st.Status, Reset)
	fmt.Printf("  nodes still suspected: %d\n", len(st.Range))
	fmt.Printf("  nodes enabled to test: %d\n", len(st.Active))
	fmt.Println("  --------------------------")
	for i, node := range st.Active {
		fmt.Printf("  %3d. %s\n", i+1, node)
	}
}

// Culprit prints the node a bisect session resolved to.
func Culprit(name string) {
	fmt.Printf("\n%sProblematic node identified:%s %s%s%s\n", Bold, Reset, Red, name, Reset)
}

// PinnedNodes prints the set of nodes excluded from a bisect session.
func PinnedNodes(names []string) {
	fmt.Printf("Pinned nodes: %s\n", strings.Join(names, ", "))
}
