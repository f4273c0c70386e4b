package ux

import (
	"fmt"

	"github.com/comfydev/comfyctl/internal/config"
)

// RenderEnv prints the persisted configuration as a key/value listing.
func RenderEnv(store *config.Store) {
	rows := []struct {
		label string
		value string
		blank string
	}{
		{"Config file", store.Path(), ""},
		{"Default workspace", store.Get(config.KeyDefaultWorkspace), "not set"},
		{"Recent workspace", store.Get(config.KeyRecentWorkspace), "no recent run"},
		{"Default launch extras", store.Get(config.KeyDefaultLaunchExtras), "none"},
		{"User ID", store.Get(config.KeyUserID), ""},
	}

	fmt.Println()
	for _, r := range rows {
		v := r.value
		if v == "" {
			v = fmt.Sprintf("%s%s%s", Dim, r.blank, Reset)
		}
		fmt.Printf("  %s%-24s%s %s\n", Bold, r.label, Reset, v)
	}
	fmt.Println()
}
