package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comfydev/comfyctl/internal/gitx"
)

// FileName is the lockfile written at the ComfyUI checkout root.
const FileName = "comfy.lock.yaml"

const header = "# This file is generated by comfyctl to track workspace state\n"

type Basics struct {
	Remote    string    `yaml:"remote"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

type CustomNode struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
	IsGit   bool   `yaml:"is_git,omitempty"`
	Remote  string `yaml:"remote,omitempty"`
}

// Document is the full lockfile contents.
type Document struct {
	Basics      Basics       `yaml:"basics"`
	CustomNodes []CustomNode `yaml:"custom_nodes,omitempty"`
}

// Scan inventories the custom_nodes directory of a ComfyUI checkout.
// A node is enabled unless its directory carries the .disabled suffix.
func Scan(appDir string) (*Document, error) {
	doc := &Document{Basics: Basics{UpdatedAt: time.Now().UTC()}}

	if urls, err := gitx.RemoteURLs(appDir); err == nil && len(urls) > 0 {
		doc.Basics.Remote = urls[0]
	}

	nodesDir := filepath.Join(appDir, "custom_nodes")
	entries, err := os.ReadDir(nodesDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", nodesDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "__pycache__" {
			continue
		}
		node := CustomNode{
			Path:    e.Name(),
			Enabled: !strings.HasSuffix(e.Name(), ".disabled"),
		}
		// Only a node that is its own checkout counts as git-managed;
		// walking up would find the enclosing ComfyUI repo instead.
		nodeDir := filepath.Join(nodesDir, e.Name())
		if _, err := os.Stat(filepath.Join(nodeDir, ".git")); err == nil {
			node.IsGit = true
			if urls, err := gitx.RemoteURLs(nodeDir); err == nil && len(urls) > 0 {
				node.Remote = urls[0]
			}
		}
		doc.CustomNodes = append(doc.CustomNodes, node)
	}
	return doc, nil
}

// Save writes the lockfile with its generated-file header.
func (d *Document) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(header), data...), 0644)
}

// Load reads a lockfile from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}
