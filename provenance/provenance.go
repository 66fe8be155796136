// Package provenance gathers source and dependency state at experiment
// start so a finished run can be traced back to the exact code that
// produced it. Collection is best effort: a source tree without git simply
// yields no diff artifact.
package provenance

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

// Artifact is a file to be logged by artifact-capable sinks.
type Artifact struct {
	Tag  string
	Path string
}

// Collect writes provenance files into outDir and returns them as
// artifacts: a git diff of uncommitted changes in root (when root is a git
// work tree), copies of the module files, and the dependency list of the
// running binary.
func Collect(root, outDir string) ([]Artifact, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create provenance dir: %w", err)
	}

	var artifacts []Artifact

	if diff, err := gitDiff(root); err == nil && len(diff) > 0 {
		path := filepath.Join(outDir, "git_diff.patch")
		if err := os.WriteFile(path, diff, 0o644); err != nil {
			return nil, fmt.Errorf("write git diff: %w", err)
		}
		artifacts = append(artifacts, Artifact{Tag: "git_diff.patch", Path: path})
	}

	for _, name := range []string{"go.mod", "go.sum"} {
		src := filepath.Join(root, name)
		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("copy %s: %w", name, err)
		}
		artifacts = append(artifacts, Artifact{Tag: name, Path: path})
	}

	if deps := dependencyList(); deps != "" {
		path := filepath.Join(outDir, "dependency_list.txt")
		if err := os.WriteFile(path, []byte(deps), 0o644); err != nil {
			return nil, fmt.Errorf("write dependency list: %w", err)
		}
		artifacts = append(artifacts, Artifact{Tag: "dependency_list.txt", Path: path})
	}

	return artifacts, nil
}

// gitDiff returns the uncommitted diff of the work tree at root.
func gitDiff(root string) ([]byte, error) {
	cmd := exec.Command("git", "-C", root, "diff")
	return cmd.Output()
}

// dependencyList renders the module dependencies baked into the running
// binary, one "path version" line each.
func dependencyList() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", info.Main.Path, info.Main.Version)
	for _, dep := range info.Deps {
		fmt.Fprintf(&b, "%s %s\n", dep.Path, dep.Version)
	}
	return b.String()
}
