package provenance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestCollectModuleFiles tests go.mod copying and dependency listing
func TestCollectModuleFiles(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()

	gomod := "module example.com/demo\n\ngo 1.24\n"
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte(gomod), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	artifacts, err := Collect(root, outDir)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	tags := make(map[string]string)
	for _, artifact := range artifacts {
		tags[artifact.Tag] = artifact.Path
	}

	path, ok := tags["go.mod"]
	if !ok {
		t.Fatal("go.mod artifact missing")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read go.mod artifact: %v", err)
	}
	if string(data) != gomod {
		t.Errorf("go.mod artifact content mismatch: %q", data)
	}

	// the test binary always carries build info
	depPath, ok := tags["dependency_list.txt"]
	if !ok {
		t.Fatal("dependency_list.txt artifact missing")
	}
	deps, err := os.ReadFile(depPath)
	if err != nil {
		t.Fatalf("read dependency list: %v", err)
	}
	if !strings.Contains(string(deps), "compresstrain") {
		t.Errorf("dependency list does not mention the main module: %q", deps)
	}

	// no go.sum in root, so no go.sum artifact
	if _, ok := tags["go.sum"]; ok {
		t.Error("unexpected go.sum artifact for a root without go.sum")
	}
}

// TestCollectNonGitTree tests that a tree without git yields no diff
func TestCollectNonGitTree(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()

	artifacts, err := Collect(root, outDir)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	for _, artifact := range artifacts {
		if artifact.Tag == "git_diff.patch" {
			t.Error("git diff artifact produced for a non-git tree")
		}
	}
}
