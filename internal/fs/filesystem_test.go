package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mex-go/internal/fs"
	"mex-go/internal/testutil"
)

func TestWalkTree(t *testing.T) {
	t.Run("collects regular files in lexical order", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteFiles(t, root, map[string]string{
			"b.txt":     "bee",
			"a.txt":     "ay",
			"sub/c.txt": "sea",
		})

		entries, err := fs.WalkTree(root)
		if err != nil {
			t.Fatalf("WalkTree() error = %v", err)
		}

		var rels []string
		for _, e := range entries {
			rels = append(rels, e.RelPath)
		}
		if got := strings.Join(rels, " "); got != "a.txt b.txt sub/c.txt" {
			t.Errorf("paths = %q, want %q", got, "a.txt b.txt sub/c.txt")
		}

		for _, e := range entries {
			if !filepath.IsAbs(e.AbsPath) {
				t.Errorf("AbsPath = %q, want absolute", e.AbsPath)
			}
			if e.Info == nil || e.Info.Size() == 0 {
				t.Errorf("entry %s carries no file info", e.RelPath)
			}
		}
	})

	t.Run("skips symlinks", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteFiles(t, root, map[string]string{"real.txt": "data"})
		if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		entries, err := fs.WalkTree(root)
		if err != nil {
			t.Fatalf("WalkTree() error = %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
		if entries[0].RelPath != "real.txt" {
			t.Errorf("RelPath = %q, want %q", entries[0].RelPath, "real.txt")
		}
	})

	t.Run("an empty directory yields no entries", func(t *testing.T) {
		t.Parallel()
		entries, err := fs.WalkTree(t.TempDir())
		if err != nil {
			t.Fatalf("WalkTree() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("got %d entries, want 0", len(entries))
		}
	})

	t.Run("a missing root is an error", func(t *testing.T) {
		t.Parallel()
		_, err := fs.WalkTree(filepath.Join(t.TempDir(), "missing"))
		if err == nil {
			t.Fatal("expected error for missing root")
		}
	})
}

func TestDirExists(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"file.txt": "x"})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing directory", root, true},
		{"missing path", filepath.Join(root, "nope"), false},
		{"regular file", filepath.Join(root, "file.txt"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.DirExists(tt.path)
			if err != nil {
				t.Fatalf("DirExists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DirExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
