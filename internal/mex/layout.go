package mex

import "path/filepath"

// Layout derives every path the pipeline touches from the workspace root.
// BinRoot and ReobfRoot are relative to the root unless absolute.
type Layout struct {
	Root      string
	BinRoot   string // compiled output, one subdirectory per side
	ReobfRoot string // reobfuscated classes, one subdirectory per side
}

// NewLayout creates a Layout rooted at root. Empty binRoot and
// reobfRoot fall back to the default bin/ and reobf/.
func NewLayout(root string, binRoot string, reobfRoot string) *Layout {
	if binRoot == "" {
		binRoot = "bin"
	}
	if reobfRoot == "" {
		reobfRoot = "reobf"
	}
	return &Layout{Root: root, BinRoot: binRoot, ReobfRoot: reobfRoot}
}

func (l *Layout) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(l.Root, dir)
}

// ExportDir holds the packaged archives and the completion manifest.
func (l *Layout) ExportDir() string {
	return filepath.Join(l.Root, "export")
}

// BackupDir holds the rotated backup archives.
func (l *Layout) BackupDir() string {
	return filepath.Join(l.Root, "export", "backups")
}

// StateFile is the recovery state file. Its presence at the start of a
// run means the previous run did not finish.
func (l *Layout) StateFile() string {
	return filepath.Join(l.Root, "export", ".export_state")
}

// ManifestFile is the plain-text export manifest written on completion.
func (l *Layout) ManifestFile() string {
	return filepath.Join(l.Root, "export", "export_info.txt")
}

// BinDir is the compiled-output directory for a concrete side.
func (l *Layout) BinDir(side Side) string {
	return filepath.Join(l.resolve(l.BinRoot), side.String())
}

// ReobfDir is the reobfuscated-class directory for a concrete side.
func (l *Layout) ReobfDir(side Side) string {
	return filepath.Join(l.resolve(l.ReobfRoot), side.String())
}
