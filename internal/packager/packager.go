// Package packager assembles the per-side mod archive from
// reobfuscated classes plus the non-class resources sitting alongside
// the compiled output.
package packager

import (
	"fmt"
	"path/filepath"
	"strings"

	"mex-go/internal/archive"
	"mex-go/internal/fs"
	"mex-go/internal/mex"
)

// Packager is the filesystem implementation of mex.Packager.
type Packager struct {
	layout *mex.Layout
	clock  mex.Clock
	logger mex.Logger
}

// New creates a packager writing archives into the export directory.
func New(layout *mex.Layout, clock mex.Clock, logger mex.Logger) *Packager {
	return &Packager{layout: layout, clock: clock, logger: logger}
}

// PackageSide builds mod_<side>_<stamp>.jar for one concrete side. An
// absent reobf directory marks the result Skipped, a present but empty
// one marks it Empty; neither writes an archive. The beforeArchive
// hook runs only once the side is known to produce one.
func (p *Packager) PackageSide(side mex.Side, beforeArchive func() error) (*mex.PackageResult, error) {
	res := &mex.PackageResult{Side: side}

	reobfDir := p.layout.ReobfDir(side)
	exists, err := fs.DirExists(reobfDir)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", reobfDir, err)
	}
	if !exists {
		res.Skipped = true
		return res, nil
	}

	// Everything reobfuscation emitted goes into the archive, not just
	// .class files. Only the resource scan filters by extension.
	classes, err := fs.WalkTree(reobfDir)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		res.Empty = true
		return res, nil
	}

	resources, err := p.findResources(side)
	if err != nil {
		return nil, err
	}

	if beforeArchive != nil {
		if err := beforeArchive(); err != nil {
			return nil, err
		}
	}

	stamp := p.clock.Now().Format(mex.ArchiveStampLayout)
	dest := filepath.Join(p.layout.ExportDir(), fmt.Sprintf("mod_%s_%s.jar", side, stamp))

	p.logger.Debug("packaging side",
		"side", side.String(), "classes", len(classes), "resources", len(resources))

	if err := p.writeArchive(dest, classes, resources); err != nil {
		return nil, err
	}

	res.ArchivePath = dest
	res.Classes = len(classes)
	res.Resources = len(resources)
	return res, nil
}

// findResources collects the non-class files under the side's compiled
// output. An absent directory means no resources, not an error.
func (p *Packager) findResources(side mex.Side) ([]fs.Entry, error) {
	binDir := p.layout.BinDir(side)
	exists, err := fs.DirExists(binDir)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", binDir, err)
	}
	if !exists {
		return nil, nil
	}

	all, err := fs.WalkTree(binDir)
	if err != nil {
		return nil, err
	}
	var resources []fs.Entry
	for _, e := range all {
		if !strings.HasSuffix(e.RelPath, ".class") {
			resources = append(resources, e)
		}
	}
	return resources, nil
}

func (p *Packager) writeArchive(dest string, classes, resources []fs.Entry) error {
	w, err := archive.NewWriter(dest)
	if err != nil {
		return err
	}

	// Two trees feed one archive; a path claimed twice is a hard error,
	// not a silent overwrite.
	seen := make(map[string]bool, len(classes)+len(resources))
	add := func(e fs.Entry) error {
		if seen[e.RelPath] {
			return fmt.Errorf("duplicate archive entry: %s", e.RelPath)
		}
		seen[e.RelPath] = true
		return w.Add(e.RelPath, e.AbsPath, e.Info)
	}

	for _, e := range classes {
		if err := add(e); err != nil {
			w.Abort()
			return err
		}
	}
	for _, e := range resources {
		if err := add(e); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}

// Compile-time check that Packager implements mex.Packager
var _ mex.Packager = (*Packager)(nil)
