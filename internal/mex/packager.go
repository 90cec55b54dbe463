package mex

// PackageResult reports what packaging one side produced.
type PackageResult struct {
	Side        Side
	ArchivePath string // empty when no archive was written
	Classes     int    // class files packed
	Resources   int    // resource files folded in
	Skipped     bool   // reobf directory absent: silent skip
	Empty       bool   // reobf directory present but empty: warn and skip
}

// Packager assembles the distributable archive for one concrete side
// from its reobfuscated classes plus the non-class resources of its
// compiled-output tree.
type Packager interface {
	// PackageSide packages one side. beforeArchive, when non-nil, runs
	// after the class set is validated non-empty and before the archive
	// is written; the pipeline uses it to take the pre-package backup.
	// A relative-path collision between a class entry and a resource
	// entry is an error.
	PackageSide(side Side, beforeArchive func() error) (*PackageResult, error)
}
