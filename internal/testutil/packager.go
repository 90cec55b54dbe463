package testutil

import (
	"fmt"

	"mex-go/internal/mex"
)

// StubPackager returns canned packaging results without writing
// archives. A side with no entry in Results packages successfully with
// a synthetic archive path.
type StubPackager struct {
	Results map[mex.Side]*mex.PackageResult

	Err error

	// Packaged records the sides PackageSide was called for, in order.
	Packaged []mex.Side

	// HookRan records the sides whose beforeArchive hook was invoked.
	// The real packager only runs the hook for sides that produce an
	// archive; the stub mirrors that.
	HookRan []mex.Side
}

func (p *StubPackager) PackageSide(side mex.Side, beforeArchive func() error) (*mex.PackageResult, error) {
	p.Packaged = append(p.Packaged, side)
	if p.Err != nil {
		return nil, p.Err
	}

	res, ok := p.Results[side]
	if !ok {
		res = &mex.PackageResult{
			Side:        side,
			ArchivePath: fmt.Sprintf("mod_%s_20240115_103000.jar", side),
			Classes:     1,
		}
	}

	if !res.Skipped && !res.Empty && beforeArchive != nil {
		p.HookRan = append(p.HookRan, side)
		if err := beforeArchive(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

var _ mex.Packager = (*StubPackager)(nil)
