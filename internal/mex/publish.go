package mex

import (
	"fmt"
	"os"
	"path/filepath"
)

// PublishArtifacts uploads the packaged mod archives, plus the export
// manifest when present, to the given destination. Keys are the base
// file names. Returns the keys uploaded, in order.
func (p *Pipeline) PublishArtifacts(pub Publisher) ([]string, error) {
	if err := pub.ValidateSetup(); err != nil {
		return nil, fmt.Errorf("validating publish destination: %w", err)
	}

	jars, err := filepath.Glob(filepath.Join(p.layout.ExportDir(), "mod_*.jar"))
	if err != nil {
		return nil, fmt.Errorf("listing mod archives: %w", err)
	}
	if len(jars) == 0 {
		return nil, fmt.Errorf("no mod archives to publish in %s", p.layout.ExportDir())
	}

	paths := jars
	if _, err := os.Stat(p.layout.ManifestFile()); err == nil {
		paths = append(paths, p.layout.ManifestFile())
	}

	var keys []string
	for _, path := range paths {
		key := filepath.Base(path)
		if err := p.publishOne(pub, key, path); err != nil {
			return keys, err
		}
		keys = append(keys, key)
		p.logger.Info("artifact published", "key", key)
	}

	return keys, nil
}

func (p *Pipeline) publishOne(pub Publisher, key string, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stating %s: %w", path, err)
	}

	if err := pub.Put(key, f, info.Size()); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}
