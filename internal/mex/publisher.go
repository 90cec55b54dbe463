package mex

import "io"

// Publisher uploads finished export artifacts to a distribution
// destination. Publishing is strictly post-pipeline: it never touches
// recovery state or backups.
type Publisher interface {
	// Put stores one artifact under the given key. size is the number
	// of bytes that will be read from r.
	Put(key string, r io.Reader, size int64) error

	// ValidateSetup verifies that the destination is accessible and
	// properly configured.
	ValidateSetup() error
}
