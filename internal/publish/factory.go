package publish

import (
	"fmt"

	"mex-go/internal/config"
	"mex-go/internal/mex"
)

// NewPublisherFromConfig creates a Publisher implementation based on the publish config type.
func NewPublisherFromConfig(cfg config.PublishConfig) (mex.Publisher, error) {
	switch cfg.Type {
	case "":
		return nil, fmt.Errorf("no publish destination configured")
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem publisher requires dir to be set")
		}
		return NewFilesystemPublisher(cfg.Dir), nil
	case "s3":
		return NewS3Publisher(cfg)
	case "memory":
		return NewMemoryPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown publish type: %s", cfg.Type)
	}
}
