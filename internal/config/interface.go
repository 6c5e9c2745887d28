package config

import (
	"context"
)

// Loader is the interface for a format-specific grid loader.
type Loader interface {
	// Load reads grid configuration from a file or directory, translates
	// it into the format-agnostic model, and validates it.
	Load(ctx context.Context, path string) (*Grid, error)
}
