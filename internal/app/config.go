package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	GridPath string // .hcl file or directory of .hcl files

	Plan    bool // print the execution plan instead of running
	Workers int  // 0 means "use the grid's max_threads setting"

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("Workers must not be negative")
	}
	return &cfg, nil
}
