package app

import "errors"

// Error variables for configuration and session setup.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDataDirEmpty       = errors.New("data_dir cannot be empty")
	ErrBackendInvalid     = errors.New("unknown backend")
	ErrNoData             = errors.New("no data loaded (run load, entry, or demo first)")
)
