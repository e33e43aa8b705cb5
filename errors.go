package extreg

import "errors"

var (
	// ErrReadConfig indicates the config file exists but could not be read.
	ErrReadConfig = errors.New("failed to read config")
	// ErrCreateConfigDir indicates a config directory could not be created.
	ErrCreateConfigDir = errors.New("failed to create config directory")
	// ErrWriteConfig indicates a config file could not be written.
	ErrWriteConfig = errors.New("failed to write config")
	// ErrEmptyPath indicates an empty extension path was given.
	ErrEmptyPath = errors.New("empty extension path")
)
