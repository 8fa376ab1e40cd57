package main

import "errors"

// Sentinel errors for CLI operations.
var (
	ErrUsage     = errors.New("invalid usage")
	ErrReadInput = errors.New("failed to read input")
)
