package assets

import "errors"

// Sentinel errors for asset operations.
var (
	// ErrNotFound indicates no source holds the requested asset.
	ErrNotFound = errors.New("asset not found")

	// ErrInvalidName indicates an empty name or one with separators or dots.
	ErrInvalidName = errors.New("invalid asset name")

	// ErrInvalidBasePath indicates the override path is not a readable directory.
	ErrInvalidBasePath = errors.New("invalid asset base path")

	// ErrRead indicates the asset exists but could not be read, including
	// reads refused for leaving the base directory.
	ErrRead = errors.New("failed to read asset")
)
