package main

import (
	"context"
	"errors"
	"strings"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/config"
	"github.com/alnah/go-mdexport/internal/hints"
)

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, mdexport.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, mdexport.ErrTaintedImage):
		return hints.ForTaintedImage()
	case errors.Is(err, mdexport.ErrInvalidFormat):
		return hints.ForInvalidFormat(formatNames())
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(triedPaths(err))
	case errors.Is(err, mdexport.ErrSave):
		return hints.ForOutputDirectory()
	default:
		return ""
	}
}

func formatNames() []string {
	names := make([]string, len(mdexport.Formats))
	for i, f := range mdexport.Formats {
		names[i] = f.String()
	}
	return names
}

// triedPaths extracts the searched locations from a config-not-found error.
func triedPaths(err error) []string {
	_, list, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(list, ", ")
}
