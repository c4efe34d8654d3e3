// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibliography

import (
	"errors"
	"fmt"
)

// Sentinel errors for bibliography loading. A failed master load stops the
// run; a failed document bibliography fails the documents that need it.
var (
	ErrBibliographyLoad      = errors.New("bibliography load failed")
	ErrAmbiguousBibliography = errors.New("more than one document bibliography found")
	ErrNoBibliography        = errors.New("no document bibliography found")
)

// LoadError reports an unreadable or malformed bibliography file. It
// matches ErrBibliographyLoad with errors.Is.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading bibliography %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is makes every LoadError match ErrBibliographyLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrBibliographyLoad
}

func loadError(path string, format string, args ...any) error {
	return &LoadError{Path: path, Cause: fmt.Errorf(format, args...)}
}
