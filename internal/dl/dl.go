// Package dl implements dynamic loading of the vendor shared libraries.
//
// A loaded library carries two handles: one resolved through the platform's
// standard-call loader and one through the C-call loader. The CAEN headers
// declare their API as __stdcall on 32-bit Windows, but entry points that
// look variadic degrade to __cdecl there, so binders must pick the handle
// matching the calling convention of each symbol. On every platform this
// package supports the two handles coincide; the split is kept so the
// contract stays visible at the call sites.
package dl

import "errors"

var (
	// ErrNotFound reports that the shared library could not be located or
	// loaded through the OS search mechanism.
	ErrNotFound = errors.New("shared library not found")

	// ErrNotSupported reports that this platform has no dynamic loader
	// integration.
	ErrNotSupported = errors.New("dynamic loading not supported on this platform")
)

// Library is an open handle pair to a dynamically loaded library.
type Library struct {
	name     string
	path     string
	std      uintptr
	variadic uintptr
}

// Name returns the logical library name passed to Open.
func (l *Library) Name() string { return l.name }

// Path returns the platform file name the loader resolved.
func (l *Library) Path() string { return l.path }
