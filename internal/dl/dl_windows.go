//go:build windows

package dl

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Open loads <name>.dll through the process's standard search path.
// purego only targets 64-bit Windows, where __stdcall and __cdecl collapse
// into the one x64 convention, so a single LoadLibrary serves both handles.
func Open(name string) (*Library, error) {
	path := fmt.Sprintf("%s.dll", name)
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	return &Library{name: name, path: path, std: uintptr(h), variadic: uintptr(h)}, nil
}

// Lookup resolves a symbol through the standard-call handle.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(l.std), symbol)
	if err != nil {
		return 0, fmt.Errorf("lookup %s in %s: %w", symbol, l.path, err)
	}
	return addr, nil
}

// LookupVariadic resolves a symbol through the variadic-call handle.
func (l *Library) LookupVariadic(symbol string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(l.variadic), symbol)
	if err != nil {
		return 0, fmt.Errorf("lookup %s in %s: %w", symbol, l.path, err)
	}
	return addr, nil
}

// Close releases the library handles.
func (l *Library) Close() error {
	if l.std == 0 {
		return nil
	}
	err := windows.FreeLibrary(windows.Handle(l.std))
	l.std = 0
	l.variadic = 0
	return err
}
