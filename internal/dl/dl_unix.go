//go:build darwin || freebsd || linux || netbsd

package dl

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Open loads lib<name>.so through the process's standard search path.
// The vendor ships .so objects on every non-Windows platform.
func Open(name string) (*Library, error) {
	path := fmt.Sprintf("lib%s.so", name)
	h, err := purego.Dlopen(path, purego.RTLD_GLOBAL|purego.RTLD_LAZY)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	// dlopen has a single C calling convention; both handles are the
	// same object, reference counted by the loader.
	return &Library{name: name, path: path, std: h, variadic: h}, nil
}

// Lookup resolves a symbol through the standard-call handle.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	addr, err := purego.Dlsym(l.std, symbol)
	if err != nil {
		return 0, fmt.Errorf("lookup %s in %s: %w", symbol, l.path, err)
	}
	return addr, nil
}

// LookupVariadic resolves a symbol through the variadic-call handle.
func (l *Library) LookupVariadic(symbol string) (uintptr, error) {
	addr, err := purego.Dlsym(l.variadic, symbol)
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
	err := purego.Dlclose(l.std)
	l.std = 0
	l.variadic = 0
	return err
}
