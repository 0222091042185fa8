//go:build !(darwin || freebsd || linux || netbsd || windows)

package dl

// Open reports ErrNotSupported on platforms without a loader integration.
func Open(name string) (*Library, error) {
	return nil, ErrNotSupported
}

// Lookup mirrors the supported-platform signature.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	return 0, ErrNotSupported
}

// LookupVariadic mirrors the supported-platform signature.
func (l *Library) LookupVariadic(symbol string) (uintptr, error) {
	return 0, ErrNotSupported
}

// Register mirrors the supported-platform signature.
func (l *Library) Register(fnptr any, symbol string) error {
	return ErrNotSupported
}

// RegisterVariadic mirrors the supported-platform signature.
func (l *Library) RegisterVariadic(fnptr any, symbol string) error {
	return ErrNotSupported
}

// Close mirrors the supported-platform signature.
func (l *Library) Close() error { return nil }
