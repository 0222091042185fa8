//go:build darwin || freebsd || linux || netbsd || windows

package dl

import "github.com/ebitengine/purego"

// Register binds fnptr, a pointer to a Go function variable, to the named
// symbol resolved through the standard-call handle.
func (l *Library) Register(fnptr any, symbol string) error {
	addr, err := l.Lookup(symbol)
	if err != nil {
		return err
	}
	purego.RegisterFunc(fnptr, addr)
	return nil
}

// RegisterVariadic binds fnptr to the named symbol resolved through the
// variadic-call handle. Binders use this for every conventional entry point:
// on 32-bit Windows the variadic-looking vendor functions are __cdecl even
// though the header says __stdcall, and on the remaining platforms the two
// handles are interchangeable anyway.
func (l *Library) RegisterVariadic(fnptr any, symbol string) error {
	addr, err := l.LookupVariadic(symbol)
	if err != nil {
		return err
	}
	purego.RegisterFunc(fnptr, addr)
	return nil
}
