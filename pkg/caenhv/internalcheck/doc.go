// Package internalcheck holds static checks run as tests against the
// public caenhv API.
//
// The binding decodes native memory through raw struct mirrors and
// unsafe pointers. Those must stay behind the codec: application code
// only ever sees the typed records and the Value sum type. The tests in
// this package walk the exported API surface and fail when a raw type
// leaks through it.
//
// The package is internal tooling and is not meant to be imported.
package internalcheck
