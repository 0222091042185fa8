// Package caenhv exposes the CAEN HV Wrapper native library, the vendor
// API for CAEN high-voltage power supplies, as a typed Go API. The shared
// library is loaded on first use and every entry point is bound with its
// exact native signature; Device sessions then wrap the raw pointer and
// buffer calls with typed parameter access, structured errors, and a
// socket-based event subscription stream. The native library remains the
// system of record for all device logic; this package only crosses the
// boundary safely.
package caenhv
