// Package cmem reads values out of raw native memory.
//
// The vendor library reports most of its results through C buffers: packed
// NUL-separated string sequences, fixed-stride string tables and scalar
// arrays, some caller-allocated and some allocated by the library itself.
// This package holds the decoding primitives for those layouts plus the
// FreeList helper that guarantees library-owned buffers are handed back to
// the native free routine on every exit path.
package cmem

import "unsafe"

// GoString copies the NUL-terminated C string starting at p. A nil pointer
// decodes as the empty string.
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// Strings decodes n NUL-terminated strings packed back to back at p,
// advancing by each string's byte length plus its terminator.
func Strings(p unsafe.Pointer, n int) []string {
	out := make([]string, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		s := GoString(unsafe.Add(p, off))
		off += len(s) + 1
		out = append(out, s)
	}
	return out
}

// StringsP is Strings for library-returned char pointers: when n is zero the
// pointer may be null or dangling and is never dereferenced.
func StringsP(p unsafe.Pointer, n int) []string {
	if n == 0 {
		return nil
	}
	return Strings(p, n)
}

// StringsFixed decodes NUL-terminated strings spaced stride bytes apart,
// stopping at the first empty string. The sentinel is not included.
func StringsFixed(p unsafe.Pointer, stride int) []string {
	var out []string
	off := 0
	for {
		s := GoString(unsafe.Add(p, off))
		if len(s) == 0 {
			return out
		}
		off += stride
		out = append(out, s)
	}
}

// StringsFixedN decodes exactly n NUL-terminated strings spaced stride bytes
// apart. Content does not terminate the walk; empty entries are kept.
func StringsFixedN(p unsafe.Pointer, stride, n int) []string {
	out := make([]string, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		out = append(out, GoString(unsafe.Add(p, off)))
		off += stride
	}
	return out
}

// StringsFixedNP is StringsFixedN with the zero-count pointer guard of
// StringsP.
func StringsFixedNP(p unsafe.Pointer, stride, n int) []string {
	if n == 0 {
		return nil
	}
	return StringsFixedN(p, stride, n)
}

// Scalar views over native memory. Reads use the host representation, which
// is what the library wrote into the buffer.

// U8 reads an unsigned byte at offset i elements from p.
func U8(p unsafe.Pointer, i int) uint8 { return *(*uint8)(unsafe.Add(p, i)) }

// U16 reads the i-th 16-bit unsigned value of the array at p.
func U16(p unsafe.Pointer, i int) uint16 { return *(*uint16)(unsafe.Add(p, 2*i)) }

// I16 reads the i-th 16-bit signed value of the array at p.
func I16(p unsafe.Pointer, i int) int16 { return *(*int16)(unsafe.Add(p, 2*i)) }

// U32 reads the i-th 32-bit unsigned value of the array at p.
func U32(p unsafe.Pointer, i int) uint32 { return *(*uint32)(unsafe.Add(p, 4*i)) }

// I32 reads the i-th 32-bit signed value of the array at p.
func I32(p unsafe.Pointer, i int) int32 { return *(*int32)(unsafe.Add(p, 4*i)) }

// U64 reads the i-th 64-bit unsigned value of the array at p.
func U64(p unsafe.Pointer, i int) uint64 { return *(*uint64)(unsafe.Add(p, 8*i)) }

// F32 reads the i-th 32-bit float of the array at p.
func F32(p unsafe.Pointer, i int) float32 { return *(*float32)(unsafe.Add(p, 4*i)) }
