package cmem

import "unsafe"

// FreeList collects out-pointer slots that a native call will fill with
// library-allocated buffers. Registering the slots before the call and
// deferring Release right away guarantees the native free routine runs for
// every allocation no matter how the caller returns.
//
//	var fl cmem.FreeList
//	defer fl.Release(api.FreeBuffer)
//	models := fl.Ptr()
//	// native call writes *models; decoding may fail afterwards
//
// Release is idempotent: each buffer is freed once and its slot cleared.
type FreeList struct {
	slots []*unsafe.Pointer
}

// Ptr returns a fresh out-pointer slot tracked by the list.
func (f *FreeList) Ptr() *unsafe.Pointer {
	p := new(unsafe.Pointer)
	f.slots = append(f.slots, p)
	return p
}

// Release frees every tracked buffer that the native side populated. Slots
// still nil (the call failed before filling them) are skipped.
func (f *FreeList) Release(free func(unsafe.Pointer)) {
	for _, p := range f.slots {
		if *p != nil {
			free(*p)
			*p = nil
		}
	}
	f.slots = f.slots[:0]
}
