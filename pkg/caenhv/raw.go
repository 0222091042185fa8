package caenhv

import (
	"bytes"
	"math"
	"unsafe"
)

// Sizes fixed by the vendor header.
const (
	maxParamNameLen = 10 // MAX_PARAM_NAME
	maxChNameLen    = 12 // MAX_CH_NAME
	itemIDLen       = 20
	idValueSize     = 1024
	sysPropBufSize  = 1024 // large enough for every property kind
)

// systemStatusRaw mirrors CAENHV_SYSTEMSTATUS_t.
type systemStatusRaw struct {
	System int32
	Board  [16]int32
}

// idValueRaw mirrors the IDValue_t union: 1024 bytes of overlapped storage
// holding a string, a float or an int. The active member is not
// self-describing, callers select an accessor through a separately
// discovered type tag. The zero-length field pins the union's native 4-byte
// alignment without changing its size.
type idValueRaw struct {
	_    [0]int32
	data [idValueSize]byte
}

func (v *idValueRaw) stringValue() string {
	return cString(v.data[:])
}

func (v *idValueRaw) floatValue() float32 {
	return math.Float32frombits(*(*uint32)(unsafe.Pointer(&v.data[0])))
}

func (v *idValueRaw) intValue() int32 {
	return *(*int32)(unsafe.Pointer(&v.data[0]))
}

func (v *idValueRaw) setString(s string) {
	n := copy(v.data[:idValueSize-1], s)
	v.data[n] = 0
}

func (v *idValueRaw) setFloat(f float32) {
	*(*uint32)(unsafe.Pointer(&v.data[0])) = math.Float32bits(f)
}

func (v *idValueRaw) setInt(i int32) {
	*(*int32)(unsafe.Pointer(&v.data[0])) = i
}

// eventDataRaw mirrors CAENHVEVENT_TYPE_t, the record the native library
// writes for each delivered event.
type eventDataRaw struct {
	Type         int32
	SystemHandle int32
	BoardIndex   int32
	ChannelIndex int32
	ItemID       [itemIDLen]byte
	Value        idValueRaw
}

// The native library fills these structures directly into process memory,
// so their layout must match the header bit for bit. A mismatch makes the
// paired declarations below fail to compile.
var (
	_ [68 - unsafe.Sizeof(systemStatusRaw{})]byte
	_ [unsafe.Sizeof(systemStatusRaw{}) - 68]byte
	_ [1024 - unsafe.Sizeof(idValueRaw{})]byte
	_ [unsafe.Sizeof(idValueRaw{}) - 1024]byte
	_ [1060 - unsafe.Sizeof(eventDataRaw{})]byte
	_ [unsafe.Sizeof(eventDataRaw{}) - 1060]byte
	_ [36 - unsafe.Offsetof(eventDataRaw{}.Value)]byte
	_ [unsafe.Offsetof(eventDataRaw{}.Value) - 36]byte
)

// cString decodes a NUL-terminated string from a fixed-size field, bounded
// by the field length when no terminator is present.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
