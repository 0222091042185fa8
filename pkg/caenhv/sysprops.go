package caenhv

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/caen-go/caenlibs/internal/cmem"
)

// GetSysPropList returns the names of every system property.
func (d *Device) GetSysPropList() ([]string, error) {
	if err := d.requireOpen(); err != nil {
		return nil, err
	}
	var fl cmem.FreeList
	defer fl.Release(d.api.Free)

	var num uint16
	names := fl.Ptr()
	if err := d.api.GetSysPropList(d.handle, &num, names); err != nil {
		return nil, err
	}
	return cmem.StringsP(*names, int(num)), nil
}

// GetSysPropInfo queries the declared mode and type of one property.
func (d *Device) GetSysPropInfo(name string) (SysProp, error) {
	if err := d.requireOpen(); err != nil {
		return SysProp{}, err
	}
	var mode, typ uint32
	if err := d.api.GetSysPropInfo(d.handle, name, &mode, &typ); err != nil {
		return SysProp{}, err
	}
	return SysProp{Name: name, Mode: SysPropMode(mode), Type: SysPropType(typ)}, nil
}

// sysPropType is the discovery step preceding every value decode. The
// R6060 library does not implement the info query for its event descriptor
// property, so that one name is hard-wired to the socket kind.
func (d *Device) sysPropType(name string) (SysPropType, error) {
	if d.systemType == SystemTypeR6060 && name == "EventDataSocket" {
		return SysPropTypeSocket, nil
	}
	info, err := d.GetSysPropInfo(name)
	if err != nil {
		return 0, err
	}
	return info.Type, nil
}

// GetSysProp reads one system property. The native call fills an untyped
// buffer first; the discovered type then selects the decoder.
func (d *Device) GetSysProp(name string) (Value, error) {
	if err := d.requireOpen(); err != nil {
		return Value{}, err
	}
	buf := make([]byte, sysPropBufSize)
	if err := d.api.GetSysProp(d.handle, name, unsafe.Pointer(&buf[0])); err != nil {
		return Value{}, err
	}
	typ, err := d.sysPropType(name)
	if err != nil {
		return Value{}, err
	}
	return decodeSysProp(typ, buf)
}

// SetSysProp writes one system property. The value kind must match the
// discovered property type; mismatches fail before the native call.
func (d *Device) SetSysProp(name string, value Value) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	info, err := d.GetSysPropInfo(name)
	if err != nil {
		return err
	}
	buf, err := encodeSysProp(name, info.Type, value)
	if err != nil {
		return err
	}
	return d.api.SetSysProp(d.handle, name, unsafe.Pointer(&buf[0]))
}

func decodeSysProp(typ SysPropType, buf []byte) (Value, error) {
	p := unsafe.Pointer(&buf[0])
	switch typ {
	case SysPropTypeStr:
		return StringValue(cString(buf)), nil
	case SysPropTypeReal:
		return FloatValue(float64(*(*float32)(p))), nil
	case SysPropTypeUint2:
		return IntValue(int64(*(*uint16)(p))), nil
	case SysPropTypeUint4:
		return IntValue(int64(*(*uint32)(p))), nil
	case SysPropTypeInt2:
		return IntValue(int64(*(*int16)(p))), nil
	case SysPropTypeInt4:
		return IntValue(int64(*(*int32)(p))), nil
	case SysPropTypeBoolean:
		return BoolValue(*(*uint32)(p) != 0), nil
	case SysPropTypeSocket:
		// The descriptor has the width of the platform's socket type.
		if runtime.GOOS == "windows" {
			return IntValue(int64(*(*uint64)(p))), nil
		}
		return IntValue(int64(*(*int32)(p))), nil
	}
	return Value{}, fmt.Errorf("system property type %s has no decoder", typ)
}

func encodeSysProp(name string, typ SysPropType, value Value) ([]byte, error) {
	mismatch := func() error {
		return fmt.Errorf("set %s: %w: %s value for %s property", name, ErrTypeMismatch, value.Kind(), typ)
	}
	switch typ {
	case SysPropTypeStr:
		s, ok := value.AsString()
		if !ok {
			return nil, mismatch()
		}
		return append([]byte(s), 0), nil
	case SysPropTypeReal:
		f, ok := value.floatParam()
		if !ok {
			return nil, mismatch()
		}
		buf := make([]byte, 4)
		*(*float32)(unsafe.Pointer(&buf[0])) = f
		return buf, nil
	case SysPropTypeUint2:
		i, ok := value.intParam()
		if !ok {
			return nil, mismatch()
		}
		buf := make([]byte, 2)
		*(*uint16)(unsafe.Pointer(&buf[0])) = uint16(i)
		return buf, nil
	case SysPropTypeUint4:
		i, ok := value.intParam()
		if !ok {
			return nil, mismatch()
		}
		buf := make([]byte, 4)
		*(*uint32)(unsafe.Pointer(&buf[0])) = uint32(i)
		return buf, nil
	case SysPropTypeInt2:
		i, ok := value.intParam()
		if !ok {
			return nil, mismatch()
		}
		buf := make([]byte, 2)
		*(*int16)(unsafe.Pointer(&buf[0])) = int16(i)
		return buf, nil
	case SysPropTypeInt4:
		i, ok := value.intParam()
		if !ok {
			return nil, mismatch()
		}
		buf := make([]byte, 4)
		*(*int32)(unsafe.Pointer(&buf[0])) = i
		return buf, nil
	case SysPropTypeBoolean:
		i, ok := value.intParam()
		if !ok {
			return nil, mismatch()
		}
		buf := make([]byte, 4)
		*(*uint32)(unsafe.Pointer(&buf[0])) = uint32(i)
		return buf, nil
	}
	// The socket kind is read-only by construction; there is no encoder.
	return nil, fmt.Errorf("set %s: system property type %s cannot be written", name, typ)
}
