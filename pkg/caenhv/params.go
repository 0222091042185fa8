package caenhv

import (
	"fmt"
	"unsafe"

	"github.com/caen-go/caenlibs/internal/cmem"
)

// boardScope marks the shared parameter path as board-addressed; any
// non-negative value is the slot owning the addressed channels.
const boardScope int32 = -1

// paramStrSize is the per-element buffer for STRING parameters, matching
// the native library's expectations for every string kind.
const paramStrSize = 1024

// discoverParamType is the single extra round trip that precedes parameter
// value access. The wire format is untyped bytes, so nothing can be
// decoded or encoded before this tag is known.
func (d *Device) discoverParamType(slot uint16, channel int32, name string) (ParamType, error) {
	var raw uint32
	var err error
	if channel < 0 {
		err = d.api.GetBdParamProp(d.handle, slot, name, "Type", unsafe.Pointer(&raw))
	} else {
		err = d.api.GetChParamProp(d.handle, slot, uint16(channel), name, "Type", unsafe.Pointer(&raw))
	}
	if err != nil {
		return 0, err
	}
	return ParamType(raw), nil
}

// getParam is the generalized read shared by board and channel scope. The
// type is discovered from the first index only; batches must not mix
// parameter types.
func (d *Device) getParam(indexes []uint16, name string, slot int32) ([]Value, error) {
	if err := d.requireOpen(); err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return nil, fmt.Errorf("get %s: %w", name, ErrEmptyIndexList)
	}

	var typ ParamType
	var err error
	if slot < 0 {
		typ, err = d.discoverParamType(indexes[0], -1, name)
	} else {
		typ, err = d.discoverParamType(uint16(slot), int32(indexes[0]), name)
	}
	if err != nil {
		return nil, err
	}

	n := len(indexes)
	call := func(result unsafe.Pointer) error {
		if slot < 0 {
			return d.api.GetBdParam(d.handle, indexes, name, result)
		}
		return d.api.GetChParam(d.handle, uint16(slot), name, indexes, result)
	}

	out := make([]Value, n)
	switch typ {
	case ParamTypeNumeric:
		buf := make([]float32, n)
		if err := call(unsafe.Pointer(&buf[0])); err != nil {
			return nil, err
		}
		for i, f := range buf {
			out[i] = FloatValue(float64(f))
		}
	case ParamTypeString:
		buf := make([]byte, paramStrSize*n)
		if err := call(unsafe.Pointer(&buf[0])); err != nil {
			return nil, err
		}
		for i, s := range cmem.Strings(unsafe.Pointer(&buf[0]), n) {
			out[i] = StringValue(s)
		}
	default:
		buf := make([]int32, n)
		if err := call(unsafe.Pointer(&buf[0])); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = IntValue(int64(v))
		}
	}
	return out, nil
}

// setParam is the generalized write shared by board and channel scope. One
// value is encoded once and applied by the native call to every index. The
// kind check runs before anything crosses the boundary.
func (d *Device) setParam(indexes []uint16, name string, value Value, slot int32) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	if len(indexes) == 0 {
		return fmt.Errorf("set %s: %w", name, ErrEmptyIndexList)
	}

	var typ ParamType
	var err error
	if slot < 0 {
		typ, err = d.discoverParamType(indexes[0], -1, name)
	} else {
		typ, err = d.discoverParamType(uint16(slot), int32(indexes[0]), name)
	}
	if err != nil {
		return err
	}

	mismatch := func() error {
		return fmt.Errorf("set %s: %w: %s value for %s parameter", name, ErrTypeMismatch, value.Kind(), typ)
	}
	var data unsafe.Pointer
	switch typ {
	case ParamTypeNumeric:
		f, ok := value.floatParam()
		if !ok {
			return mismatch()
		}
		data = unsafe.Pointer(&f)
	case ParamTypeString:
		s, ok := value.AsString()
		if !ok {
			return mismatch()
		}
		buf := append([]byte(s), 0)
		data = unsafe.Pointer(&buf[0])
	default:
		i, ok := value.intParam()
		if !ok {
			return mismatch()
		}
		data = unsafe.Pointer(&i)
	}

	if slot < 0 {
		return d.api.SetBdParam(d.handle, indexes, name, data)
	}
	return d.api.SetChParam(d.handle, uint16(slot), name, indexes, data)
}

// paramProp probes the shape of one parameter. The type probe must
// succeed; every further sub-attribute is optional, a failing query means
// "not applicable" and leaves the field unset.
func (d *Device) paramProp(slot uint16, channel int32, name string) (ParamProp, error) {
	if err := d.requireOpen(); err != nil {
		return ParamProp{}, err
	}
	probe := func(prop string, out unsafe.Pointer) error {
		if channel < 0 {
			return d.api.GetBdParamProp(d.handle, slot, name, prop, out)
		}
		return d.api.GetChParamProp(d.handle, slot, uint16(channel), name, prop, out)
	}

	var rawType uint32
	if err := probe("Type", unsafe.Pointer(&rawType)); err != nil {
		return ParamProp{}, err
	}
	prop := ParamProp{Name: name, Type: ParamType(rawType)}

	var rawMode uint32
	if probe("Mode", unsafe.Pointer(&rawMode)) == nil {
		prop.Mode = ParamMode(rawMode)
	}

	switch prop.Type {
	case ParamTypeNumeric:
		var f float32
		if probe("Minval", unsafe.Pointer(&f)) == nil {
			v := float64(f)
			prop.Minval = &v
		}
		if probe("Maxval", unsafe.Pointer(&f)) == nil {
			v := float64(f)
			prop.Maxval = &v
		}
		var u uint16
		if probe("Unit", unsafe.Pointer(&u)) == nil {
			unit := ParamUnit(u)
			prop.Unit = &unit
		}
		var e int16
		if probe("Exp", unsafe.Pointer(&e)) == nil {
			exp := e
			prop.Exp = &exp
		}
	case ParamTypeOnOff:
		buf := make([]byte, sysPropBufSize)
		if probe("Onstate", unsafe.Pointer(&buf[0])) == nil {
			s := cString(buf)
			prop.Onstate = &s
		}
		if probe("Offstate", unsafe.Pointer(&buf[0])) == nil {
			s := cString(buf)
			prop.Offstate = &s
		}
	case ParamTypeEnum:
		var f float32
		if probe("Minval", unsafe.Pointer(&f)) == nil {
			v := float64(f)
			prop.Minval = &v
		}
		if probe("Maxval", unsafe.Pointer(&f)) == nil {
			v := float64(f)
			prop.Maxval = &v
		}
		if prop.Minval != nil && prop.Maxval != nil {
			// The native library reports the label count this way.
			n := int(*prop.Maxval - *prop.Minval)
			var fl cmem.FreeList
			defer fl.Release(d.api.Free)
			labels := fl.Ptr()
			if probe("Enum", unsafe.Pointer(labels)) == nil {
				prop.Enum = cmem.StringsP(*labels, n)
			}
		}
	}
	return prop, nil
}

// paramInfo enumerates the parameter names of one board or channel. The
// name table is a fixed-stride walk ending at the first empty entry; the
// channel query additionally reports a count, cross-checked against the
// walk.
func (d *Device) paramInfo(slot uint16, channel int32) ([]string, error) {
	if err := d.requireOpen(); err != nil {
		return nil, err
	}
	var fl cmem.FreeList
	defer fl.Release(d.api.Free)

	names := fl.Ptr()
	var count int32
	haveCount := false
	if channel < 0 {
		if err := d.api.GetBdParamInfo(d.handle, slot, names); err != nil {
			return nil, err
		}
	} else {
		if err := d.api.GetChParamInfo(d.handle, slot, uint16(channel), names, &count); err != nil {
			return nil, err
		}
		haveCount = true
	}

	list := cmem.StringsFixed(*names, maxParamNameLen)
	if haveCount && int(count) != len(list) {
		return nil, fmt.Errorf("parameter info for slot %d: native reports %d names, decoded %d", slot, count, len(list))
	}
	return list, nil
}

// GetBdParam reads one board parameter across the listed slots.
func (d *Device) GetBdParam(slots []uint16, name string) ([]Value, error) {
	return d.getParam(slots, name, boardScope)
}

// SetBdParam writes one value to a board parameter on every listed slot.
func (d *Device) SetBdParam(slots []uint16, name string, value Value) error {
	return d.setParam(slots, name, value, boardScope)
}

// GetBdParamProp queries the shape of one board parameter.
func (d *Device) GetBdParamProp(slot uint16, name string) (ParamProp, error) {
	return d.paramProp(slot, -1, name)
}

// GetBdParamInfo enumerates the parameter names of one board.
func (d *Device) GetBdParamInfo(slot uint16) ([]string, error) {
	return d.paramInfo(slot, -1)
}

// GetChParam reads one channel parameter across the listed channels of a
// slot.
func (d *Device) GetChParam(slot uint16, channels []uint16, name string) ([]Value, error) {
	return d.getParam(channels, name, int32(slot))
}

// SetChParam writes one value to a channel parameter on every listed
// channel of a slot.
func (d *Device) SetChParam(slot uint16, channels []uint16, name string, value Value) error {
	return d.setParam(channels, name, value, int32(slot))
}

// GetChParamProp queries the shape of one channel parameter.
func (d *Device) GetChParamProp(slot, channel uint16, name string) (ParamProp, error) {
	return d.paramProp(slot, int32(channel), name)
}

// GetChParamInfo enumerates the parameter names of one channel.
func (d *Device) GetChParamInfo(slot, channel uint16) ([]string, error) {
	return d.paramInfo(slot, int32(channel))
}

// GetChName reads the display names of the listed channels.
func (d *Device) GetChName(slot uint16, channels []uint16) ([]string, error) {
	if err := d.requireOpen(); err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("get channel names: %w", ErrEmptyIndexList)
	}
	buf := make([]byte, maxChNameLen*len(channels))
	if err := d.api.GetChName(d.handle, slot, channels, buf); err != nil {
		return nil, err
	}
	return cmem.StringsFixedN(unsafe.Pointer(&buf[0]), maxChNameLen, len(channels)), nil
}

// SetChName applies one display name to every listed channel.
func (d *Device) SetChName(slot uint16, channels []uint16, name string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	if len(channels) == 0 {
		return fmt.Errorf("set channel names: %w", ErrEmptyIndexList)
	}
	return d.api.SetChName(d.handle, slot, channels, name)
}
