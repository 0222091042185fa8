package caenhv

import "strconv"

// ValueKind enumerates the shapes a property or parameter value can take.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueInt
	ValueFloat
	ValueBool
)

func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueBool:
		return "bool"
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the typed result of property, parameter and event decoding. The
// native wire format is untyped bytes; the session layer interprets them
// through the discovered type tag and hands out a Value so no raw union ever
// reaches application code. The zero Value has kind None.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	bit  bool
}

// StringValue returns a Value of kind String.
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

// IntValue returns a Value of kind Int.
func IntValue(i int64) Value { return Value{kind: ValueInt, num: i} }

// FloatValue returns a Value of kind Float.
func FloatValue(f float64) Value { return Value{kind: ValueFloat, flt: f} }

// BoolValue returns a Value of kind Bool.
func BoolValue(b bool) Value { return Value{kind: ValueBool, bit: b} }

// Kind reports the active member.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether the Value carries nothing, as for keepalive and
// alarm events.
func (v Value) IsNone() bool { return v.kind == ValueNone }

// AsString returns the string member and whether it is the active one.
func (v Value) AsString() (string, bool) { return v.str, v.kind == ValueString }

// AsInt returns the integer member and whether it is the active one.
func (v Value) AsInt() (int64, bool) { return v.num, v.kind == ValueInt }

// AsFloat returns the float member and whether it is the active one.
func (v Value) AsFloat() (float64, bool) { return v.flt, v.kind == ValueFloat }

// AsBool returns the bool member and whether it is the active one.
func (v Value) AsBool() (bool, bool) { return v.bit, v.kind == ValueBool }

// String renders the active member for display.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueInt:
		return strconv.FormatInt(v.num, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.bit)
	}
	return "<none>"
}

// floatParam encodes the Value for a NUMERIC parameter. Int values are
// accepted and widened, everything else is a contract violation.
func (v Value) floatParam() (float32, bool) {
	switch v.kind {
	case ValueFloat:
		return float32(v.flt), true
	case ValueInt:
		return float32(v.num), true
	}
	return 0, false
}

// intParam encodes the Value for the integer-backed parameter kinds. Bool
// values map to 0/1.
func (v Value) intParam() (int32, bool) {
	switch v.kind {
	case ValueInt:
		return int32(v.num), true
	case ValueBool:
		if v.bit {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
