package caenhv

import (
	"fmt"
	"strings"
)

// SystemType identifies the power-supply family passed to InitSystem.
type SystemType int32

const (
	SystemTypeSY1527 SystemType = iota
	SystemTypeSY2527
	SystemTypeSY4527
	SystemTypeSY5527
	SystemTypeN568
	SystemTypeV65XX
	SystemTypeN1470
	SystemTypeV8100
	SystemTypeN568E
	SystemTypeDT55XX
	SystemTypeFTK
	SystemTypeDT55XXE
	SystemTypeN1068
	SystemTypeSmartHV
	SystemTypeNGPS
	SystemTypeN1168
	SystemTypeR6060
)

var systemTypeNames = [...]string{
	"SY1527", "SY2527", "SY4527", "SY5527", "N568", "V65XX", "N1470",
	"V8100", "N568E", "DT55XX", "FTK", "DT55XXE", "N1068", "SMARTHV",
	"NGPS", "N1168", "R6060",
}

func (t SystemType) String() string {
	if t >= 0 && int(t) < len(systemTypeNames) {
		return systemTypeNames[t]
	}
	return fmt.Sprintf("SystemType(%d)", int32(t))
}

// ParseSystemType resolves a vendor mnemonic like "SY4527", case
// insensitively.
func ParseSystemType(s string) (SystemType, error) {
	for i, name := range systemTypeNames {
		if strings.EqualFold(s, name) {
			return SystemType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown system type %q", s)
}

// LinkType selects the physical connection used to reach the system.
type LinkType int32

const (
	LinkTypeTCPIP LinkType = iota
	LinkTypeRS232
	LinkTypeCAENet
	LinkTypeUSB
	LinkTypeOptLink
	LinkTypeUSBVCP
	LinkTypeUSB3
	LinkTypeA4818
)

var linkTypeNames = [...]string{
	"TCPIP", "RS232", "CAENET", "USB", "OPTLINK", "USB_VCP", "USB3", "A4818",
}

func (t LinkType) String() string {
	if t >= 0 && int(t) < len(linkTypeNames) {
		return linkTypeNames[t]
	}
	return fmt.Sprintf("LinkType(%d)", int32(t))
}

// ParseLinkType resolves a vendor mnemonic like "TCPIP", case
// insensitively.
func ParseLinkType(s string) (LinkType, error) {
	for i, name := range linkTypeNames {
		if strings.EqualFold(s, name) {
			return LinkType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown link type %q", s)
}

// SysPropType is the declared data kind of a system property. The socket
// kind is special: only the R6060 event descriptor property uses it, and the
// generic type query does not report it.
type SysPropType int32

const (
	SysPropTypeStr SysPropType = iota
	SysPropTypeReal
	SysPropTypeUint2
	SysPropTypeUint4
	SysPropTypeInt2
	SysPropTypeInt4
	SysPropTypeBoolean

	SysPropTypeSocket SysPropType = 1000
)

func (t SysPropType) String() string {
	switch t {
	case SysPropTypeStr:
		return "STR"
	case SysPropTypeReal:
		return "REAL"
	case SysPropTypeUint2:
		return "UINT2"
	case SysPropTypeUint4:
		return "UINT4"
	case SysPropTypeInt2:
		return "INT2"
	case SysPropTypeInt4:
		return "INT4"
	case SysPropTypeBoolean:
		return "BOOLEAN"
	case SysPropTypeSocket:
		return "SOCKET"
	}
	return fmt.Sprintf("SysPropType(%d)", int32(t))
}

// SysPropMode is the read/write access of a system property.
type SysPropMode int32

const (
	SysPropModeReadOnly SysPropMode = iota
	SysPropModeWriteOnly
	SysPropModeReadWrite
)

func (m SysPropMode) String() string {
	switch m {
	case SysPropModeReadOnly:
		return "RDONLY"
	case SysPropModeWriteOnly:
		return "WRONLY"
	case SysPropModeReadWrite:
		return "RDWR"
	}
	return fmt.Sprintf("SysPropMode(%d)", int32(m))
}

// ParamType is the declared data kind of a board or channel parameter.
type ParamType int32

const (
	ParamTypeNumeric ParamType = iota
	ParamTypeOnOff
	ParamTypeChStatus
	ParamTypeBdStatus
	ParamTypeBinary
	ParamTypeString
	ParamTypeEnum
	ParamTypeCmd
)

var paramTypeNames = [...]string{
	"NUMERIC", "ONOFF", "CHSTATUS", "BDSTATUS", "BINARY", "STRING", "ENUM", "CMD",
}

func (t ParamType) String() string {
	if t >= 0 && int(t) < len(paramTypeNames) {
		return paramTypeNames[t]
	}
	return fmt.Sprintf("ParamType(%d)", int32(t))
}

// ParamMode is the read/write access of a board or channel parameter.
type ParamMode int32

const (
	ParamModeReadOnly ParamMode = iota
	ParamModeWriteOnly
	ParamModeReadWrite
)

func (m ParamMode) String() string {
	switch m {
	case ParamModeReadOnly:
		return "RDONLY"
	case ParamModeWriteOnly:
		return "WRONLY"
	case ParamModeReadWrite:
		return "RDWR"
	}
	return fmt.Sprintf("ParamMode(%d)", int32(m))
}

// ParamUnit is the measurement unit of a numeric parameter.
type ParamUnit int32

const (
	ParamUnitNone ParamUnit = iota
	ParamUnitAmpere
	ParamUnitVolt
	ParamUnitWatt
	ParamUnitCelsius
	ParamUnitHertz
	ParamUnitBar
	ParamUnitVPS
	ParamUnitSecond
	ParamUnitRPM
	ParamUnitCount
	ParamUnitBit
	ParamUnitAPS
)

var paramUnitNames = [...]string{
	"NONE", "AMPERE", "VOLT", "WATT", "CELSIUS", "HERTZ", "BAR", "VPS",
	"SECOND", "RPM", "COUNT", "BIT", "APS",
}

func (u ParamUnit) String() string {
	if u >= 0 && int(u) < len(paramUnitNames) {
		return paramUnitNames[u]
	}
	return fmt.Sprintf("ParamUnit(%d)", int32(u))
}

// EventType classifies one asynchronous notification.
type EventType int32

const (
	EventTypeParameter EventType = iota
	EventTypeAlarm
	EventTypeKeepalive
	EventTypeTrMode
)

var eventTypeNames = [...]string{"PARAMETER", "ALARM", "KEEPALIVE", "TRMODE"}

func (t EventType) String() string {
	if t >= 0 && int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return fmt.Sprintf("EventType(%d)", int32(t))
}

// FwVersion is a board firmware release pair.
type FwVersion struct {
	Major uint8
	Minor uint8
}

func (v FwVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Board describes one slot of the crate map. Empty slots decode with an
// empty model and zero counts. Boards are snapshots rebuilt on every query,
// they carry no identity.
type Board struct {
	Model        string
	Description  string
	SerialNumber uint16
	NrOfChannels uint16
	FwVersion    FwVersion
}

// SysProp describes the shape of a system property.
type SysProp struct {
	Name string
	Mode SysPropMode
	Type SysPropType
}

// ParamProp describes the shape of a board or channel parameter. Optional
// fields are nil when the corresponding sub-attribute query was not
// applicable or failed; the failure is absorbed, not reported.
type ParamProp struct {
	Name     string
	Type     ParamType
	Mode     ParamMode
	Minval   *float64
	Maxval   *float64
	Unit     *ParamUnit
	Exp      *int16
	Onstate  *string
	Offstate *string
	Enum     []string
}

// EventData is one decoded notification from the event stream. BoardIndex
// and ChannelIndex are -1 when not applicable. Value has kind None for
// keepalive and alarm events, which carry identifiers only.
type EventData struct {
	Type         EventType
	ItemID       string
	SystemHandle int32
	BoardIndex   int32
	ChannelIndex int32
	Value        Value
}

// SystemStatus is the crate health snapshot the native library reports with
// every event read: one status word for the system and one per slot.
type SystemStatus struct {
	System int32
	Board  [16]int32
}
