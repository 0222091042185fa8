package caenhv

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotOpen is returned by every device operation issued after Close
	// and before a reconnect.
	ErrNotOpen = errors.New("device not open")

	// ErrAlreadyOpen is returned by Connect on a device that has not been
	// closed first.
	ErrAlreadyOpen = errors.New("device already connected")

	// ErrTypeMismatch is returned by set operations when the supplied value
	// kind does not match the discovered property or parameter type. The
	// check runs before any native call is issued.
	ErrTypeMismatch = errors.New("value type mismatch")

	// ErrEmptyIndexList is returned by batched parameter operations called
	// with no slots or channels.
	ErrEmptyIndexList = errors.New("empty index list")

	// ErrEventsNotInitialized is returned by GetEventData before any
	// subscribe call has established the event stream.
	ErrEventsNotInitialized = errors.New("events not initialized")
)

// ErrorCode mirrors the native CAENHVRESULT status values.
type ErrorCode int32

const (
	CodeOK                   ErrorCode = 0
	CodeSysErr               ErrorCode = 1
	CodeWriteErr             ErrorCode = 2
	CodeReadErr              ErrorCode = 3
	CodeTimeErr              ErrorCode = 4
	CodeDown                 ErrorCode = 5
	CodeNotPresent           ErrorCode = 6
	CodeSlotNotPresent       ErrorCode = 7
	CodeNoSerial             ErrorCode = 8
	CodeMemoryFault          ErrorCode = 9
	CodeOutOfRange           ErrorCode = 10
	CodeExecComNotImpl       ErrorCode = 11
	CodeGetPropNotImpl       ErrorCode = 12
	CodeSetPropNotImpl       ErrorCode = 13
	CodePropNotFound         ErrorCode = 14
	CodeExecNotFound         ErrorCode = 15
	CodeNotSysProp           ErrorCode = 16
	CodeNotGetProp           ErrorCode = 17
	CodeNotSetProp           ErrorCode = 18
	CodeNotExecComm          ErrorCode = 19
	CodeSysConfChange        ErrorCode = 20
	CodeParamPropNotFound    ErrorCode = 21
	CodeParamNotFound        ErrorCode = 22
	CodeNoData               ErrorCode = 23
	CodeDevAlreadyOpen       ErrorCode = 24
	CodeTooManyDeviceOpen    ErrorCode = 25
	CodeInvalidParameter     ErrorCode = 26
	CodeFunctionNotAvailable ErrorCode = 27
	CodeSocketError          ErrorCode = 28
	CodeCommunicationError   ErrorCode = 29
	CodeNotYetImplemented    ErrorCode = 30
	CodeConnected            ErrorCode = 0x1000 + 1
	CodeNotConnected         ErrorCode = 0x1000 + 2
	CodeOS                   ErrorCode = 0x1000 + 3
	CodeLoginFailed          ErrorCode = 0x1000 + 4
	CodeLogoutFailed         ErrorCode = 0x1000 + 5
	CodeLinkNotSupported     ErrorCode = 0x1000 + 6
	CodeUserPassFailed       ErrorCode = 0x1000 + 7
)

var errorCodeNames = map[ErrorCode]string{
	CodeOK:                   "OK",
	CodeSysErr:               "SYSERR",
	CodeWriteErr:             "WRITEERR",
	CodeReadErr:              "READERR",
	CodeTimeErr:              "TIMEERR",
	CodeDown:                 "DOWN",
	CodeNotPresent:           "NOTPRES",
	CodeSlotNotPresent:       "SLOTNOTPRES",
	CodeNoSerial:             "NOSERIAL",
	CodeMemoryFault:          "MEMORYFAULT",
	CodeOutOfRange:           "OUTOFRANGE",
	CodeExecComNotImpl:       "EXECCOMNOTIMPL",
	CodeGetPropNotImpl:       "GETPROPNOTIMPL",
	CodeSetPropNotImpl:       "SETPROPNOTIMPL",
	CodePropNotFound:         "PROPNOTFOUND",
	CodeExecNotFound:         "EXECNOTFOUND",
	CodeNotSysProp:           "NOTSYSPROP",
	CodeNotGetProp:           "NOTGETPROP",
	CodeNotSetProp:           "NOTSETPROP",
	CodeNotExecComm:          "NOTEXECOMM",
	CodeSysConfChange:        "SYSCONFCHANGE",
	CodeParamPropNotFound:    "PARAMPROPNOTFOUND",
	CodeParamNotFound:        "PARAMNOTFOUND",
	CodeNoData:               "NODATA",
	CodeDevAlreadyOpen:       "DEVALREADYOPEN",
	CodeTooManyDeviceOpen:    "TOOMANYDEVICEOPEN",
	CodeInvalidParameter:     "INVALIDPARAMETER",
	CodeFunctionNotAvailable: "FUNCTIONNOTAVAILABLE",
	CodeSocketError:          "SOCKETERROR",
	CodeCommunicationError:   "COMMUNICATIONERROR",
	CodeNotYetImplemented:    "NOTYETIMPLEMENTED",
	CodeConnected:            "CONNECTED",
	CodeNotConnected:         "NOTCONNECTED",
	CodeOS:                   "OS",
	CodeLoginFailed:          "LOGINFAILED",
	CodeLogoutFailed:         "LOGOUTFAILED",
	CodeLinkNotSupported:     "LINKNOTSUPPORTED",
	CodeUserPassFailed:       "USERPASSFAILED",
}

// String returns the vendor mnemonic for the code, as spelled in the native
// header.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(c)) + ")"
}

// Error is the structured failure returned whenever a native call reports a
// non-OK status. Code carries the native status and Func the native entry
// point that produced it.
type Error struct {
	Code ErrorCode
	Func string
}

func (e *Error) Error() string {
	return e.Func + " failed: " + e.Code.String()
}

// SubscribeError reports a partial subscription failure. Failed holds the
// zero-based indices of the parameter names the native library rejected;
// names with a zero result code remain subscribed.
type SubscribeError struct {
	Func   string
	Failed []int
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("%s failed at params %v", e.Func, e.Failed)
}
