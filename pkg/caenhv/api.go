package caenhv

import (
	"sync"
	"unsafe"
)

// nativeAPI is the full surface of the CAEN HV Wrapper library as the
// session layer consumes it. Each method mirrors one native entry point:
// inputs keep their ABI order, output parameters stay pointers or slices
// the native side fills, and the uniform status return is already converted
// to an error. The indirection exists so tests can run the session layer
// against a simulated native library.
type nativeAPI interface {
	InitSystem(system, link int32, arg, user, pass string) (int32, error)
	DeinitSystem(handle int32) error

	GetCrateMap(handle int32, slots *uint16, chCounts, models, descs, serials, fwMins, fwMaxes *unsafe.Pointer) error
	TestBdPresence(handle int32, slot uint16, nrOfCh *uint16, model, desc *unsafe.Pointer, serial *uint16, fwMin, fwMax *uint8) error

	GetSysPropList(handle int32, num *uint16, names *unsafe.Pointer) error
	GetSysPropInfo(handle int32, name string, mode, typ *uint32) error
	GetSysProp(handle int32, name string, result unsafe.Pointer) error
	SetSysProp(handle int32, name string, value unsafe.Pointer) error

	GetBdParam(handle int32, slots []uint16, name string, result unsafe.Pointer) error
	SetBdParam(handle int32, slots []uint16, name string, value unsafe.Pointer) error
	GetBdParamProp(handle int32, slot uint16, name, prop string, result unsafe.Pointer) error
	GetBdParamInfo(handle int32, slot uint16, names *unsafe.Pointer) error

	GetChParamProp(handle int32, slot, channel uint16, name, prop string, result unsafe.Pointer) error
	GetChParamInfo(handle int32, slot, channel uint16, names *unsafe.Pointer, size *int32) error
	GetChName(handle int32, slot uint16, channels []uint16, names []byte) error
	SetChName(handle int32, slot uint16, channels []uint16, name string) error
	GetChParam(handle int32, slot uint16, name string, channels []uint16, result unsafe.Pointer) error
	SetChParam(handle int32, slot uint16, name string, channels []uint16, value unsafe.Pointer) error

	GetExecCommList(handle int32, num *uint16, names *unsafe.Pointer) error
	ExecComm(handle int32, name string) error

	SubscribeSystemParams(handle int32, port int16, names string, count uint32, results []byte) error
	SubscribeBoardParams(handle int32, port int16, slot uint16, names string, count uint32, results []byte) error
	SubscribeChannelParams(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) error
	UnSubscribeSystemParams(handle int32, port int16, names string, count uint32, results []byte) error
	UnSubscribeBoardParams(handle int32, port int16, slot uint16, names string, count uint32, results []byte) error
	UnSubscribeChannelParams(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) error

	GetEventData(sock uintptr, status *systemStatusRaw, event *unsafe.Pointer, num *uint32) error
	FreeEventData(event *unsafe.Pointer) error
	Free(p unsafe.Pointer)

	SwRelease() string
	ErrorMessage(handle int32) string
}

var (
	libOnce sync.Once
	libInst nativeAPI
	libErr  error
)

// newAPI hands out the process-wide native binding, loading the shared
// library on first use. Tests swap the variable to inject a simulated
// native layer.
var newAPI = loadOnce

func loadOnce() (nativeAPI, error) {
	libOnce.Do(func() {
		libInst, libErr = loadLib()
	})
	return libInst, libErr
}
