package caenhv

import (
	"fmt"
	"unsafe"

	"github.com/caen-go/caenlibs/internal/dl"
)

// libName resolves to CAENHVWrapper.dll on Windows and libCAENHVWrapper.so
// elsewhere.
const libName = "CAENHVWrapper"

// check converts the uniform native status return into an error carrying
// the code and the failing entry point.
func check(fn string, status int32) error {
	if ErrorCode(status) != CodeOK {
		return &Error{Code: ErrorCode(status), Func: fn}
	}
	return nil
}

// libAPI is the real nativeAPI implementation: one registered function
// variable per entry point, argument lists copied from the vendor header.
// Every conventional entry point is registered through the variadic-call
// handle; see dl.RegisterVariadic for why that is required on all
// platforms.
type libAPI struct {
	lib *dl.Library

	initSystem      func(system, link int32, arg, user, pass string, handle *int32) int32
	deinitSystem    func(handle int32) int32
	getCrateMap     func(handle int32, slots *uint16, chCounts, models, descs, serials, fwMins, fwMaxes *unsafe.Pointer) int32
	getSysPropList  func(handle int32, num *uint16, names *unsafe.Pointer) int32
	getSysPropInfo  func(handle int32, name string, mode, typ *uint32) int32
	getSysProp      func(handle int32, name string, result unsafe.Pointer) int32
	setSysProp      func(handle int32, name string, value unsafe.Pointer) int32
	getBdParam      func(handle int32, n uint16, slots []uint16, name string, result unsafe.Pointer) int32
	setBdParam      func(handle int32, n uint16, slots []uint16, name string, value unsafe.Pointer) int32
	getBdParamProp  func(handle int32, slot uint16, name, prop string, result unsafe.Pointer) int32
	getBdParamInfo  func(handle int32, slot uint16, names *unsafe.Pointer) int32
	testBdPresence  func(handle int32, slot uint16, nrOfCh *uint16, model, desc *unsafe.Pointer, serial *uint16, fwMin, fwMax *uint8) int32
	getChParamProp  func(handle int32, slot, channel uint16, name, prop string, result unsafe.Pointer) int32
	getChParamInfo  func(handle int32, slot, channel uint16, names *unsafe.Pointer, size *int32) int32
	getChName       func(handle int32, slot, n uint16, channels []uint16, names []byte) int32
	setChName       func(handle int32, slot, n uint16, channels []uint16, name string) int32
	getChParam      func(handle int32, slot uint16, name string, n uint16, channels []uint16, result unsafe.Pointer) int32
	setChParam      func(handle int32, slot uint16, name string, n uint16, channels []uint16, value unsafe.Pointer) int32
	getExecCommList func(handle int32, num *uint16, names *unsafe.Pointer) int32
	execComm        func(handle int32, name string) int32
	subSystem       func(handle int32, port int16, names string, count uint32, results []byte) int32
	subBoard        func(handle int32, port int16, slot uint16, names string, count uint32, results []byte) int32
	subChannel      func(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) int32
	unsubSystem     func(handle int32, port int16, names string, count uint32, results []byte) int32
	unsubBoard      func(handle int32, port int16, slot uint16, names string, count uint32, results []byte) int32
	unsubChannel    func(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) int32
	getEventData    func(sock uintptr, status *systemStatusRaw, event *unsafe.Pointer, num *uint32) int32
	freeEventData   func(event *unsafe.Pointer) int32
	free            func(p unsafe.Pointer) int32
	swRel           func() string
	getError        func(handle int32) string
}

// loadLib opens the vendor library and registers every entry point. Called
// once per process through newAPI.
func loadLib() (nativeAPI, error) {
	lib, err := dl.Open(libName)
	if err != nil {
		return nil, fmt.Errorf("library %s not found, install the latest CAEN HV Wrapper from https://www.caen.it/ and retry: %w", libName, err)
	}

	a := &libAPI{lib: lib}
	binds := []struct {
		fn     any
		symbol string
	}{
		{&a.initSystem, "CAENHV_InitSystem"},
		{&a.deinitSystem, "CAENHV_DeinitSystem"},
		{&a.getCrateMap, "CAENHV_GetCrateMap"},
		{&a.getSysPropList, "CAENHV_GetSysPropList"},
		{&a.getSysPropInfo, "CAENHV_GetSysPropInfo"},
		{&a.getSysProp, "CAENHV_GetSysProp"},
		{&a.setSysProp, "CAENHV_SetSysProp"},
		{&a.getBdParam, "CAENHV_GetBdParam"},
		{&a.setBdParam, "CAENHV_SetBdParam"},
		{&a.getBdParamProp, "CAENHV_GetBdParamProp"},
		{&a.getBdParamInfo, "CAENHV_GetBdParamInfo"},
		{&a.testBdPresence, "CAENHV_TestBdPresence"},
		{&a.getChParamProp, "CAENHV_GetChParamProp"},
		{&a.getChParamInfo, "CAENHV_GetChParamInfo"},
		{&a.getChName, "CAENHV_GetChName"},
		{&a.setChName, "CAENHV_SetChName"},
		{&a.getChParam, "CAENHV_GetChParam"},
		{&a.setChParam, "CAENHV_SetChParam"},
		{&a.getExecCommList, "CAENHV_GetExecCommList"},
		{&a.execComm, "CAENHV_ExecComm"},
		{&a.subSystem, "CAENHV_SubscribeSystemParams"},
		{&a.subBoard, "CAENHV_SubscribeBoardParams"},
		{&a.subChannel, "CAENHV_SubscribeChannelParams"},
		{&a.unsubSystem, "CAENHV_UnSubscribeSystemParams"},
		{&a.unsubBoard, "CAENHV_UnSubscribeBoardParams"},
		{&a.unsubChannel, "CAENHV_UnSubscribeChannelParams"},
		{&a.getEventData, "CAENHV_GetEventData"},
		{&a.freeEventData, "CAENHV_FreeEventData"},
		{&a.free, "CAENHV_Free"},
	}
	for _, b := range binds {
		if err := lib.RegisterVariadic(b.fn, b.symbol); err != nil {
			return nil, err
		}
	}

	// The version and error-message queries return decoded strings instead
	// of a status code and bind through the standard-call handle.
	if err := lib.Register(&a.swRel, "CAENHVLibSwRel"); err != nil {
		return nil, err
	}
	if err := lib.Register(&a.getError, "CAENHV_GetError"); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *libAPI) InitSystem(system, link int32, arg, user, pass string) (int32, error) {
	var handle int32
	if err := check("CAENHV_InitSystem", a.initSystem(system, link, arg, user, pass, &handle)); err != nil {
		return 0, err
	}
	return handle, nil
}

func (a *libAPI) DeinitSystem(handle int32) error {
	return check("CAENHV_DeinitSystem", a.deinitSystem(handle))
}

func (a *libAPI) GetCrateMap(handle int32, slots *uint16, chCounts, models, descs, serials, fwMins, fwMaxes *unsafe.Pointer) error {
	return check("CAENHV_GetCrateMap", a.getCrateMap(handle, slots, chCounts, models, descs, serials, fwMins, fwMaxes))
}

func (a *libAPI) TestBdPresence(handle int32, slot uint16, nrOfCh *uint16, model, desc *unsafe.Pointer, serial *uint16, fwMin, fwMax *uint8) error {
	return check("CAENHV_TestBdPresence", a.testBdPresence(handle, slot, nrOfCh, model, desc, serial, fwMin, fwMax))
}

func (a *libAPI) GetSysPropList(handle int32, num *uint16, names *unsafe.Pointer) error {
	return check("CAENHV_GetSysPropList", a.getSysPropList(handle, num, names))
}

func (a *libAPI) GetSysPropInfo(handle int32, name string, mode, typ *uint32) error {
	return check("CAENHV_GetSysPropInfo", a.getSysPropInfo(handle, name, mode, typ))
}

func (a *libAPI) GetSysProp(handle int32, name string, result unsafe.Pointer) error {
	return check("CAENHV_GetSysProp", a.getSysProp(handle, name, result))
}

func (a *libAPI) SetSysProp(handle int32, name string, value unsafe.Pointer) error {
	return check("CAENHV_SetSysProp", a.setSysProp(handle, name, value))
}

func (a *libAPI) GetBdParam(handle int32, slots []uint16, name string, result unsafe.Pointer) error {
	return check("CAENHV_GetBdParam", a.getBdParam(handle, uint16(len(slots)), slots, name, result))
}

func (a *libAPI) SetBdParam(handle int32, slots []uint16, name string, value unsafe.Pointer) error {
	return check("CAENHV_SetBdParam", a.setBdParam(handle, uint16(len(slots)), slots, name, value))
}

func (a *libAPI) GetBdParamProp(handle int32, slot uint16, name, prop string, result unsafe.Pointer) error {
	return check("CAENHV_GetBdParamProp", a.getBdParamProp(handle, slot, name, prop, result))
}

func (a *libAPI) GetBdParamInfo(handle int32, slot uint16, names *unsafe.Pointer) error {
	return check("CAENHV_GetBdParamInfo", a.getBdParamInfo(handle, slot, names))
}

func (a *libAPI) GetChParamProp(handle int32, slot, channel uint16, name, prop string, result unsafe.Pointer) error {
	return check("CAENHV_GetChParamProp", a.getChParamProp(handle, slot, channel, name, prop, result))
}

func (a *libAPI) GetChParamInfo(handle int32, slot, channel uint16, names *unsafe.Pointer, size *int32) error {
	return check("CAENHV_GetChParamInfo", a.getChParamInfo(handle, slot, channel, names, size))
}

func (a *libAPI) GetChName(handle int32, slot uint16, channels []uint16, names []byte) error {
	return check("CAENHV_GetChName", a.getChName(handle, slot, uint16(len(channels)), channels, names))
}

func (a *libAPI) SetChName(handle int32, slot uint16, channels []uint16, name string) error {
	return check("CAENHV_SetChName", a.setChName(handle, slot, uint16(len(channels)), channels, name))
}

func (a *libAPI) GetChParam(handle int32, slot uint16, name string, channels []uint16, result unsafe.Pointer) error {
	return check("CAENHV_GetChParam", a.getChParam(handle, slot, name, uint16(len(channels)), channels, result))
}

func (a *libAPI) SetChParam(handle int32, slot uint16, name string, channels []uint16, value unsafe.Pointer) error {
	return check("CAENHV_SetChParam", a.setChParam(handle, slot, name, uint16(len(channels)), channels, value))
}

func (a *libAPI) GetExecCommList(handle int32, num *uint16, names *unsafe.Pointer) error {
	return check("CAENHV_GetExecCommList", a.getExecCommList(handle, num, names))
}

func (a *libAPI) ExecComm(handle int32, name string) error {
	return check("CAENHV_ExecComm", a.execComm(handle, name))
}

func (a *libAPI) SubscribeSystemParams(handle int32, port int16, names string, count uint32, results []byte) error {
	return check("CAENHV_SubscribeSystemParams", a.subSystem(handle, port, names, count, results))
}

func (a *libAPI) SubscribeBoardParams(handle int32, port int16, slot uint16, names string, count uint32, results []byte) error {
	return check("CAENHV_SubscribeBoardParams", a.subBoard(handle, port, slot, names, count, results))
}

func (a *libAPI) SubscribeChannelParams(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) error {
	return check("CAENHV_SubscribeChannelParams", a.subChannel(handle, port, slot, channel, names, count, results))
}

func (a *libAPI) UnSubscribeSystemParams(handle int32, port int16, names string, count uint32, results []byte) error {
	return check("CAENHV_UnSubscribeSystemParams", a.unsubSystem(handle, port, names, count, results))
}

func (a *libAPI) UnSubscribeBoardParams(handle int32, port int16, slot uint16, names string, count uint32, results []byte) error {
	return check("CAENHV_UnSubscribeBoardParams", a.unsubBoard(handle, port, slot, names, count, results))
}

func (a *libAPI) UnSubscribeChannelParams(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) error {
	return check("CAENHV_UnSubscribeChannelParams", a.unsubChannel(handle, port, slot, channel, names, count, results))
}

func (a *libAPI) GetEventData(sock uintptr, status *systemStatusRaw, event *unsafe.Pointer, num *uint32) error {
	return check("CAENHV_GetEventData", a.getEventData(sock, status, event, num))
}

func (a *libAPI) FreeEventData(event *unsafe.Pointer) error {
	return check("CAENHV_FreeEventData", a.freeEventData(event))
}

// Free releases a library-allocated buffer. The native status return is
// dropped: Free runs on deferred cleanup paths that have no caller to
// report to.
func (a *libAPI) Free(p unsafe.Pointer) {
	_ = a.free(p)
}

func (a *libAPI) SwRelease() string {
	return a.swRel()
}

func (a *libAPI) ErrorMessage(handle int32) string {
	return a.getError(handle)
}
