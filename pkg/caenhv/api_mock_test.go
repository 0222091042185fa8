package caenhv

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/mock"
)

// mockAPI simulates the native layer so the session logic can run without
// the vendor library. Tests fill output buffers through Run hooks, the
// same way the native library writes into caller memory.
type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) InitSystem(system, link int32, arg, user, pass string) (int32, error) {
	args := m.Called(system, link, arg, user, pass)
	return int32(args.Int(0)), args.Error(1)
}

func (m *mockAPI) DeinitSystem(handle int32) error {
	return m.Called(handle).Error(0)
}

func (m *mockAPI) GetCrateMap(handle int32, slots *uint16, chCounts, models, descs, serials, fwMins, fwMaxes *unsafe.Pointer) error {
	return m.Called(handle, slots, chCounts, models, descs, serials, fwMins, fwMaxes).Error(0)
}

func (m *mockAPI) TestBdPresence(handle int32, slot uint16, nrOfCh *uint16, model, desc *unsafe.Pointer, serial *uint16, fwMin, fwMax *uint8) error {
	return m.Called(handle, slot, nrOfCh, model, desc, serial, fwMin, fwMax).Error(0)
}

func (m *mockAPI) GetSysPropList(handle int32, num *uint16, names *unsafe.Pointer) error {
	return m.Called(handle, num, names).Error(0)
}

func (m *mockAPI) GetSysPropInfo(handle int32, name string, mode, typ *uint32) error {
	return m.Called(handle, name, mode, typ).Error(0)
}

func (m *mockAPI) GetSysProp(handle int32, name string, result unsafe.Pointer) error {
	return m.Called(handle, name, result).Error(0)
}

func (m *mockAPI) SetSysProp(handle int32, name string, value unsafe.Pointer) error {
	return m.Called(handle, name, value).Error(0)
}

func (m *mockAPI) GetBdParam(handle int32, slots []uint16, name string, result unsafe.Pointer) error {
	return m.Called(handle, slots, name, result).Error(0)
}

func (m *mockAPI) SetBdParam(handle int32, slots []uint16, name string, value unsafe.Pointer) error {
	return m.Called(handle, slots, name, value).Error(0)
}

func (m *mockAPI) GetBdParamProp(handle int32, slot uint16, name, prop string, result unsafe.Pointer) error {
	return m.Called(handle, slot, name, prop, result).Error(0)
}

func (m *mockAPI) GetBdParamInfo(handle int32, slot uint16, names *unsafe.Pointer) error {
	return m.Called(handle, slot, names).Error(0)
}

func (m *mockAPI) GetChParamProp(handle int32, slot, channel uint16, name, prop string, result unsafe.Pointer) error {
	return m.Called(handle, slot, channel, name, prop, result).Error(0)
}

func (m *mockAPI) GetChParamInfo(handle int32, slot, channel uint16, names *unsafe.Pointer, size *int32) error {
	return m.Called(handle, slot, channel, names, size).Error(0)
}

func (m *mockAPI) GetChName(handle int32, slot uint16, channels []uint16, names []byte) error {
	return m.Called(handle, slot, channels, names).Error(0)
}

func (m *mockAPI) SetChName(handle int32, slot uint16, channels []uint16, name string) error {
	return m.Called(handle, slot, channels, name).Error(0)
}

func (m *mockAPI) GetChParam(handle int32, slot uint16, name string, channels []uint16, result unsafe.Pointer) error {
	return m.Called(handle, slot, name, channels, result).Error(0)
}

func (m *mockAPI) SetChParam(handle int32, slot uint16, name string, channels []uint16, value unsafe.Pointer) error {
	return m.Called(handle, slot, name, channels, value).Error(0)
}

func (m *mockAPI) GetExecCommList(handle int32, num *uint16, names *unsafe.Pointer) error {
	return m.Called(handle, num, names).Error(0)
}

func (m *mockAPI) ExecComm(handle int32, name string) error {
	return m.Called(handle, name).Error(0)
}

func (m *mockAPI) SubscribeSystemParams(handle int32, port int16, names string, count uint32, results []byte) error {
	return m.Called(handle, port, names, count, results).Error(0)
}

func (m *mockAPI) SubscribeBoardParams(handle int32, port int16, slot uint16, names string, count uint32, results []byte) error {
	return m.Called(handle, port, slot, names, count, results).Error(0)
}

func (m *mockAPI) SubscribeChannelParams(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) error {
	return m.Called(handle, port, slot, channel, names, count, results).Error(0)
}

func (m *mockAPI) UnSubscribeSystemParams(handle int32, port int16, names string, count uint32, results []byte) error {
	return m.Called(handle, port, names, count, results).Error(0)
}

func (m *mockAPI) UnSubscribeBoardParams(handle int32, port int16, slot uint16, names string, count uint32, results []byte) error {
	return m.Called(handle, port, slot, names, count, results).Error(0)
}

func (m *mockAPI) UnSubscribeChannelParams(handle int32, port int16, slot, channel uint16, names string, count uint32, results []byte) error {
	return m.Called(handle, port, slot, channel, names, count, results).Error(0)
}

func (m *mockAPI) GetEventData(sock uintptr, status *systemStatusRaw, event *unsafe.Pointer, num *uint32) error {
	return m.Called(sock, status, event, num).Error(0)
}

func (m *mockAPI) FreeEventData(event *unsafe.Pointer) error {
	return m.Called(event).Error(0)
}

func (m *mockAPI) Free(p unsafe.Pointer) {
	m.Called(p)
}

func (m *mockAPI) SwRelease() string {
	return m.Called().String(0)
}

func (m *mockAPI) ErrorMessage(handle int32) string {
	return m.Called(handle).String(0)
}

// withMockAPI swaps the native layer for a mock for the duration of the
// test.
func withMockAPI(t *testing.T) *mockAPI {
	t.Helper()
	m := &mockAPI{}
	prev := newAPI
	newAPI = func() (nativeAPI, error) { return m, nil }
	t.Cleanup(func() { newAPI = prev })
	return m
}

// openTestDevice opens a SY4527 over TCPIP against the mock, which
// assigns handle 7.
func openTestDevice(t *testing.T, m *mockAPI) *Device {
	t.Helper()
	m.On("InitSystem", int32(SystemTypeSY4527), int32(LinkTypeTCPIP), "192.0.2.1", "", "").
		Return(7, nil).Once()
	d, err := Open(SystemTypeSY4527, LinkTypeTCPIP, "192.0.2.1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return d
}

// u16Buf, u8Buf and packed build native-looking output buffers for Run
// hooks to hand back through pointer out-parameters.
func u16Buf(vals ...uint16) unsafe.Pointer {
	buf := make([]uint16, len(vals))
	copy(buf, vals)
	return unsafe.Pointer(&buf[0])
}

func u8Buf(vals ...uint8) unsafe.Pointer {
	buf := make([]uint8, len(vals))
	copy(buf, vals)
	return unsafe.Pointer(&buf[0])
}

// packed encodes strings back to back, each NUL-terminated.
func packed(ss ...string) unsafe.Pointer {
	var buf []byte
	for _, s := range ss {
		buf = append(buf, s...)
		buf = append(buf, 0)
	}
	return unsafe.Pointer(&buf[0])
}

// packedFixed encodes strings at a constant stride and appends an empty
// sentinel entry.
func packedFixed(stride int, ss ...string) unsafe.Pointer {
	buf := make([]byte, 0, (len(ss)+1)*stride)
	for _, s := range ss {
		entry := make([]byte, stride)
		copy(entry, s)
		buf = append(buf, entry...)
	}
	buf = append(buf, make([]byte, stride)...)
	return unsafe.Pointer(&buf[0])
}
