package caenhv

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/mock"
)

// dialEventPort simulates the native library connecting back to the
// rendezvous listener during a subscribe call.
func dialEventPort(t *testing.T, port int16) {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("dial event port: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
}

func TestSubscribeChannelParamsPartialFailure(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	t.Cleanup(d.closeEvents)

	port := int16(eventPortBase + 7)
	m.On("SubscribeChannelParams", int32(7), port, uint16(0), uint16(4),
		"V0Set:I0Set:Trip:RUp", uint32(4), mock.Anything).
		Run(func(args mock.Arguments) {
			dialEventPort(t, port)
			args.Get(6).([]byte)[2] = 1
		}).
		Return(nil).Once()

	err := d.SubscribeChannelParams(0, 4, []string{"V0Set", "I0Set", "Trip", "RUp"})
	var subErr *SubscribeError
	if !errors.As(err, &subErr) {
		t.Fatalf("SubscribeChannelParams = %v, want *SubscribeError", err)
	}
	if diff := cmp.Diff([]int{2}, subErr.Failed); diff != "" {
		t.Errorf("failed indices mismatch (-want +got):\n%s", diff)
	}
	if subErr.Func != "CAENHV_SubscribeChannelParams" {
		t.Errorf("Func = %q", subErr.Func)
	}
	// The other three names are live, so the stream must be up.
	if !d.haveEvents || d.conn == nil {
		t.Error("event stream not established after partial failure")
	}
	m.AssertExpectations(t)
}

func TestSubscribeSystemParamsEstablishesStreamOnce(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	t.Cleanup(d.closeEvents)

	port := int16(eventPortBase + 7)
	m.On("SubscribeSystemParams", int32(7), port, "CnetCrNum", uint32(1), mock.Anything).
		Run(func(args mock.Arguments) { dialEventPort(t, port) }).
		Return(nil).Once()
	m.On("SubscribeSystemParams", int32(7), port, "HvFanSpeed", uint32(1), mock.Anything).
		Return(nil).Once()

	if err := d.SubscribeSystemParams([]string{"CnetCrNum"}); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	if err := d.SubscribeSystemParams([]string{"HvFanSpeed"}); err != nil {
		t.Fatalf("second subscribe: %v", err)
	}
	if !d.haveEvents {
		t.Error("event stream not established")
	}
	m.AssertExpectations(t)
}

func TestSubscribeBoardParamsJoinsNames(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	t.Cleanup(d.closeEvents)

	port := int16(eventPortBase + 7)
	m.On("SubscribeBoardParams", int32(7), port, uint16(3), "BdStatus:Temp", uint32(2), mock.Anything).
		Run(func(args mock.Arguments) { dialEventPort(t, port) }).
		Return(nil).Once()

	if err := d.SubscribeBoardParams(3, []string{"BdStatus", "Temp"}); err != nil {
		t.Fatalf("SubscribeBoardParams: %v", err)
	}
	m.AssertExpectations(t)
}

func TestSubscribeNativeFailureSkipsStream(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	t.Cleanup(d.closeEvents)

	port := int16(eventPortBase + 7)
	m.On("SubscribeSystemParams", int32(7), port, "Pw", uint32(1), mock.Anything).
		Return(&Error{Code: CodeCommunicationError, Func: "CAENHV_SubscribeSystemParams"}).Once()

	err := d.SubscribeSystemParams([]string{"Pw"})
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeCommunicationError {
		t.Fatalf("SubscribeSystemParams = %v, want COMMUNICATIONERROR", err)
	}
	if d.haveEvents {
		t.Error("event stream established despite native failure")
	}
	m.AssertExpectations(t)
}

// Unsubscribing never touches the stream: it stays connected for the
// remaining subscriptions.
func TestUnsubscribeLeavesStreamAlone(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	t.Cleanup(d.closeEvents)

	port := int16(eventPortBase + 7)
	m.On("SubscribeSystemParams", int32(7), port, "CnetCrNum", uint32(1), mock.Anything).
		Run(func(args mock.Arguments) { dialEventPort(t, port) }).
		Return(nil).Once()
	m.On("UnSubscribeSystemParams", int32(7), port, "CnetCrNum", uint32(1), mock.Anything).
		Return(nil).Once()

	if err := d.SubscribeSystemParams([]string{"CnetCrNum"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := d.UnSubscribeSystemParams([]string{"CnetCrNum"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if !d.haveEvents || d.conn == nil {
		t.Error("unsubscribe tore down the event stream")
	}
	m.AssertExpectations(t)
}

func TestUnsubscribeReportsFailedIndices(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	m.On("UnSubscribeBoardParams", int32(7), int16(0), uint16(2), "Temp", uint32(1), mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(5).([]byte)[0] = 1
		}).
		Return(nil).Once()

	err := d.UnSubscribeBoardParams(2, []string{"Temp"})
	var subErr *SubscribeError
	if !errors.As(err, &subErr) {
		t.Fatalf("UnSubscribeBoardParams = %v, want *SubscribeError", err)
	}
	if subErr.Func != "CAENHV_UnSubscribeBoardParams" || len(subErr.Failed) != 1 || subErr.Failed[0] != 0 {
		t.Errorf("unexpected SubscribeError: %+v", subErr)
	}
	m.AssertExpectations(t)
}

// The R6060 library hands over its own connected descriptor instead of
// dialing back, so no listener is ever bound.
func TestSubscribeOnR6060UsesNativeDescriptor(t *testing.T) {
	m := withMockAPI(t)
	m.On("InitSystem", int32(SystemTypeR6060), int32(LinkTypeTCPIP), "192.0.2.8", "", "").
		Return(5, nil).Once()
	d, err := Open(SystemTypeR6060, LinkTypeTCPIP, "192.0.2.8")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	m.On("SubscribeChannelParams", int32(5), int16(0), uint16(0), uint16(0), "VMon", uint32(1), mock.Anything).
		Return(nil).Once()
	m.On("GetSysProp", int32(5), "EventDataSocket", mock.Anything).
		Run(func(args mock.Arguments) {
			*(*int32)(args.Get(2).(unsafe.Pointer)) = 44
		}).
		Return(nil).Once()

	if err := d.SubscribeChannelParams(0, 0, []string{"VMon"}); err != nil {
		t.Fatalf("SubscribeChannelParams: %v", err)
	}
	if d.listener != nil {
		t.Error("R6060 must not bind a listener")
	}
	if !d.haveEvents || d.eventFD != 44 {
		t.Errorf("descriptor not adopted: haveEvents=%v fd=%d", d.haveEvents, d.eventFD)
	}
	m.AssertNotCalled(t, "GetSysPropInfo", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.AssertExpectations(t)
}

func TestGetEventDataRequiresStream(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	if _, _, err := d.GetEventData(); !errors.Is(err, ErrEventsNotInitialized) {
		t.Errorf("GetEventData = %v, want ErrEventsNotInitialized", err)
	}
	m.AssertNotCalled(t, "GetEventData", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// eventStream puts a device into the post-subscribe state without the
// socket dance.
func eventStream(d *Device, fd uintptr) {
	d.eventFD = fd
	d.haveEvents = true
}

func TestGetEventDataDecodesChannelParameterEvent(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	eventStream(d, 99)

	raw := &eventDataRaw{Type: int32(EventTypeParameter), SystemHandle: 7, BoardIndex: 2, ChannelIndex: 3}
	copy(raw.ItemID[:], "VMon\x00")
	raw.Value.setFloat(1198.25)

	m.On("GetEventData", uintptr(99), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			st := args.Get(1).(*systemStatusRaw)
			st.System = 1
			st.Board[2] = 3
			*(args.Get(2).(*unsafe.Pointer)) = unsafe.Pointer(raw)
			*(args.Get(3).(*uint32)) = 1
		}).
		Return(nil).Once()
	expectChParamType(m, 2, 3, "VMon", ParamTypeNumeric).Once()
	m.On("Free", unsafe.Pointer(raw)).Return().Once()

	ev, status, err := d.GetEventData()
	if err != nil {
		t.Fatalf("GetEventData: %v", err)
	}
	want := EventData{
		Type:         EventTypeParameter,
		ItemID:       "VMon",
		SystemHandle: 7,
		BoardIndex:   2,
		ChannelIndex: 3,
		Value:        FloatValue(1198.25),
	}
	if diff := cmp.Diff(want, ev, cmp.AllowUnexported(Value{})); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
	if status.System != 1 || status.Board[2] != 3 {
		t.Errorf("status = %+v", status)
	}
	m.AssertExpectations(t)
}

func TestGetEventDataDecodesBoardParameterEvent(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	eventStream(d, 99)

	raw := &eventDataRaw{Type: int32(EventTypeParameter), SystemHandle: 7, BoardIndex: 4, ChannelIndex: -1}
	copy(raw.ItemID[:], "BdIlk\x00")
	raw.Value.setInt(1)

	m.On("GetEventData", uintptr(99), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(2).(*unsafe.Pointer)) = unsafe.Pointer(raw)
			*(args.Get(3).(*uint32)) = 1
		}).
		Return(nil).Once()
	expectBdParamType(m, 4, "BdIlk", ParamTypeOnOff).Once()
	m.On("Free", unsafe.Pointer(raw)).Return().Once()

	ev, _, err := d.GetEventData()
	if err != nil {
		t.Fatalf("GetEventData: %v", err)
	}
	if n, ok := ev.Value.AsInt(); !ok || n != 1 {
		t.Errorf("value = %v, want int 1", ev.Value)
	}
	m.AssertExpectations(t)
}

func TestGetEventDataDecodesSystemPropertyEvent(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	eventStream(d, 99)

	raw := &eventDataRaw{Type: int32(EventTypeParameter), SystemHandle: 7, BoardIndex: -1, ChannelIndex: -1}
	copy(raw.ItemID[:], "FrontPanIn\x00")
	raw.Value.setString("remote")

	m.On("GetEventData", uintptr(99), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(2).(*unsafe.Pointer)) = unsafe.Pointer(raw)
			*(args.Get(3).(*uint32)) = 1
		}).
		Return(nil).Once()
	m.On("GetSysPropInfo", int32(7), "FrontPanIn", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(3).(*uint32)) = uint32(SysPropTypeStr)
		}).
		Return(nil).Once()
	m.On("Free", unsafe.Pointer(raw)).Return().Once()

	ev, _, err := d.GetEventData()
	if err != nil {
		t.Fatalf("GetEventData: %v", err)
	}
	if s, ok := ev.Value.AsString(); !ok || s != "remote" {
		t.Errorf("value = %v, want string remote", ev.Value)
	}
	m.AssertExpectations(t)
}

// Keepalive and alarm events carry no typed value, so no discovery call
// may happen for them.
func TestGetEventDataKeepalive(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	eventStream(d, 99)

	raw := &eventDataRaw{Type: int32(EventTypeKeepalive), SystemHandle: 7, BoardIndex: -1, ChannelIndex: -1}

	m.On("GetEventData", uintptr(99), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(2).(*unsafe.Pointer)) = unsafe.Pointer(raw)
			*(args.Get(3).(*uint32)) = 1
		}).
		Return(nil).Once()
	m.On("Free", unsafe.Pointer(raw)).Return().Once()

	ev, _, err := d.GetEventData()
	if err != nil {
		t.Fatalf("GetEventData: %v", err)
	}
	if ev.Type != EventTypeKeepalive || !ev.Value.IsNone() {
		t.Errorf("event = %+v, want keepalive with no value", ev)
	}
	m.AssertNotCalled(t, "GetSysPropInfo", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.AssertExpectations(t)
}

func TestCloseTearsDownEventStream(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	port := int16(eventPortBase + 7)
	m.On("SubscribeSystemParams", int32(7), port, "Pw", uint32(1), mock.Anything).
		Run(func(args mock.Arguments) { dialEventPort(t, port) }).
		Return(nil).Once()
	m.On("DeinitSystem", int32(7)).Return(nil).Once()

	if err := d.SubscribeSystemParams([]string{"Pw"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.listener != nil || d.conn != nil || d.connFile != nil || d.haveEvents {
		t.Error("event stream not torn down by Close")
	}
	if _, _, err := d.GetEventData(); !errors.Is(err, ErrEventsNotInitialized) {
		t.Errorf("GetEventData after Close = %v, want ErrEventsNotInitialized", err)
	}
	m.AssertExpectations(t)
}
