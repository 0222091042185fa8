package caenhv

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/mock"
)

func TestOpenAssignsHandle(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	if got := d.Handle(); got != 7 {
		t.Errorf("Handle() = %d, want 7", got)
	}
	if !d.Opened() {
		t.Error("Opened() = false after Open")
	}
	if got := d.SystemType(); got != SystemTypeSY4527 {
		t.Errorf("SystemType() = %v, want SY4527", got)
	}
	if got := d.Arg(); got != "192.0.2.1" {
		t.Errorf("Arg() = %q, want 192.0.2.1", got)
	}
	m.AssertExpectations(t)
}

func TestOpenPassesCredentials(t *testing.T) {
	m := withMockAPI(t)
	m.On("InitSystem", int32(SystemTypeSY5527), int32(LinkTypeTCPIP), "10.0.0.5", "admin", "admin").
		Return(3, nil).Once()

	d, err := Open(SystemTypeSY5527, LinkTypeTCPIP, "10.0.0.5", WithCredentials("admin", "admin"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.Handle() != 3 {
		t.Errorf("Handle() = %d, want 3", d.Handle())
	}
	m.AssertExpectations(t)
}

func TestOpenPropagatesNativeError(t *testing.T) {
	m := withMockAPI(t)
	m.On("InitSystem", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(0, &Error{Code: CodeLoginFailed, Func: "CAENHV_InitSystem"}).Once()

	_, err := Open(SystemTypeSY4527, LinkTypeTCPIP, "192.0.2.1")
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("Open error = %v, want *Error", err)
	}
	if e.Code != CodeLoginFailed {
		t.Errorf("Code = %v, want LOGINFAILED", e.Code)
	}
}

func TestCloseReleasesHandle(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	m.On("DeinitSystem", int32(7)).Return(nil).Once()

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.Opened() {
		t.Error("Opened() = true after Close")
	}
	if err := d.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("second Close = %v, want ErrNotOpen", err)
	}
	m.AssertExpectations(t)
}

func TestConnectReopensWithFreshHandle(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	if err := d.Connect(); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("Connect while open = %v, want ErrAlreadyOpen", err)
	}

	m.On("DeinitSystem", int32(7)).Return(nil).Once()
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m.On("InitSystem", int32(SystemTypeSY4527), int32(LinkTypeTCPIP), "192.0.2.1", "", "").
		Return(9, nil).Once()
	if err := d.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !d.Opened() || d.Handle() != 9 {
		t.Errorf("after Connect: opened=%v handle=%d, want true/9", d.Opened(), d.Handle())
	}
	m.AssertExpectations(t)
}

func TestWhileClosedReconnectsAroundFn(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	m.On("DeinitSystem", int32(7)).Return(nil).Once()
	m.On("InitSystem", int32(SystemTypeSY4527), int32(LinkTypeTCPIP), "192.0.2.1", "", "").
		Return(11, nil).Once()

	var sawClosed bool
	err := d.WhileClosed(func() error {
		sawClosed = !d.Opened()
		return nil
	})
	if err != nil {
		t.Fatalf("WhileClosed: %v", err)
	}
	if !sawClosed {
		t.Error("fn ran with the device still open")
	}
	if !d.Opened() || d.Handle() != 11 {
		t.Errorf("after WhileClosed: opened=%v handle=%d, want true/11", d.Opened(), d.Handle())
	}
	m.AssertExpectations(t)
}

func TestWhileClosedReconnectsEvenWhenFnFails(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	m.On("DeinitSystem", int32(7)).Return(nil).Once()
	m.On("InitSystem", int32(SystemTypeSY4527), int32(LinkTypeTCPIP), "192.0.2.1", "", "").
		Return(12, nil).Once()

	boom := errors.New("boom")
	err := d.WhileClosed(func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("WhileClosed = %v, want wrapped fn error", err)
	}
	if !d.Opened() {
		t.Error("device not reconnected after failing fn")
	}
	m.AssertExpectations(t)
}

func TestGetCrateMapDecodesBoards(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	m.On("GetCrateMap", int32(7), mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(1).(*uint16)) = 2
			*(args.Get(2).(*unsafe.Pointer)) = u16Buf(12, 6)                        // channel counts
			*(args.Get(3).(*unsafe.Pointer)) = packed("A1832", "A1821")             // models
			*(args.Get(4).(*unsafe.Pointer)) = packed("12 Ch HV", "6 Ch HV")        // descriptions
			*(args.Get(5).(*unsafe.Pointer)) = u16Buf(301, 302)                     // serials
			*(args.Get(6).(*unsafe.Pointer)) = u8Buf(1, 4)                          // fw minor
			*(args.Get(7).(*unsafe.Pointer)) = u8Buf(3, 2)                          // fw major
		}).
		Return(nil).Once()
	m.On("Free", mock.Anything).Return().Times(6)

	boards, err := d.GetCrateMap()
	if err != nil {
		t.Fatalf("GetCrateMap: %v", err)
	}
	want := []Board{
		{Model: "A1832", Description: "12 Ch HV", SerialNumber: 301, NrOfChannels: 12, FwVersion: FwVersion{Major: 3, Minor: 1}},
		{Model: "A1821", Description: "6 Ch HV", SerialNumber: 302, NrOfChannels: 6, FwVersion: FwVersion{Major: 2, Minor: 4}},
	}
	if diff := cmp.Diff(want, boards); diff != "" {
		t.Errorf("boards mismatch (-want +got):\n%s", diff)
	}
	m.AssertExpectations(t)
}

func TestGetCrateMapRequiresOpen(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	m.On("DeinitSystem", int32(7)).Return(nil).Once()
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := d.GetCrateMap(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GetCrateMap on closed device = %v, want ErrNotOpen", err)
	}
	m.AssertNotCalled(t, "GetCrateMap", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBdPresenceDecodesBoard(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	m.On("TestBdPresence", int32(7), uint16(4), mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(2).(*uint16)) = 6
			*(args.Get(3).(*unsafe.Pointer)) = packed("A1821")
			*(args.Get(4).(*unsafe.Pointer)) = packed("6 Ch Neg HV")
			*(args.Get(5).(*uint16)) = 42
			*(args.Get(6).(*uint8)) = 5
			*(args.Get(7).(*uint8)) = 1
		}).
		Return(nil).Once()
	m.On("Free", mock.Anything).Return().Times(2)

	board, err := d.TestBdPresence(4)
	if err != nil {
		t.Fatalf("TestBdPresence: %v", err)
	}
	want := Board{Model: "A1821", Description: "6 Ch Neg HV", SerialNumber: 42, NrOfChannels: 6, FwVersion: FwVersion{Major: 1, Minor: 5}}
	if diff := cmp.Diff(want, board); diff != "" {
		t.Errorf("board mismatch (-want +got):\n%s", diff)
	}
	m.AssertExpectations(t)
}

func TestBdPresenceEmptySlot(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	m.On("TestBdPresence", int32(7), uint16(9), mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&Error{Code: CodeSlotNotPresent, Func: "CAENHV_TestBdPresence"}).Once()

	_, err := d.TestBdPresence(9)
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeSlotNotPresent {
		t.Fatalf("TestBdPresence = %v, want SLOTNOTPRES", err)
	}
	m.AssertExpectations(t)
}

func TestGetExecCommListDecodesNames(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)

	m.On("GetExecCommList", int32(7), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(1).(*uint16)) = 2
			*(args.Get(2).(*unsafe.Pointer)) = packed("Kill", "ClearAlarm")
		}).
		Return(nil).Once()
	m.On("Free", mock.Anything).Return().Once()

	cmds, err := d.GetExecCommList()
	if err != nil {
		t.Fatalf("GetExecCommList: %v", err)
	}
	if diff := cmp.Diff([]string{"Kill", "ClearAlarm"}, cmds); diff != "" {
		t.Errorf("command list mismatch (-want +got):\n%s", diff)
	}
	m.AssertExpectations(t)
}

func TestExecCommRunsNamedCommand(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	m.On("ExecComm", int32(7), "Kill").Return(nil).Once()

	if err := d.ExecComm("Kill"); err != nil {
		t.Fatalf("ExecComm: %v", err)
	}
	m.AssertExpectations(t)
}

func TestLastErrorReadsNativeMessage(t *testing.T) {
	m := withMockAPI(t)
	d := openTestDevice(t, m)
	m.On("ErrorMessage", int32(7)).Return("Communication timeout").Once()

	msg, err := d.LastError()
	if err != nil {
		t.Fatalf("LastError: %v", err)
	}
	if msg != "Communication timeout" {
		t.Errorf("LastError = %q", msg)
	}
	m.AssertExpectations(t)
}

func TestSoftwareRelease(t *testing.T) {
	m := withMockAPI(t)
	m.On("SwRelease").Return("6.3").Once()

	rel, err := SoftwareRelease()
	if err != nil {
		t.Fatalf("SoftwareRelease: %v", err)
	}
	if rel != "6.3" {
		t.Errorf("SoftwareRelease = %q, want 6.3", rel)
	}
	m.AssertExpectations(t)
}
