package caenhv

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/caen-go/caenlibs/internal/cmem"
)

// eventPortBase plus the device handle gives the rendezvous port the
// native library connects back to. The formula has no collision avoidance
// when several processes on one host open devices with equal handles; that
// is the documented native behavior.
const eventPortBase = 10001

// initEventsServer binds the rendezvous listener the first time a
// subscribe call runs. Idempotent. The R6060 never listens: its library
// hands over an already-connected descriptor instead.
func (d *Device) initEventsServer() error {
	if d.listener != nil {
		return nil
	}
	if d.systemType == SystemTypeR6060 {
		return nil
	}
	port := eventPortBase + int(d.handle)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("bind event port %d: %w", port, err)
	}
	d.port = int16(port)
	d.listener = ln
	d.log.Debug(context.Background(), "event listener bound", "port", port)
	return nil
}

// initEventsClient establishes the event stream the first time a
// subscribe call completes. Idempotent. On the accept path the native
// library has already connected back during the subscribe call, so the
// accept does not block indefinitely.
func (d *Device) initEventsClient() error {
	if d.haveEvents {
		return nil
	}
	if d.systemType == SystemTypeR6060 {
		v, err := d.GetSysProp("EventDataSocket")
		if err != nil {
			return err
		}
		fd, ok := v.AsInt()
		if !ok {
			return fmt.Errorf("EventDataSocket: expected a descriptor, got %s", v.Kind())
		}
		// The descriptor is owned by the native library; it is recorded,
		// never closed here.
		d.port = 0
		d.eventFD = uintptr(fd)
		d.haveEvents = true
		return nil
	}

	conn, err := d.listener.Accept()
	if err != nil {
		return fmt.Errorf("accept event connection: %w", err)
	}
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return fmt.Errorf("accept event connection: unexpected %T", conn)
	}
	// File duplicates the descriptor in blocking mode, which is what the
	// native recv path expects.
	f, err := tcp.File()
	if err != nil {
		conn.Close()
		return fmt.Errorf("event descriptor: %w", err)
	}
	d.conn = conn
	d.connFile = f
	d.eventFD = f.Fd()
	d.haveEvents = true
	d.log.Debug(context.Background(), "event stream connected", "remote", conn.RemoteAddr())
	return nil
}

// closeEvents tears down the event stream so a reconnect rebuilds it
// against the fresh handle.
func (d *Device) closeEvents() {
	if d.connFile != nil {
		d.connFile.Close()
		d.connFile = nil
	}
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	if d.listener != nil {
		d.listener.Close()
		d.listener = nil
	}
	d.eventFD = 0
	d.haveEvents = false
	d.port = 0
}

// subscribeResult turns the per-parameter result codes into a
// SubscribeError naming the failed indices. Names with a zero code stay
// subscribed regardless.
func subscribeResult(fn string, codes []byte) error {
	var failed []int
	for i, c := range codes {
		if c != 0 {
			failed = append(failed, i)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &SubscribeError{Func: fn, Failed: failed}
}

// SubscribeSystemParams asks the native library to push change
// notifications for the named system properties over the event stream.
// The first subscribe call on a device establishes the stream.
func (d *Device) SubscribeSystemParams(params []string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	if err := d.initEventsServer(); err != nil {
		return err
	}
	results := make([]byte, len(params))
	err := d.api.SubscribeSystemParams(d.handle, d.port, strings.Join(params, ":"), uint32(len(params)), results)
	if err != nil {
		return err
	}
	if err := d.initEventsClient(); err != nil {
		return err
	}
	return subscribeResult("CAENHV_SubscribeSystemParams", results)
}

// SubscribeBoardParams subscribes to the named parameters of one board.
func (d *Device) SubscribeBoardParams(slot uint16, params []string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	if err := d.initEventsServer(); err != nil {
		return err
	}
	results := make([]byte, len(params))
	err := d.api.SubscribeBoardParams(d.handle, d.port, slot, strings.Join(params, ":"), uint32(len(params)), results)
	if err != nil {
		return err
	}
	if err := d.initEventsClient(); err != nil {
		return err
	}
	return subscribeResult("CAENHV_SubscribeBoardParams", results)
}

// SubscribeChannelParams subscribes to the named parameters of one
// channel.
func (d *Device) SubscribeChannelParams(slot, channel uint16, params []string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	if err := d.initEventsServer(); err != nil {
		return err
	}
	results := make([]byte, len(params))
	err := d.api.SubscribeChannelParams(d.handle, d.port, slot, channel, strings.Join(params, ":"), uint32(len(params)), results)
	if err != nil {
		return err
	}
	if err := d.initEventsClient(); err != nil {
		return err
	}
	return subscribeResult("CAENHV_SubscribeChannelParams", results)
}

// UnSubscribeSystemParams cancels system property subscriptions. The
// event stream stays connected.
func (d *Device) UnSubscribeSystemParams(params []string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	results := make([]byte, len(params))
	err := d.api.UnSubscribeSystemParams(d.handle, d.port, strings.Join(params, ":"), uint32(len(params)), results)
	if err != nil {
		return err
	}
	return subscribeResult("CAENHV_UnSubscribeSystemParams", results)
}

// UnSubscribeBoardParams cancels board parameter subscriptions.
func (d *Device) UnSubscribeBoardParams(slot uint16, params []string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	results := make([]byte, len(params))
	err := d.api.UnSubscribeBoardParams(d.handle, d.port, slot, strings.Join(params, ":"), uint32(len(params)), results)
	if err != nil {
		return err
	}
	return subscribeResult("CAENHV_UnSubscribeBoardParams", results)
}

// UnSubscribeChannelParams cancels channel parameter subscriptions.
func (d *Device) UnSubscribeChannelParams(slot, channel uint16, params []string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	results := make([]byte, len(params))
	err := d.api.UnSubscribeChannelParams(d.handle, d.port, slot, channel, strings.Join(params, ":"), uint32(len(params)), results)
	if err != nil {
		return err
	}
	return subscribeResult("CAENHV_UnSubscribeChannelParams", results)
}

// GetEventData blocks on the event stream until the native library
// delivers one event, then decodes it. Keepalive and alarm events carry
// identifiers only; every other type needs one follow-up type discovery
// before the value union can be read. The crate status snapshot filled by
// the same native call is returned alongside.
func (d *Device) GetEventData() (EventData, SystemStatus, error) {
	if !d.haveEvents {
		return EventData{}, SystemStatus{}, ErrEventsNotInitialized
	}
	if err := d.requireOpen(); err != nil {
		return EventData{}, SystemStatus{}, err
	}

	var fl cmem.FreeList
	defer fl.Release(d.api.Free)

	var rawStatus systemStatusRaw
	var num uint32
	event := fl.Ptr()
	if err := d.api.GetEventData(d.eventFD, &rawStatus, event, &num); err != nil {
		return EventData{}, SystemStatus{}, err
	}

	raw := (*eventDataRaw)(*event)
	status := SystemStatus{System: rawStatus.System, Board: rawStatus.Board}
	ev := EventData{
		Type:         EventType(raw.Type),
		ItemID:       cString(raw.ItemID[:]),
		SystemHandle: raw.SystemHandle,
		BoardIndex:   raw.BoardIndex,
		ChannelIndex: raw.ChannelIndex,
	}
	if ev.Type == EventTypeKeepalive || ev.Type == EventTypeAlarm {
		return ev, status, nil
	}

	value, err := d.eventValue(ev, &raw.Value)
	if err != nil {
		return EventData{}, SystemStatus{}, err
	}
	ev.Value = value
	return ev, status, nil
}

// eventValue interprets the union through the owning item's declared
// type: a system property when no board is addressed, otherwise a board
// or channel parameter.
func (d *Device) eventValue(ev EventData, raw *idValueRaw) (Value, error) {
	if ev.BoardIndex == -1 {
		info, err := d.GetSysPropInfo(ev.ItemID)
		if err != nil {
			return Value{}, err
		}
		return sysPropEventValue(info.Type, raw)
	}
	var typ ParamType
	var err error
	if ev.ChannelIndex == -1 {
		typ, err = d.discoverParamType(uint16(ev.BoardIndex), -1, ev.ItemID)
	} else {
		typ, err = d.discoverParamType(uint16(ev.BoardIndex), ev.ChannelIndex, ev.ItemID)
	}
	if err != nil {
		return Value{}, err
	}
	return paramEventValue(typ, raw), nil
}

func sysPropEventValue(typ SysPropType, raw *idValueRaw) (Value, error) {
	switch typ {
	case SysPropTypeStr:
		return StringValue(raw.stringValue()), nil
	case SysPropTypeReal:
		return FloatValue(float64(raw.floatValue())), nil
	case SysPropTypeUint2, SysPropTypeUint4, SysPropTypeInt2, SysPropTypeInt4, SysPropTypeBoolean:
		return IntValue(int64(raw.intValue())), nil
	}
	return Value{}, fmt.Errorf("event for system property type %s has no decoder", typ)
}

func paramEventValue(typ ParamType, raw *idValueRaw) Value {
	switch typ {
	case ParamTypeNumeric:
		return FloatValue(float64(raw.floatValue()))
	case ParamTypeString:
		return StringValue(raw.stringValue())
	}
	return IntValue(int64(raw.intValue()))
}
