package caenhv

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/caen-go/caenlibs/internal/cmem"
	"github.com/caen-go/caenlibs/pkg/caenhv/logging"
)

// Device is one opened connection to a physical system. The handle is
// assigned by the native library and every operation requires the device to
// be open. A Device is not safe for concurrent use: the native library does
// not coordinate concurrent calls on one handle, and this layer adds no
// locking of its own. Callers that poll the event stream while issuing
// synchronous calls must serialize externally.
type Device struct {
	api nativeAPI
	log logging.Logger

	handle     int32
	opened     bool
	systemType SystemType
	linkType   LinkType
	arg        string
	username   string
	password   string

	// Event stream state, managed in events.go.
	port       int16
	listener   net.Listener
	conn       net.Conn
	connFile   *os.File
	eventFD    uintptr
	haveEvents bool
}

// Option customizes a Device at Open time.
type Option func(*Device)

// WithCredentials sets the login pair passed to the native init call.
// Systems without authentication ignore it.
func WithCredentials(username, password string) Option {
	return func(d *Device) {
		d.username = username
		d.password = password
	}
}

// WithLogger routes the device's debug output through l instead of the
// default slog-backed logger.
func WithLogger(l logging.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// Open connects to a system and returns the Device owning the native
// handle. arg selects the endpoint for the chosen link type, an IP address
// for TCPIP or a device path for serial links.
func Open(systemType SystemType, linkType LinkType, arg string, opts ...Option) (*Device, error) {
	api, err := newAPI()
	if err != nil {
		return nil, err
	}
	d := &Device{
		api:        api,
		log:        logging.New(nil),
		systemType: systemType,
		linkType:   linkType,
		arg:        arg,
	}
	for _, opt := range opts {
		opt(d)
	}
	handle, err := api.InitSystem(int32(systemType), int32(linkType), arg, d.username, d.password)
	if err != nil {
		return nil, err
	}
	d.handle = handle
	d.opened = true
	d.log.Debug(context.Background(), "device opened",
		"system", systemType, "link", linkType, "arg", arg, "handle", handle,
		logging.Redacted("password"))
	return d, nil
}

// Connect reopens a device previously closed with Close, preserving its
// identity but receiving a fresh native handle. New devices are created
// with Open.
func (d *Device) Connect() error {
	if d.opened {
		return ErrAlreadyOpen
	}
	handle, err := d.api.InitSystem(int32(d.systemType), int32(d.linkType), d.arg, d.username, d.password)
	if err != nil {
		return err
	}
	d.handle = handle
	d.opened = true
	d.log.Debug(context.Background(), "device reconnected", "handle", handle)
	return nil
}

// Close releases the native handle and tears down any event sockets. The
// event stream is bound to the handle value, so a reconnect rebuilds it
// from scratch.
func (d *Device) Close() error {
	if !d.opened {
		return ErrNotOpen
	}
	if err := d.api.DeinitSystem(d.handle); err != nil {
		return err
	}
	d.opened = false
	d.closeEvents()
	d.log.Debug(context.Background(), "device closed", "handle", d.handle)
	return nil
}

// WhileClosed closes the device, runs fn, then reconnects. Useful around
// commands that reboot the crate. The reconnect happens even when fn
// fails.
func (d *Device) WhileClosed(fn func() error) error {
	if err := d.Close(); err != nil {
		return err
	}
	return errors.Join(fn(), d.Connect())
}

// Handle returns the native handle of the open session.
func (d *Device) Handle() int32 { return d.handle }

// Opened reports whether the native handle is valid and usable.
func (d *Device) Opened() bool { return d.opened }

// SystemType returns the system family the device was opened with.
func (d *Device) SystemType() SystemType { return d.systemType }

// LinkType returns the link the device was opened with.
func (d *Device) LinkType() LinkType { return d.linkType }

// Arg returns the connection argument the device was opened with.
func (d *Device) Arg() string { return d.arg }

func (d *Device) requireOpen() error {
	if !d.opened {
		return ErrNotOpen
	}
	return nil
}

// GetCrateMap queries the crate configuration, one Board per slot. Empty
// slots yield zero-valued entries.
func (d *Device) GetCrateMap() ([]Board, error) {
	if err := d.requireOpen(); err != nil {
		return nil, err
	}
	var fl cmem.FreeList
	defer fl.Release(d.api.Free)

	var nrOfSlots uint16
	chCounts, models, descs := fl.Ptr(), fl.Ptr(), fl.Ptr()
	serials, fwMins, fwMaxes := fl.Ptr(), fl.Ptr(), fl.Ptr()
	if err := d.api.GetCrateMap(d.handle, &nrOfSlots, chCounts, models, descs, serials, fwMins, fwMaxes); err != nil {
		return nil, err
	}

	n := int(nrOfSlots)
	modelNames := cmem.StringsP(*models, n)
	descriptions := cmem.StringsP(*descs, n)
	boards := make([]Board, n)
	for i := range boards {
		boards[i] = Board{
			Model:        modelNames[i],
			Description:  descriptions[i],
			SerialNumber: cmem.U16(*serials, i),
			NrOfChannels: cmem.U16(*chCounts, i),
			FwVersion:    FwVersion{Major: cmem.U8(*fwMaxes, i), Minor: cmem.U8(*fwMins, i)},
		}
	}
	return boards, nil
}

// TestBdPresence probes one slot and returns its board description. Absent
// boards make the native call fail with CodeSlotNotPresent.
func (d *Device) TestBdPresence(slot uint16) (Board, error) {
	if err := d.requireOpen(); err != nil {
		return Board{}, err
	}
	var fl cmem.FreeList
	defer fl.Release(d.api.Free)

	var (
		nrOfCh uint16
		serial uint16
		fwMin  uint8
		fwMax  uint8
	)
	model, desc := fl.Ptr(), fl.Ptr()
	if err := d.api.TestBdPresence(d.handle, slot, &nrOfCh, model, desc, &serial, &fwMin, &fwMax); err != nil {
		return Board{}, err
	}
	return Board{
		Model:        cmem.GoString(*model),
		Description:  cmem.GoString(*desc),
		SerialNumber: serial,
		NrOfChannels: nrOfCh,
		FwVersion:    FwVersion{Major: fwMax, Minor: fwMin},
	}, nil
}

// GetExecCommList returns the commands the system accepts through
// ExecComm.
func (d *Device) GetExecCommList() ([]string, error) {
	if err := d.requireOpen(); err != nil {
		return nil, err
	}
	var fl cmem.FreeList
	defer fl.Release(d.api.Free)

	var num uint16
	names := fl.Ptr()
	if err := d.api.GetExecCommList(d.handle, &num, names); err != nil {
		return nil, err
	}
	return cmem.StringsP(*names, int(num)), nil
}

// ExecComm executes one named system command.
func (d *Device) ExecComm(name string) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	return d.api.ExecComm(d.handle, name)
}

// LastError returns the native library's descriptive message for the most
// recent failure on this device.
func (d *Device) LastError() (string, error) {
	if err := d.requireOpen(); err != nil {
		return "", err
	}
	return d.api.ErrorMessage(d.handle), nil
}

// SoftwareRelease returns the version string of the loaded native library.
func SoftwareRelease() (string, error) {
	api, err := newAPI()
	if err != nil {
		return "", err
	}
	return api.SwRelease(), nil
}
