// Package evdevio wraps the joystick side of evdev: opening a device node
// in non-blocking mode, probing its key/absolute-axis capabilities, and
// reading one raw sample at a time. It is the thin layer component G's
// event pump reads through, keeping golang-evdev's own device handle out
// of the rest of the daemon.
package evdevio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"
)

// Event types this daemon cares about, mirroring linux/input-event-codes.h.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02
	EvAbs = 0x03

	SynReport = 0
	SynDropped = 3
)

// Event is one raw evdev sample.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// AxisRange is a probed absolute axis's declared bounds and initial value.
type AxisRange struct {
	Code  uint16
	Value int32
	Min   int32
	Max   int32
}

// Device is an open joystick input node.
type Device struct {
	path string
	dev  *evdev.InputDevice
	fd   int
}

// Open opens path (e.g. /dev/input/eventN) for reading and wraps it. The fd
// is switched to non-blocking mode so the event pump can drive it off the
// reactor's single dispatch thread instead of a dedicated reader goroutine.
func Open(path string) (*Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	fd := int(dev.File.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		dev.File.Close()
		return nil, fmt.Errorf("set nonblock %s: %w", path, err)
	}
	return &Device{path: path, dev: dev, fd: fd}, nil
}

// Path returns the device node this handle was opened from.
func (d *Device) Path() string { return d.path }

// Fd returns the underlying file descriptor, for registering with the
// reactor.
func (d *Device) Fd() int { return d.fd }

// Name returns the device's kernel-reported display name.
func (d *Device) Name() string {
	if d.dev == nil {
		return ""
	}
	return d.dev.Name
}

// Grab requests exclusive access to the device, so its raw events stop
// reaching any other consumer (X11, the console, other daemons) while this
// process holds it. Best-effort: callers proceed even on failure, matching
// how BetaXOi-ev_remapper's mapper treats a failed grab as non-fatal.
func (d *Device) Grab() error {
	return d.ioctl(eviocgrab(), 1)
}

// Release undoes Grab.
func (d *Device) Release() error {
	return d.ioctl(eviocgrab(), 0)
}

func (d *Device) ioctl(req uintptr, val int32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(unsafe.Pointer(&val)))
	if errno != 0 {
		return errno
	}
	return nil
}

// EventTypes returns the set of event types (EV_SYN, EV_KEY, EV_ABS, ...)
// the device declares support for at all, via EVIOCGBIT(0, ...) — type 0
// is the kernel's own convention for "the bitmap of supported types
// itself," distinct from EVIOCGBIT(EV_ABS, ...) which asks for the codes
// within one type.
func (d *Device) EventTypes() (map[uint16]bool, error) {
	const numTypes = 0x20
	bitBuf := make([]byte, (numTypes+7)/8)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), eviocgbit(0, len(bitBuf)), uintptr(unsafe.Pointer(&bitBuf[0]))); errno != 0 {
		return nil, fmt.Errorf("EVIOCGBIT(0): %w", errno)
	}
	types := make(map[uint16]bool)
	for t := 0; t < numTypes; t++ {
		if bitSet(bitBuf, t) {
			types[uint16(t)] = true
		}
	}
	return types, nil
}

// KeyCapabilities returns every key/button code the device declares
// support for, and which of those currently read as pressed.
func (d *Device) KeyCapabilities() (codes []uint16, pressed map[uint16]bool, err error) {
	const numKeys = 0x300
	bitBuf := make([]byte, (numKeys+7)/8)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), eviocgbit(EvKey, len(bitBuf)), uintptr(unsafe.Pointer(&bitBuf[0]))); errno != 0 {
		return nil, nil, fmt.Errorf("EVIOCGBIT(EV_KEY): %w", errno)
	}

	keyBuf := make([]byte, (numKeys+7)/8)
	haveKeyState := true
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), eviocgkey(len(keyBuf)), uintptr(unsafe.Pointer(&keyBuf[0]))); errno != 0 {
		haveKeyState = false
	}

	pressed = make(map[uint16]bool)
	for code := 0; code < numKeys; code++ {
		if !bitSet(bitBuf, code) {
			continue
		}
		codes = append(codes, uint16(code))
		if haveKeyState {
			pressed[uint16(code)] = bitSet(keyBuf, code)
		}
	}
	return codes, pressed, nil
}

// AbsCapabilities returns every absolute axis the device declares, with
// its current value and declared range. A device that refuses to report
// range information reads back Min == Max == 0, per spec §4.B.
func (d *Device) AbsCapabilities() ([]AxisRange, error) {
	const numAxes = 0x40
	bitBuf := make([]byte, (numAxes+7)/8)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), eviocgbit(EvAbs, len(bitBuf)), uintptr(unsafe.Pointer(&bitBuf[0]))); errno != 0 {
		return nil, fmt.Errorf("EVIOCGBIT(EV_ABS): %w", errno)
	}

	var axes []AxisRange
	for code := 0; code < numAxes; code++ {
		if !bitSet(bitBuf, code) {
			continue
		}
		var info absInfo
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), eviocgabs(code), uintptr(unsafe.Pointer(&info))); errno != 0 {
			info = absInfo{}
		}
		axes = append(axes, AxisRange{Code: uint16(code), Value: info.Value, Min: info.Minimum, Max: info.Maximum})
	}
	return axes, nil
}

func bitSet(buf []byte, bit int) bool {
	return buf[bit/8]&(1<<uint(bit%8)) != 0
}

// ReadOne reads exactly one raw sample without blocking. Returns
// unix.EAGAIN (wrapped) once the fd has nothing more buffered right now,
// which the event pump takes as its cue to stop and wait for the reactor
// to report the fd readable again.
func (d *Device) ReadOne() (Event, error) {
	raw, err := d.dev.ReadOne()
	if err != nil {
		return Event{}, err
	}
	return Event{Type: raw.Type, Code: raw.Code, Value: raw.Value}, nil
}

// Close releases the device node.
func (d *Device) Close() error {
	return d.dev.File.Close()
}

// decodeInputEvent is kept for tests that want to build a synthetic raw
// evdev record without depending on golang-evdev's own struct layout.
func decodeInputEvent(b []byte) (Event, error) {
	if len(b) < 24 {
		return Event{}, fmt.Errorf("short input_event: %d bytes", len(b))
	}
	r := bytes.NewReader(b[16:])
	var typ, code uint16
	var value int32
	if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
		return Event{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &code); err != nil {
		return Event{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Code: code, Value: value}, nil
}
