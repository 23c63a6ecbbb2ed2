// Package output implements the virtual output device (component A): a
// synthetic /dev/uinput sink that buffers key/relative transitions and
// commits them as one batch at an explicit synchronize() boundary.
package output

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Relative axis and mouse button codes the device declares, per spec §4.A.
const (
	RelX     uint16 = 0x00
	RelY     uint16 = 0x01
	RelWheel uint16 = 0x08

	BtnLeft   uint16 = 0x110
	BtnRight  uint16 = 0x111
	BtnMiddle uint16 = 0x112
)

// maxKeyBits mirrors the kernel's KEY_MAX+1 limit on the number of key
// capability bits a uinput device may declare. Any name past this is
// dropped from the capability set, logged once, rather than failing open.
const maxKeyBits = 0x300

// DevicePath is where /dev/uinput normally lives.
const DevicePath = "/dev/uinput"

// Device is the virtual output sink. Every session shares one Device;
// because only one scheduler step runs at a time (spec §5), no locking is
// needed around Press/Release/MoveRelative/Synchronize.
type Device struct {
	log   *logrus.Entry
	fd    int
	dirty bool

	invalid    bool
	loggedOnce bool
}

// Open creates the uinput device, declares its capability set, and calls
// UI_DEV_CREATE. keyCodes is every key/button code the daemon may ever
// need to emit; codes past maxKeyBits are dropped and the drop count is
// logged, matching spec §4.A.
func Open(log *logrus.Entry, path string, keyCodes []uint16) (*Device, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if path == "" {
		path = DevicePath
	}

	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	d := &Device{log: log, fd: fd}

	if err := ioctlSetBit(fd, uiSetEvBit, evKey); err != nil {
		d.closeFd()
		return nil, err
	}
	if err := ioctlSetBit(fd, uiSetEvBit, evRel); err != nil {
		d.closeFd()
		return nil, err
	}
	if err := ioctlSetBit(fd, uiSetEvBit, evSyn); err != nil {
		d.closeFd()
		return nil, err
	}

	dropped := 0
	declared := 0
	for _, code := range keyCodes {
		if code >= maxKeyBits {
			dropped++
			continue
		}
		if err := ioctlSetBit(fd, uiSetKeyBit, code); err != nil {
			d.closeFd()
			return nil, fmt.Errorf("declare key 0x%x: %w", code, err)
		}
		declared++
	}
	for _, code := range []uint16{BtnLeft, BtnRight, BtnMiddle} {
		if err := ioctlSetBit(fd, uiSetKeyBit, code); err != nil {
			d.closeFd()
			return nil, err
		}
	}
	for _, code := range []uint16{RelX, RelY, RelWheel} {
		if err := ioctlSetBit(fd, uiSetRelBit, code); err != nil {
			d.closeFd()
			return nil, err
		}
	}
	if dropped > 0 {
		log.WithField("dropped", dropped).Warn("output: kernel capability bit limit exceeded, some key codes will never be emitted")
	}

	dev := uinputUserDev{
		ID: inputID{Bustype: busUSB, Vendor: 0x5649, Product: 0x4a50, Version: 1},
	}
	copy(dev.Name[:], "JSProg keyboard & mouse")
	if err := writeUserDev(fd, &dev); err != nil {
		d.closeFd()
		return nil, err
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(uiDevCreate), 0); errno != 0 {
		d.closeFd()
		return nil, errno
	}

	log.WithField("keys_declared", declared).Info("output: virtual device created")
	return d, nil
}

func (d *Device) closeFd() {
	unix.Close(d.fd)
}

// Press records a key-down transition. No-op once the sink is invalid.
func (d *Device) Press(code uint16) { d.emitKey(code, 1) }

// Release records a key-up transition.
func (d *Device) Release(code uint16) { d.emitKey(code, 0) }

func (d *Device) emitKey(code uint16, value int32) {
	if d.invalid {
		return
	}
	if err := writeInputEvent(d.fd, evKey, code, value); err != nil {
		d.fail(err)
		return
	}
	d.dirty = true
}

// MoveRelative records a relative motion sample on axisCode (RelX, RelY, or
// RelWheel).
func (d *Device) MoveRelative(axisCode uint16, delta int32) {
	if d.invalid || delta == 0 {
		return
	}
	if err := writeInputEvent(d.fd, evRel, axisCode, delta); err != nil {
		d.fail(err)
		return
	}
	d.dirty = true
}

// Synchronize commits the batch of events written since the last call, iff
// anything was actually recorded. Idempotent when nothing is pending.
func (d *Device) Synchronize() {
	if d.invalid || !d.dirty {
		return
	}
	if err := writeInputEvent(d.fd, evSyn, synReport, 0); err != nil {
		d.fail(err)
		return
	}
	d.dirty = false
}

// Close destroys the uinput device.
func (d *Device) Close() error {
	if d.invalid {
		return nil
	}
	unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(uiDevDestroy), 0)
	return unix.Close(d.fd)
}

// fail marks the sink permanently invalid on the first write failure and
// logs once; every call after this is a silent no-op, per spec §4.A/§7.
func (d *Device) fail(err error) {
	d.invalid = true
	if !d.loggedOnce {
		d.loggedOnce = true
		d.log.WithError(err).Error("output: sink write failed, disabling virtual device")
	}
}
