package output

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// uinput ioctl numbers and the uinput_user_dev/input_event layouts, lifted
// from linux/uinput.h and linux/input.h. golang.org/x/sys/unix does not
// generate these (uinput is ioctl-only, not a syscall table entry), so the
// daemon defines them itself the same way the pack's other uinput bindings
// do (see other_examples/openstadia-go-uinput).
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0

	busUSB        = 0x03
	uinputMaxName = 80
	absSize       = 64
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [uinputMaxName]byte
	ID           inputID
	FFEffectsMax uint32
	AbsMax       [absSize]int32
	AbsMin       [absSize]int32
	AbsFuzz      [absSize]int32
	AbsFlat      [absSize]int32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

func ioctlSetBit(fd int, req uint, code uint16) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(code))
	if errno != 0 {
		return errno
	}
	return nil
}

func writeUserDev(fd int, dev *uinputUserDev) error {
	buf := (*[unsafe.Sizeof(uinputUserDev{})]byte)(unsafe.Pointer(dev))[:]
	_, err := unix.Write(fd, buf)
	return err
}

func writeInputEvent(fd int, typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(&ev))[:]
	_, err := unix.Write(fd, buf)
	return err
}
