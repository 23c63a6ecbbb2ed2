package evdevio

import "unsafe"

// evdev ioctl request-number construction, following the same _IOC() macro
// linux/ioctl.h defines. golang-evdev's exported InputDevice does not
// surface raw capability bitmasks in a way this daemon can rely on across
// versions, so probing here goes straight to the ioctls, the same way the
// uinput side (internal/output) builds its own request numbers instead of
// trusting a wrapper library's internal layout.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocRead = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

// eviocgbit builds EVIOCGBIT(ev, len): read back the capability bitmap for
// event type ev into a buffer of len bytes.
func eviocgbit(ev, length int) uintptr {
	return ioc(iocRead, 'E', uintptr(0x20+ev), uintptr(length))
}

// eviocgabs builds EVIOCGABS(abs): read back one axis's input_absinfo.
func eviocgabs(abs int) uintptr {
	return ioc(iocRead, 'E', uintptr(0x40+abs), uintptr(unsafe.Sizeof(absInfo{})))
}

// eviocgkey builds EVIOCGKEY(len): read back the current key-down bitmap.
func eviocgkey(length int) uintptr {
	return ioc(iocRead, 'E', 0x18, uintptr(length))
}

// eviocgrab is EVIOCGRAB: fixed size, no length parameter.
func eviocgrab() uintptr {
	return ioc(1 /* _IOC_WRITE */, 'E', 0x90, uintptr(unsafe.Sizeof(int32(0))))
}

// absInfo mirrors struct input_absinfo from linux/input.h.
type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}
