// Package registry holds the per-device control table (component B): the
// enumerated keys and absolute axes a joystick reports, plus the static
// name<->code tables shared by every device.
//
// The tables below stand in for the ones the original project generated
// from /usr/include/linux/input-event-codes.h with keys2py.py/axes2py.py
// (see original_source/scripts): every code up to numKeyNames/numAxisNames
// has a name, either a real symbolic one or a synthesized "KEY_0xNNN"
// (or "ABS_0xNN") placeholder, so KeyName/AxisName are total functions over their range.
package registry

import "fmt"

// numKeyNames and numAxisNames bound the code ranges keys2py.py/axes2py.py
// would have generated for. The original had an off-by-one here (nil at
// code == numNames-1); this reimplementation uses a proper "< numNames"
// bound instead of reproducing it, as the spec's design notes ask for.
const (
	numKeyNames  = 0x300
	numAxisNames = 0x40
)

// keyNames holds the subset of Linux input-event-codes.h key/button names
// this daemon recognizes by name; everything else in [0, numKeyNames) still
// resolves through KeyName as a synthesized placeholder.
var keyNames = map[uint16]string{
	0x00: "KEY_RESERVED",
	0x01: "KEY_ESC",
	0x02: "KEY_1",
	0x03: "KEY_2",
	0x04: "KEY_3",
	0x05: "KEY_4",
	0x06: "KEY_5",
	0x07: "KEY_6",
	0x08: "KEY_7",
	0x09: "KEY_8",
	0x0a: "KEY_9",
	0x0b: "KEY_0",
	0x0c: "KEY_MINUS",
	0x0d: "KEY_EQUAL",
	0x0e: "KEY_BACKSPACE",
	0x0f: "KEY_TAB",
	0x10: "KEY_Q",
	0x11: "KEY_W",
	0x12: "KEY_E",
	0x13: "KEY_R",
	0x14: "KEY_T",
	0x15: "KEY_Y",
	0x16: "KEY_U",
	0x17: "KEY_I",
	0x18: "KEY_O",
	0x19: "KEY_P",
	0x1a: "KEY_LEFTBRACE",
	0x1b: "KEY_RIGHTBRACE",
	0x1c: "KEY_ENTER",
	0x1d: "KEY_LEFTCTRL",
	0x1e: "KEY_A",
	0x1f: "KEY_S",
	0x20: "KEY_D",
	0x21: "KEY_F",
	0x22: "KEY_G",
	0x23: "KEY_H",
	0x24: "KEY_J",
	0x25: "KEY_K",
	0x26: "KEY_L",
	0x27: "KEY_SEMICOLON",
	0x28: "KEY_APOSTROPHE",
	0x29: "KEY_GRAVE",
	0x2a: "KEY_LEFTSHIFT",
	0x2b: "KEY_BACKSLASH",
	0x2c: "KEY_Z",
	0x2d: "KEY_X",
	0x2e: "KEY_C",
	0x2f: "KEY_V",
	0x30: "KEY_B",
	0x31: "KEY_N",
	0x32: "KEY_M",
	0x33: "KEY_COMMA",
	0x34: "KEY_DOT",
	0x35: "KEY_SLASH",
	0x36: "KEY_RIGHTSHIFT",
	0x37: "KEY_KPASTERISK",
	0x38: "KEY_LEFTALT",
	0x39: "KEY_SPACE",
	0x3a: "KEY_CAPSLOCK",
	0x3b: "KEY_F1",
	0x3c: "KEY_F2",
	0x3d: "KEY_F3",
	0x3e: "KEY_F4",
	0x3f: "KEY_F5",
	0x40: "KEY_F6",
	0x41: "KEY_F7",
	0x42: "KEY_F8",
	0x43: "KEY_F9",
	0x44: "KEY_F10",
	0x45: "KEY_NUMLOCK",
	0x46: "KEY_SCROLLLOCK",
	0x57: "KEY_F11",
	0x58: "KEY_F12",
	0x60: "KEY_KPENTER",
	0x61: "KEY_RIGHTCTRL",
	0x62: "KEY_KPSLASH",
	0x64: "KEY_RIGHTALT",
	0x66: "KEY_HOME",
	0x67: "KEY_UP",
	0x68: "KEY_PAGEUP",
	0x69: "KEY_LEFT",
	0x6a: "KEY_RIGHT",
	0x6b: "KEY_END",
	0x6c: "KEY_DOWN",
	0x6d: "KEY_PAGEDOWN",
	0x6e: "KEY_INSERT",
	0x6f: "KEY_DELETE",
	0x7d: "KEY_LEFTMETA",
	0x7e: "KEY_RIGHTMETA",

	// buttons, BTN_MISC..BTN_GEAR_UP range used by joysticks/gamepads.
	0x100: "BTN_0",
	0x101: "BTN_1",
	0x110: "BTN_LEFT",
	0x111: "BTN_RIGHT",
	0x112: "BTN_MIDDLE",
	0x113: "BTN_SIDE",
	0x114: "BTN_EXTRA",
	0x115: "BTN_FORWARD",
	0x116: "BTN_BACK",
	0x117: "BTN_TASK",
	0x120: "BTN_TRIGGER",
	0x121: "BTN_THUMB",
	0x122: "BTN_THUMB2",
	0x123: "BTN_TOP",
	0x124: "BTN_TOP2",
	0x125: "BTN_PINKIE",
	0x126: "BTN_BASE",
	0x127: "BTN_BASE2",
	0x128: "BTN_BASE3",
	0x129: "BTN_BASE4",
	0x12a: "BTN_BASE5",
	0x12b: "BTN_BASE6",
	0x12f: "BTN_DEAD",
	0x130: "BTN_A",
	0x131: "BTN_B",
	0x132: "BTN_C",
	0x133: "BTN_X",
	0x134: "BTN_Y",
	0x135: "BTN_Z",
	0x136: "BTN_TL",
	0x137: "BTN_TR",
	0x138: "BTN_TL2",
	0x139: "BTN_TR2",
	0x13a: "BTN_SELECT",
	0x13b: "BTN_START",
	0x13c: "BTN_MODE",
	0x13d: "BTN_THUMBL",
	0x13e: "BTN_THUMBR",
	0x220: "BTN_DPAD_UP",
	0x221: "BTN_DPAD_DOWN",
	0x222: "BTN_DPAD_LEFT",
	0x223: "BTN_DPAD_RIGHT",
}

// axisNames covers the ABS_* range a joystick declares (ABS_X..ABS_HAT3Y
// plus a few well known extras).
var axisNames = map[uint16]string{
	0x00: "ABS_X",
	0x01: "ABS_Y",
	0x02: "ABS_Z",
	0x03: "ABS_RX",
	0x04: "ABS_RY",
	0x05: "ABS_RZ",
	0x06: "ABS_THROTTLE",
	0x07: "ABS_RUDDER",
	0x08: "ABS_WHEEL",
	0x09: "ABS_GAS",
	0x0a: "ABS_BRAKE",
	0x10: "ABS_HAT0X",
	0x11: "ABS_HAT0Y",
	0x12: "ABS_HAT1X",
	0x13: "ABS_HAT1Y",
	0x14: "ABS_HAT2X",
	0x15: "ABS_HAT2Y",
	0x16: "ABS_HAT3X",
	0x17: "ABS_HAT3Y",
	0x18: "ABS_PRESSURE",
	0x19: "ABS_DISTANCE",
	0x28: "ABS_MISC",
}

// RelNames covers REL_X, REL_Y and REL_WHEEL, the relative axes the virtual
// output device declares (see internal/output), plus REL_HWHEEL, which it
// does not declare. They are exposed here since scripts refer to them by
// symbolic name (rel2cc.py's counterpart in original_source).
var RelNames = map[uint16]string{
	0x00: "REL_X",
	0x01: "REL_Y",
	0x06: "REL_HWHEEL",
	0x08: "REL_WHEEL",
}

var keyCodes = reverse(keyNames)
var axisCodes = reverse(axisNames)

func reverse(m map[uint16]string) map[string]uint16 {
	r := make(map[string]uint16, len(m))
	for code, name := range m {
		r[name] = code
	}
	return r
}

// KeyName returns the symbolic name of a key/button code, or a synthesized
// KEY_0xNNN placeholder if the code is unnamed but in range. ok is false
// only outside [0, numKeyNames).
func KeyName(code uint16) (name string, ok bool) {
	if code >= numKeyNames {
		return "", false
	}
	if n, has := keyNames[code]; has {
		return n, true
	}
	return fmt.Sprintf("KEY_0x%03X", code), true
}

// AxisName is KeyName's counterpart for absolute axis codes.
func AxisName(code uint16) (name string, ok bool) {
	if code >= numAxisNames {
		return "", false
	}
	if n, has := axisNames[code]; has {
		return n, true
	}
	return fmt.Sprintf("ABS_0x%02X", code), true
}

// KeyFromName is the static, case-sensitive, exact inverse of KeyName for
// codes that carry a real symbolic name (synthesized placeholders are not
// accepted back in, matching the source table's intent).
func KeyFromName(name string) (code uint16, ok bool) {
	code, ok = keyCodes[name]
	return
}

// AxisFromName is AxisName's inverse.
func AxisFromName(name string) (code uint16, ok bool) {
	code, ok = axisCodes[name]
	return
}

// AllKeyNames returns every named (non-synthesized) key/button code, for
// installing symbolic constants into a script state.
func AllKeyNames() map[uint16]string { return keyNames }

// AllAxisNames returns every named absolute axis code.
func AllAxisNames() map[uint16]string { return axisNames }

