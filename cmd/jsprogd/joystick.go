package main

import "github.com/jsprogd/jsprogd/internal/evdevio"

// isJoystick opens path just long enough to probe its declared event types
// and absolute axes, applying spec §4.G's device-acceptance predicate
// exactly: supports EV_SYN and EV_ABS, and declares at least one absolute
// axis. Key-capability bits, if any, are not examined; a device with no
// buttons at all still qualifies as long as it has an axis.
func isJoystick(path string) bool {
	dev, err := evdevio.Open(path)
	if err != nil {
		return false
	}
	defer dev.Close()

	types, err := dev.EventTypes()
	if err != nil {
		return false
	}
	if !types[evdevio.EvSyn] || !types[evdevio.EvAbs] {
		return false
	}

	axes, err := dev.AbsCapabilities()
	if err != nil {
		return false
	}
	return len(axes) > 0
}
