package registry

import "fmt"

// ControlType distinguishes a key/button control from an absolute axis.
type ControlType int

const (
	Key ControlType = iota
	Axis
)

// KeyControl is a button-like control: pressed state plus the cached handler name
// a loaded profile installed for it.
type KeyControl struct {
	Code        uint16
	Pressed     bool
	HandlerName string
}

// AxisControl is an absolute axis: current value, declared range, and its
// cached handler name.
type AxisControl struct {
	Code        uint16
	Value       int32
	Min, Max    int32
	HandlerName string
}

// SetValue clamps v into [Min, Max] before storing it, matching the
// original's defense against a device reporting a sample outside its own
// declared range.
func (a *AxisControl) SetValue(v int32) {
	if a.Min < a.Max {
		if v < a.Min {
			v = a.Min
		}
		if v > a.Max {
			v = a.Max
		}
	}
	a.Value = v
}

// Registry is a device's control table: every key and absolute axis it
// declared at open time, looked up by evdev code. One Registry per device
// session (component F owns it).
type Registry struct {
	keys  map[uint16]*KeyControl
	axes  map[uint16]*AxisControl
}

// New builds an empty registry; callers populate it via AddKey/AddAxis
// while probing device capabilities.
func New() *Registry {
	return &Registry{
		keys: make(map[uint16]*KeyControl),
		axes: make(map[uint16]*AxisControl),
	}
}

// AddKey declares a key control present on the device. pressed is the
// initial state; a kernel that refuses to report pressed-bits should pass
// false (assume released), per spec §4.B.
func (r *Registry) AddKey(code uint16, pressed bool) *KeyControl {
	k := &KeyControl{Code: code, Pressed: pressed}
	r.keys[code] = k
	return k
}

// AddAxis declares an absolute axis. A kernel that refuses to report range
// information should pass min == max == 0.
func (r *Registry) AddAxis(code uint16, value, min, max int32) *AxisControl {
	a := &AxisControl{Code: code, Value: value, Min: min, Max: max}
	r.axes[code] = a
	return a
}

// FindKey returns the key control for code, or nil if the device did not
// declare it.
func (r *Registry) FindKey(code uint16) *KeyControl { return r.keys[code] }

// FindAxis returns the axis control for code, or nil if the device did not
// declare it.
func (r *Registry) FindAxis(code uint16) *AxisControl { return r.axes[code] }

// Keys returns every declared key control, in no particular order.
func (r *Registry) Keys() []*KeyControl {
	out := make([]*KeyControl, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	return out
}

// Axes returns every declared axis control, in no particular order.
func (r *Registry) Axes() []*AxisControl {
	out := make([]*AxisControl, 0, len(r.axes))
	for _, a := range r.axes {
		out = append(out, a)
	}
	return out
}

// IsKeyPressed, AbsValue, AbsMin and AbsMax satisfy scheduler.ControlSource,
// the query surface a profile script's is_key_pressed/get_abs* callbacks
// read from. An undeclared code reads as false/0 rather than panicking,
// since a script may reference a control this particular device lacks.
func (r *Registry) IsKeyPressed(code uint16) bool {
	if k := r.keys[code]; k != nil {
		return k.Pressed
	}
	return false
}

func (r *Registry) AbsValue(code uint16) int32 {
	if a := r.axes[code]; a != nil {
		return a.Value
	}
	return 0
}

func (r *Registry) AbsMin(code uint16) int32 {
	if a := r.axes[code]; a != nil {
		return a.Min
	}
	return 0
}

func (r *Registry) AbsMax(code uint16) int32 {
	if a := r.axes[code]; a != nil {
		return a.Max
	}
	return 0
}

// ClearHandlerNames wipes every control's cached handler name. Called
// before installing a new profile so a stale name never survives a reload.
func (r *Registry) ClearHandlerNames() {
	for _, k := range r.keys {
		k.HandlerName = ""
	}
	for _, a := range r.axes {
		a.HandlerName = ""
	}
}

// HandlerName is the derived, canonical name a profile's per-control body
// is wrapped in: `function <name>(type, code, value) ... end`.
func HandlerName(t ControlType, code uint16) string {
	kind := "key"
	if t == Axis {
		kind = "axis"
	}
	return fmt.Sprintf("_jsprog_event_%s_%04x", kind, code)
}

// SetHandlerName installs the canonical derived name on the referenced
// control. No-op if the device does not have that control.
func (r *Registry) SetHandlerName(t ControlType, code uint16) {
	name := HandlerName(t, code)
	switch t {
	case Key:
		if k := r.keys[code]; k != nil {
			k.HandlerName = name
		}
	case Axis:
		if a := r.axes[code]; a != nil {
			a.HandlerName = name
		}
	}
}
