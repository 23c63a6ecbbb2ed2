// Package pump implements the event pump (component G): it reads raw
// batches off a joystick's evdev fd, applies the daemon's fixed drop
// rules, folds each surviving sample into the session's control registry,
// and dispatches the transition to the session's script handler.
package pump

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/jsprogd/jsprogd/internal/evdevio"
	"github.com/jsprogd/jsprogd/internal/reactor"
	"github.com/jsprogd/jsprogd/internal/registry"
)

// Target is the subset of *session.Session the pump needs: its registry to
// fold samples into, and Dispatch to hand off a changed control. Declared
// as an interface so pump can be tested without a real evdev/uinput
// backing.
type Target interface {
	Registry() *registry.Registry
	Dispatch(t registry.ControlType, code uint16, value int32)
}

// Pump drives one device's fd-to-registry-to-script pipeline.
type Pump struct {
	log     *logrus.Entry
	dev     *evdevio.Device
	target  Target
	onClose func()

	base    *reactor.Base
	ev      *reactor.Event
	partial []evdevio.Event
}

// New builds a pump bound to dev and target. onClose, if non-nil, runs once
// the device read finally fails (device unplugged or closed).
func New(dev *evdevio.Device, target Target, onClose func(), log *logrus.Entry) *Pump {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pump{log: log.WithField("device", dev.Path()), dev: dev, target: target, onClose: onClose}
}

// Register hooks the device's fd into base's readiness loop, per spec §5:
// every component, including the event pump, runs its reads on the
// reactor's own thread rather than a dedicated goroutine, so there is no
// concurrent access to the shared output device or script interpreter to
// guard against.
func (p *Pump) Register(base *reactor.Base) error {
	p.base = base
	p.ev = reactor.New(p.dev.Fd(), reactor.EvRead|reactor.EvPersist, p.onReadable, nil)
	return base.AddEvent(p.ev, 0)
}

// Close unregisters the device fd from the reactor. Safe to call even if
// Register was never called or already failed.
func (p *Pump) Close() {
	if p.base == nil || p.ev == nil {
		return
	}
	p.base.DelEvent(p.ev)
}

// onReadable drains every sample currently buffered on the fd, applying
// each completed SYN_REPORT-terminated batch as it completes, then returns
// as soon as a read would block (EAGAIN) so the reactor can move on to the
// next ready fd.
func (p *Pump) onReadable(fd int, res uint32, arg interface{}) {
	for {
		ev, err := p.dev.ReadOne()
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return
			}
			if !errors.Is(err, io.EOF) {
				p.log.WithError(err).Info("pump: device read failed, stopping")
			}
			if p.onClose != nil {
				p.onClose()
			}
			return
		}
		p.partial = append(p.partial, ev)
		if ev.Type == evdevio.EvSyn && ev.Code == evdevio.SynReport {
			batch := p.partial
			p.partial = nil
			p.applyBatch(batch)
		}
	}
}

// applyBatch folds one SYN_REPORT-terminated batch into the registry and
// fires handlers for every control that actually changed, per spec §4.G.
func (p *Pump) applyBatch(batch []evdevio.Event) {
	reg := p.target.Registry()
	for _, ev := range batch {
		switch ev.Type {
		case evdevio.EvKey:
			p.applyKey(reg, ev)
		case evdevio.EvAbs:
			p.applyAbs(reg, ev)
		case evdevio.EvSyn, evdevio.EvRel:
			// SYN frames carry no control state of their own; relative
			// axes are output-only on this daemon's virtual device and
			// never appear on a joystick's own input stream in practice.
		default:
			// Any other event type (EV_MSC, EV_FF, ...) is not a control
			// this daemon models and is dropped, matching spec §4.G's
			// fixed drop rule for unrecognized types.
		}
	}
}

func (p *Pump) applyKey(reg *registry.Registry, ev evdevio.Event) {
	k := reg.FindKey(ev.Code)
	if k == nil {
		p.log.WithField("code", ev.Code).Warn("pump: key event for unknown code")
		return
	}
	pressed := ev.Value != 0
	if pressed == k.Pressed {
		return
	}
	k.Pressed = pressed
	p.target.Dispatch(registry.Key, ev.Code, ev.Value)
}

func (p *Pump) applyAbs(reg *registry.Registry, ev evdevio.Event) {
	// ABS_RZ (0x05) is dropped unconditionally for bug-compatibility with
	// the original daemon, which never forwarded it.
	if ev.Code == 0x05 {
		return
	}
	a := reg.FindAxis(ev.Code)
	if a == nil {
		p.log.WithField("code", ev.Code).Warn("pump: abs event for unknown code")
		return
	}
	if ev.Value == a.Value {
		return
	}
	a.SetValue(ev.Value)
	p.target.Dispatch(registry.Axis, ev.Code, a.Value)
}
