// Package discovery watches /dev/input for joystick device nodes coming
// and going, using fsnotify the same way chzchzchz-pedals watches its
// input directory for a pedal board being plugged in.
package discovery

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Event is one hotplug notice: a device node appeared or disappeared.
type Event struct {
	Path    string
	Removed bool
}

// Watcher relays /dev/input/eventN create/remove notices on Events.
type Watcher struct {
	log     *logrus.Entry
	fsw     *fsnotify.Watcher
	Events  chan Event
	Errors  chan error
	closeCh chan struct{}
}

// New starts watching dir (normally /dev/input) for event device nodes.
func New(dir string, log *logrus.Entry) (*Watcher, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		log:     log,
		fsw:     fsw,
		Events:  make(chan Event, 16),
		Errors:  make(chan error, 4),
		closeCh: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.Events)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isEventNode(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				w.Events <- Event{Path: ev.Name}
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				w.Events <- Event{Path: ev.Name, Removed: true}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("discovery: watch error")
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

func isEventNode(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "event")
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.closeCh)
	return w.fsw.Close()
}
