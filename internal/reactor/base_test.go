package reactor_test

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	. "github.com/jsprogd/jsprogd/internal/reactor"
)

func TestNewBase(t *testing.T) {
	b, err := NewBase()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAddDelEvent(t *testing.T) {
	b, err := NewBase()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	ev := New(fds[0], EvRead, func(fd int, res uint32, arg interface{}) {}, nil)

	if err := b.AddEvent(ev, 0); err != nil {
		t.Fatal(err)
	}
	if err := b.DelEvent(ev); err != nil {
		t.Fatal(err)
	}
}

func TestTimerFires(t *testing.T) {
	b, err := NewBase()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	fired := make(chan struct{}, 1)
	ev := NewTimer(func(fd int, res uint32, arg interface{}) {
		fired <- struct{}{}
		b.Shutdown()
	}, nil)
	if err := b.AddEvent(ev, 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Dispatch() }()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	<-done
}

func TestUnblockIsIdempotent(t *testing.T) {
	b, err := NewBase()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	// Multiple calls before the reactor drains the wake pipe must collapse
	// into a single wake-up rather than queuing one iteration per call.
	b.Unblock()
	b.Unblock()
	b.Unblock()

	woke := make(chan struct{}, 1)
	ev := NewTimer(func(fd int, res uint32, arg interface{}) {
		woke <- struct{}{}
		b.Shutdown()
	}, nil)
	if err := b.AddEvent(ev, 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Dispatch() }()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("reactor never progressed past the coalesced wake")
	}
	<-done
}
