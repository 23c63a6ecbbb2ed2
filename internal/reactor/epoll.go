package reactor

import (
	"encoding/binary"
	"os"
	"os/signal"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdEvents is the pair of watched events (read/write) registered on one fd.
// Kept off the Event itself so epoll_ctl's udata pointer can find both
// halves in one lookup.
type fdEvents struct {
	r *Event
	w *Event
}

// epollPoller is the Linux readiness backend. It multiplexes ordinary fds
// and OS signals onto a single epoll set by routing signals through a
// self-pipe, so Dispatch never needs more than one syscall.EpollWait call
// per iteration.
type epollPoller struct {
	fd int

	fdEvs    map[int]*fdEvents
	epollEvs []unix.EpollEvent

	signalEvs map[int]*Event
	sigR, sigW int

	onActive func(ev *Event, res uint32)

	exitCh chan struct{}
	wg     sync.WaitGroup
}

func newEpollPoller(onActive func(ev *Event, res uint32)) (*epollPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	ep := &epollPoller{
		fd:        fd,
		fdEvs:     make(map[int]*fdEvents),
		epollEvs:  make([]unix.EpollEvent, 0xFF),
		signalEvs: make(map[int]*Event),
		onActive:  onActive,
		exitCh:    make(chan struct{}),
	}

	if err := ep.initSignalPipe(); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return ep, nil
}

// add registers ev's fd/mask with epoll, or files a signal watch.
func (ep *epollPoller) add(ev *Event) error {
	if ev.Events&EvSignal != 0 {
		ep.signalEvs[ev.Fd] = ev
		return nil
	}

	epEv := unix.EpollEvent{}
	op := unix.EPOLL_CTL_ADD

	fe, ok := ep.fdEvs[ev.Fd]
	if ok {
		op = unix.EPOLL_CTL_MOD
		if fe.r != nil {
			epEv.Events |= unix.EPOLLIN
		}
		if fe.w != nil {
			epEv.Events |= unix.EPOLLOUT
		}
	} else {
		fe = &fdEvents{}
		ep.fdEvs[ev.Fd] = fe
	}

	*(**fdEvents)(unsafe.Pointer(&epEv.Fd)) = fe

	if ev.Events&EvRead != 0 {
		epEv.Events |= unix.EPOLLIN
		fe.r = ev
	}
	if ev.Events&EvWrite != 0 {
		epEv.Events |= unix.EPOLLOUT
		fe.w = ev
	}

	return unix.EpollCtl(ep.fd, op, ev.Fd, &epEv)
}

// del unregisters ev, downgrading the epoll_ctl to MOD if the fd still has
// the other half (read xor write) registered.
func (ep *epollPoller) del(ev *Event) error {
	if ev.Events&EvSignal != 0 {
		delete(ep.signalEvs, ev.Fd)
		return nil
	}

	fe, ok := ep.fdEvs[ev.Fd]
	if !ok {
		return nil
	}

	if ev.Events&EvRead != 0 {
		fe.r = nil
	}
	if ev.Events&EvWrite != 0 {
		fe.w = nil
	}

	if fe.r == nil && fe.w == nil {
		delete(ep.fdEvs, ev.Fd)
		return unix.EpollCtl(ep.fd, unix.EPOLL_CTL_DEL, ev.Fd, &unix.EpollEvent{})
	}

	epEv := unix.EpollEvent{}
	*(**fdEvents)(unsafe.Pointer(&epEv.Fd)) = fe
	if fe.r != nil {
		epEv.Events |= unix.EPOLLIN
	}
	if fe.w != nil {
		epEv.Events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(ep.fd, unix.EPOLL_CTL_MOD, ev.Fd, &epEv)
}

// polling blocks up to timeoutMs (-1 for forever) and fires onActive for
// every ready fd or delivered signal.
func (ep *epollPoller) polling(timeoutMs int) error {
	n, err := unix.EpollWait(ep.fd, ep.epollEvs, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}

	for i := 0; i < n; i++ {
		if int(ep.epollEvs[i].Fd) == ep.sigR {
			ep.onSignal()
			continue
		}

		what := ep.epollEvs[i].Events
		fe := *(**fdEvents)(unsafe.Pointer(&ep.epollEvs[i].Fd))

		if what&unix.EPOLLIN != 0 && fe.r != nil {
			ep.onActive(fe.r, EvRead)
		}
		if what&unix.EPOLLOUT != 0 && fe.w != nil {
			ep.onActive(fe.w, EvWrite)
		}
	}

	return nil
}

func (ep *epollPoller) close() error {
	close(ep.exitCh)
	ep.wg.Wait()
	unix.Close(ep.sigR)
	unix.Close(ep.sigW)
	return unix.Close(ep.fd)
}

// initSignalPipe arranges for os/signal deliveries to show up as ordinary
// epoll readiness on ep.sigR, so the reactor never blocks a second way.
func (ep *epollPoller) initSignalPipe() error {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	ep.sigR, ep.sigW = fds[0], fds[1]

	ep.wg.Add(1)
	go func() {
		defer ep.wg.Done()
		ch := make(chan os.Signal, 8)
		signal.Notify(ch)
		defer signal.Stop(ch)
		for {
			select {
			case sig := <-ch:
				buf := make([]byte, binary.MaxVarintLen64)
				n := binary.PutUvarint(buf, uint64(sig.(unix.Signal)))
				unix.Write(ep.sigW, buf[:n])
			case <-ep.exitCh:
				return
			}
		}
	}()

	return unix.EpollCtl(ep.fd, unix.EPOLL_CTL_ADD, ep.sigR, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(ep.sigR)})
}

func (ep *epollPoller) onSignal() {
	buf := make([]byte, binary.MaxVarintLen64)
	unix.Read(ep.sigR, buf)

	sigNum, _ := binary.Uvarint(buf)
	if ev, ok := ep.signalEvs[int(sigNum)]; ok {
		ep.onActive(ev, EvSignal)
	}
}
