package reaktor

import (
	"os"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

const (
	readEvents  = unix.EPOLLPRI | unix.EPOLLIN
	writeEvents = unix.EPOLLOUT
	errorEvents = unix.EPOLLERR | unix.EPOLLHUP | unix.EPOLLRDHUP
)

// epollPoller is the edge-triggered epoll implementation of Poller. The
// registered token travels in the epoll data word, so waits hand back
// tokens without any fd bookkeeping on this side.
type epollPoller struct {
	fd     int
	events []unix.EpollEvent
}

// OpenPoller creates an epoll instance delivering at most bufferSize events
// per wait.
func OpenPoller(bufferSize int) (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, ioError("open poller", os.NewSyscallError("epoll_create1", err))
	}
	if bufferSize < defEventsBufferSize {
		bufferSize = defEventsBufferSize
	}
	return &epollPoller{
		fd:     fd,
		events: make([]unix.EpollEvent, bufferSize),
	}, nil
}

func (p *epollPoller) Add(fd int, token Token, interest Readiness) error {
	if log.Debug().Enabled() {
		log.Debug().Msgf("add epoll interest %s for fd %d token %d", interest, fd, token)
	}
	ev := unix.EpollEvent{Fd: int32(token), Events: interestBits(interest)}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return ioError("poller add", os.NewSyscallError("epoll_ctl add", err))
	}
	return nil
}

func (p *epollPoller) Mod(fd int, token Token, interest Readiness) error {
	if log.Debug().Enabled() {
		log.Debug().Msgf("mod epoll interest %s for fd %d token %d", interest, fd, token)
	}
	ev := unix.EpollEvent{Fd: int32(token), Events: interestBits(interest)}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return ioError("poller mod", os.NewSyscallError("epoll_ctl mod", err))
	}
	return nil
}

func (p *epollPoller) Delete(fd int) error {
	if log.Debug().Enabled() {
		log.Debug().Msgf("delete epoll for fd %d", fd)
	}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return ioError("poller delete", os.NewSyscallError("epoll_ctl del", err))
	}
	return nil
}

func (p *epollPoller) Wait(msec int, deliver func(Event)) (int, error) {
	evCount, err := epollWait(p.fd, p.events, msec)
	if evCount < 0 && err == unix.EINTR {
		runtime.Gosched()
		return 0, nil
	}
	if err != nil {
		return 0, ioError("poller wait", os.NewSyscallError("epoll_pwait", err))
	}
	for i := 0; i < evCount; i++ {
		event := p.events[i]
		deliver(Event{Token: Token(event.Fd), Ready: readiness(event.Events)})
	}
	return evCount, nil
}

func (p *epollPoller) Close() error {
	if err := unix.Close(p.fd); err != nil {
		return ioError("poller close", os.NewSyscallError("close", err))
	}
	return nil
}

// interestBits translates an interest set into edge-triggered epoll flags.
// Error conditions are always reported, no need to ask for them.
func interestBits(interest Readiness) uint32 {
	bits := uint32(unix.EPOLLET | unix.EPOLLRDHUP)
	if interest.Has(Readable) {
		bits |= readEvents
	}
	if interest.Has(Writable) {
		bits |= writeEvents
	}
	return bits
}

func readiness(events uint32) Readiness {
	var ready Readiness
	if events&readEvents > 0 {
		ready |= Readable
	}
	if events&writeEvents > 0 {
		ready |= Writable
	}
	if events&errorEvents > 0 {
		ready |= Closed
	}
	return ready
}

func epollWait(epollFd int, events []unix.EpollEvent, msec int) (count int, err error) {
	var eventCount uintptr
	var eventsPointer = unsafe.Pointer(&events[0])
	if msec == 0 {
		eventCount, _, err = syscall.RawSyscall6(syscall.SYS_EPOLL_PWAIT, uintptr(epollFd), uintptr(eventsPointer), uintptr(len(events)), 0, 0, 0)
	} else {
		eventCount, _, err = syscall.Syscall6(syscall.SYS_EPOLL_PWAIT, uintptr(epollFd), uintptr(eventsPointer), uintptr(len(events)), uintptr(msec), 0, 0)
	}
	if err == syscall.Errno(0) {
		err = nil
	}
	return int(eventCount), err
}
