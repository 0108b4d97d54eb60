package reaktor

import (
	"os"

	"golang.org/x/sys/unix"
)

// wakeFd is a non-blocking pipe used as the pollable readiness flag of
// user-space queues: senders write a byte, the loop sees the read end turn
// readable, the receiver drains it.
type wakeFd struct {
	r int
	w int
}

func newWakeFd() (*wakeFd, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, ioError("wake pipe", os.NewSyscallError("pipe", err))
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, ioError("wake pipe", os.NewSyscallError("set nonblock", err))
		}
	}
	return &wakeFd{r: fds[0], w: fds[1]}, nil
}

// Fd returns the readable end for poller registration.
func (w *wakeFd) Fd() int {
	return w.r
}

var wakeByte = []byte{1}

// notify marks the wake readable. A full pipe already wakes the reader, so
// EAGAIN is not a failure.
func (w *wakeFd) notify() error {
	if _, err := unix.Write(w.w, wakeByte); err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return ioError("wake notify", os.NewSyscallError("write", err))
	}
	return nil
}

// drain consumes pending wake bytes until the pipe is empty.
func (w *wakeFd) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if err != nil || n < len(buf) {
			return
		}
	}
}

func (w *wakeFd) close() error {
	werr := unix.Close(w.w)
	rerr := unix.Close(w.r)
	if werr != nil {
		return ioError("wake close", os.NewSyscallError("close", werr))
	}
	if rerr != nil {
		return ioError("wake close", os.NewSyscallError("close", rerr))
	}
	return nil
}
