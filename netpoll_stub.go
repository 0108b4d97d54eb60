//go:build !linux

package reaktor

import "errors"

// OpenPoller needs epoll; off Linux it reports an i/o failure so the rest
// of the package stays usable for pure stages and tests.
func OpenPoller(bufferSize int) (Poller, error) {
	return nil, ioError("open poller", errors.New("epoll is only available on linux"))
}
