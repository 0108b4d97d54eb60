package reaktor

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// RaiseFileLimit lifts the soft open-file limit up to max, capped by the
// hard limit, and returns the resulting value. Descriptor-heavy loops call
// it once at startup; a max of zero just reports the current limit.
func RaiseFileLimit(max uint64) (uint64, error) {
	limit := &unix.Rlimit{}
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, limit); err != nil {
		return 0, ioError("getrlimit", err)
	}
	if max > limit.Max {
		max = limit.Max
	}
	if max <= limit.Cur {
		return limit.Cur, nil
	}
	limit.Cur = max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, limit); err != nil {
		return 0, ioError("setrlimit", err)
	}
	log.Info().Msgf("raised OS limit of open files to %d", limit.Cur)
	return limit.Cur, nil
}
