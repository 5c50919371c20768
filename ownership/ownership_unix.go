//go:build !windows

package ownership

import (
	"golang.org/x/sys/unix"
)

func platformChown(fd, uid, gid int) error {
	return unix.Fchown(fd, uid, gid)
}

// Owner returns the owning uid of fd as reported by fstat.
func Owner(fd int) (uint32, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}

	return st.Uid, nil
}
