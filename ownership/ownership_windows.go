package ownership

import "errors"

var errUnsupported = errors.New("socket ownership is not supported on windows")

func platformChown(fd, uid, gid int) error {
	return errUnsupported
}

func Owner(fd int) (uint32, error) {
	return 0, errUnsupported
}
