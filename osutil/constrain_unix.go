//go:build !windows

package osutil

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	me = "osutil.Constrain: "
)

// Constrain reduces what the process can reach by changing to a nominated group and
// chrooting to a directory which presumably has very little in or below it.
//
// The uid is never changed. Giving query sockets away to the requesting uid needs the
// chown capability, which setuid would lose.
//
// The group name is converted to a gid first while /etc/group (or the moral equivalent)
// is still reachable, then the chroot happens, then supplementary groups are cleared as
// part of setgid. Each step is optional if the corresponding parameter is empty.
func Constrain(groupName, chrootDir string) error {
	gid := -1
	if len(groupName) > 0 {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return fmt.Errorf(me+"Group name lookup failed: %w", err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return fmt.Errorf(me+"Could not convert GID %s to an int: %w", g.Gid, err)
		}
	}

	if len(chrootDir) > 0 {
		if err := os.Chdir(chrootDir); err != nil {
			return fmt.Errorf(me+"Could not cd to %s: %w", chrootDir, err)
		}
		if err := unix.Chroot(chrootDir); err != nil {
			return fmt.Errorf(me+"Could not chroot to %s: %w", chrootDir, err)
		}
		if err := os.Chdir("/"); err != nil {
			return fmt.Errorf(me+"Could not cd to /: %w", err)
		}
	}

	if gid != -1 {
		if err := unix.Setgroups([]int{}); err != nil {
			return fmt.Errorf(me+"Could not clear group list: %w", err)
		}
		if err := unix.Setgid(gid); err != nil {
			return fmt.Errorf(me+"Could not setgid to %d/%s: %w", gid, groupName, err)
		}
	}

	return nil
}

// ConstraintReport returns a printable string showing the uid/gid/cwd of the
// process. Normally called after Constrain() to confirm the reduced reach.
func ConstraintReport() string {
	cwd, _ := os.Getwd()
	gList, _ := os.Getgroups()
	gStr := make([]string, 0, len(gList))
	for _, g := range gList {
		gStr = append(gStr, strconv.Itoa(g))
	}

	return fmt.Sprintf("uid=%d gid=%d (%s) cwd=%s", unix.Getuid(), unix.Getgid(),
		strings.Join(gStr, ","), cwd)
}
