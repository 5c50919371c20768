//go:build !windows

package osutil

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// SignalNotify asks the OS to deliver the signals netresolvd acts on to c: TERM and INT
// stop, HUP flushes caches, USR1 reports stats and USR2 toggles query logging.
func SignalNotify(c chan os.Signal) {
	signal.Notify(c, os.Interrupt, unix.SIGHUP, unix.SIGTERM, unix.SIGUSR1, unix.SIGUSR2)
}

// SignalStop undoes SignalNotify.
func SignalStop(c chan os.Signal) {
	signal.Stop(c)
}

func IsSignalUSR1(s os.Signal) bool {
	return s == unix.SIGUSR1
}

func IsSignalUSR2(s os.Signal) bool {
	return s == unix.SIGUSR2
}

func IsSignalTERM(s os.Signal) bool {
	return s == unix.SIGTERM
}

func IsSignalINT(s os.Signal) bool {
	return s == os.Interrupt
}

func IsSignalHUP(s os.Signal) bool {
	return s == unix.SIGHUP
}
