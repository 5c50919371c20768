package ownership

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/atomic"

	"github.com/markdingo/netresolv/log"
)

const (
	// CapabilityThreshold is the lowest capability level at which sockets are chowned
	// to the requesting uid.
	CapabilityThreshold = 30

	// DefaultCapabilityLevel applies when nothing else is configured.
	DefaultCapabilityLevel = CapabilityThreshold

	// AIDDNS is the reserved identity of the DNS service.
	AIDDNS = 1051

	// CapabilityEnv may hold the capability level at start-up.
	CapabilityEnv = "NETRESOLV_API_LEVEL"
)

// ErrOwnershipChangeFailed is wrapped by all TagSocket failures.
var ErrOwnershipChangeFailed = errors.New("socket ownership change failed")

// ChownFunc changes the owner of fd. gid of -1 leaves the group alone.
type ChownFunc func(fd, uid, gid int) error

// Adapter holds the capability level and the chown implementation. The zero value is
// not usable, use New.
type Adapter struct {
	level atomic.Int64
	chown ChownFunc
}

// New creates an Adapter at level. A nil chown selects the platform implementation.
func New(level int, chown ChownFunc) *Adapter {
	if chown == nil {
		chown = platformChown
	}
	t := &Adapter{chown: chown}
	t.level.Store(int64(level))

	return t
}

// NewFromEnv creates an Adapter with the level from CapabilityEnv, or
// DefaultCapabilityLevel if that is unset or malformed.
func NewFromEnv() *Adapter {
	return New(LevelFromEnv(), nil)
}

// LevelFromEnv returns the capability level found in CapabilityEnv.
func LevelFromEnv() int {
	s := os.Getenv(CapabilityEnv)
	if len(s) == 0 {
		return DefaultCapabilityLevel
	}
	l, err := strconv.Atoi(s)
	if err != nil || l < 0 {
		log.Minorf("ownership: ignoring bad %s=%q", CapabilityEnv, s)
		return DefaultCapabilityLevel
	}

	return l
}

// SetCapabilityLevel is normally only called at start-up, but tests use it to exercise
// both ownership branches.
func (t *Adapter) SetCapabilityLevel(l int) {
	t.level.Store(int64(l))
}

func (t *Adapter) CapabilityLevel() int {
	return int(t.level.Load())
}

// OwnerFor returns the uid a socket requested for uid will actually be given.
func (t *Adapter) OwnerFor(uid uint32) uint32 {
	if t.CapabilityLevel() >= CapabilityThreshold {
		return uid
	}

	return AIDDNS
}

// TagSocket changes the owner of fd according to the capability level. Failure is
// returned wrapping ErrOwnershipChangeFailed and is never retried. The caller remains
// responsible for closing fd.
func (t *Adapter) TagSocket(fd int, uid uint32) error {
	owner := t.OwnerFor(uid)
	err := t.chown(fd, int(owner), -1)
	if err != nil {
		return fmt.Errorf("%w: fd=%d uid=%d: %w", ErrOwnershipChangeFailed, fd, owner, err)
	}
	if log.IfDebug() {
		log.Debugf("ownership: fd=%d uid=%d owner=%d level=%d", fd, uid, owner,
			t.CapabilityLevel())
	}

	return nil
}
