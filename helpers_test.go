package netresolv

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/markdingo/netresolv/callbacks"
	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/mock"
	"github.com/markdingo/netresolv/netstore"
	"github.com/markdingo/netresolv/ownership"
	"github.com/markdingo/netresolv/resolver"
)

const (
	testNetID  = 100
	testUID    = 10001
	testServer = "192.0.2.53"
)

var errChown = errors.New("chown refused")

// recorder captures every callback invocation and every ownership change.
type recorder struct {
	mu        sync.Mutex
	evaluated map[string]int
	tagged    []uint32 // uid given to the TagSocket callback
	tags      []uint32
	chowned   []int // uid given to chown
	logs      []string
	chownErr  error
	tagErr    error
}

func newRecorder() *recorder {
	return &recorder{evaluated: make(map[string]int)}
}

func (t *recorder) chown(fd, uid, gid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.chownErr != nil {
		return t.chownErr
	}
	t.chowned = append(t.chowned, uid)

	return nil
}

// set returns a callback Set which allows everything and records everything.
func (t *recorder) set() callbacks.Set {
	return callbacks.Set{
		Log: func(msg string) {
			t.mu.Lock()
			t.logs = append(t.logs, msg)
			t.mu.Unlock()
		},
		TagSocket: func(fd int, tag, uid uint32, pid int32) error {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.tagged = append(t.tagged, uid)
			t.tags = append(t.tags, tag)
			return t.tagErr
		},
		EvaluateDomainName: func(nc callbacks.NetContext, name string) bool {
			t.mu.Lock()
			t.evaluated[name]++
			t.mu.Unlock()
			return true
		},
	}
}

func (t *recorder) evaluations() (names []string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for n, c := range t.evaluated {
		names = append(names, n)
		total += c
	}
	sort.Strings(names)

	return
}

func (t *recorder) taggedUIDs() []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]uint32{}, t.tagged...)
}

func (t *recorder) chownedUIDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]int{}, t.chowned...)
}

// newTestService creates a Service with testNetID configured to use res and rec for
// ownership changes. The callbacks are not initialized.
func newTestService(t *testing.T, res resolver.Resolver, rec *recorder,
	domains ...string) *Service {
	t.Helper()
	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.MajorLevel)

	svc := New(Config{Resolver: res,
		Ownership: ownership.New(ownership.CapabilityThreshold, rec.chown)})
	if err := svc.CreateNetworkCache(testNetID); err != nil {
		t.Fatal("Setup error", err)
	}
	err := svc.SetNameserversErr(testNetID, []string{testServer}, domains,
		netstore.DefaultParams())
	if err != nil {
		t.Fatal("Setup error", err)
	}

	return svc
}

func testContext() callbacks.NetContext {
	return callbacks.NetContext{AppNetID: testNetID, UID: testUID, PID: 1234}
}
