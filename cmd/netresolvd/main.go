package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/markdingo/netresolv"
	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/osutil"
	"github.com/markdingo/netresolv/ownership"
	"github.com/markdingo/netresolv/pregen"
)

func reportError(severity string, err error, messages ...string) {
	msg := severity
	if len(messages) > 0 {
		msg += ": " + strings.Join(messages, " ")
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(log.Out(), msg)
}

func fatal(err error, messages ...string) {
	reportError("Fatal", err, messages...)
	os.Exit(1)
}

func warning(err error, messages ...string) {
	reportError("Warning", err, messages...)
}

//////////////////////////////////////////////////////////////////////

func main() {
	nr := newNetresolvd(nil)
	switch nr.parseOptions(os.Args) {
	case parseStop:
		return
	case parseFailed:
		os.Exit(1)
	case parseContinue:
	}

	// Transfer logging options to the log package

	if nr.cfg.logMajorFlag {
		log.SetLevel(log.MajorLevel)
	}
	if nr.cfg.logMinorFlag {
		log.SetLevel(log.MinorLevel)
	}
	if nr.cfg.logDebugFlag {
		log.SetLevel(log.DebugLevel)
	}

	fmt.Fprintln(log.Out(),
		programName, pregen.Version, "Starting with Log Level:", log.Level())

	// Validate everything that is likely a typo or usage error
	err := nr.ValidateCommandLineOptions()
	if err != nil {
		fatal(err)
	}

	err = nr.start()
	if err != nil {
		fatal(err)
	}

	err = osutil.Constrain(nr.cfg.group, nr.cfg.chroot)
	if err != nil {
		fatal(err)
	}
	log.Minor("Constraints: ", osutil.ConstraintReport())

	nr.Run()

	nr.statsReport(false) // Final stats - depending on log level
	nr.svc.Shutdown()

	fmt.Fprintln(log.Out(), programName, pregen.Version, "Exiting after",
		time.Since(nr.startTime).Round(time.Second))
}

// netresolvd is the program state shared by main, the option parser and Run.
type netresolvd struct {
	cfg       *config
	svc       *netresolv.Service
	sig       chan os.Signal
	startTime time.Time
	statsTime time.Time
}

func newNetresolvd(cfg *config) *netresolvd {
	if cfg == nil {
		cfg = newConfig()
	}

	return &netresolvd{cfg: cfg, sig: make(chan os.Signal, 1), startTime: time.Now()}
}

// start creates the Service, configures the one network and installs the host
// callbacks, which also starts the control listener.
func (t *netresolvd) start() error {
	svcCfg := netresolv.Config{
		Listen:       t.cfg.listen,
		ControlNetID: t.cfg.netID,
		ControlUID:   t.cfg.controlUID,
		CacheSize:    t.cfg.cacheSize,
		Ownership:    ownership.New(t.cfg.apiLevel, nil),
	}
	if t.cfg.rrlConfig.IsActive() {
		svcCfg.RRL = t.cfg.rrlConfig
	}
	if t.svc == nil {
		t.svc = netresolv.New(svcCfg)
	}

	err := t.svc.CreateNetworkCache(t.cfg.netID)
	if err != nil {
		return err
	}
	err = t.svc.SetNameserversErr(t.cfg.netID, t.cfg.nameservers, t.cfg.search,
		t.cfg.params)
	if err != nil {
		return err
	}
	cfg, _ := t.svc.NetworkConfig(t.cfg.netID)
	log.Major("Network ", cfg.String())

	t.svc.SetLogQueries(t.cfg.logQueriesFlag)
	err = t.svc.Init(hostCallbacks(t.cfg.denyDomains))
	if err != nil {
		return err
	}
	if len(t.cfg.listen) > 0 {
		addr := t.svc.ControlAddress()
		if len(addr) == 0 {
			warning(nil, "Control listener", t.cfg.listen, "is not running")
		} else {
			log.Major("Listen on: udp ", addr)
		}
	}

	return nil
}
