package main

import (
	"fmt"
	"os"
	"time"

	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/osutil"
	"github.com/markdingo/netresolv/pregen"
)

// Run the server loop checking for signals and stats reports events
func (t *netresolvd) Run() {
	t.startTime = time.Now()
	t.statsTime = t.startTime

	var signal os.Signal
	osutil.SignalNotify(t.sig) // Register interest in signals
	defer osutil.SignalStop(t.sig)

	fmt.Fprintln(log.Out(), programName, pregen.Version, "Ready")

	// Conditionally create the periodic report channel. Fortunately select purposely
	// doesn't mind a nil channel, which is very convenient.
	var reportChannel <-chan time.Time
	if t.cfg.reportInterval > 0 {
		reportTicker := time.NewTicker(t.cfg.reportInterval)
		reportChannel = reportTicker.C
		defer reportTicker.Stop()
	}

	stopFlag := false
	for !stopFlag {
		select {
		case <-reportChannel:
			t.statsReport(true)

		case signal = <-t.sig:
			switch {
			case osutil.IsSignalTERM(signal), osutil.IsSignalINT(signal):
				stopFlag = true

			case osutil.IsSignalUSR1(signal): // USR1 produces a status report
				t.statsReport(false)

			case osutil.IsSignalUSR2(signal): // USR2 toggles --log-queries
				t.svc.SetLogQueries(!t.svc.LogQueries())
				log.Majorf("--log-queries=%t", t.svc.LogQueries())

			case osutil.IsSignalHUP(signal):
				log.Major("SIGHUP answer caches flushed")
				t.svc.FlushCaches()

			default:
				log.Majorf("Signal '%s' reserved for future use", signal)
			}
		}
	}

	log.Majorf("Signal '%s' initiates shutdown", signal)
}

// Writes summary stats to Stdout
func (t *netresolvd) statsReport(resetCounters bool) {
	now := time.Now()
	statsDuration := now.Sub(t.statsTime).Round(time.Second)
	if resetCounters {
		t.statsTime = now
	}

	// Include version for stats parsers as the output may change between releases.
	log.Major("Stats: Period ", statsDuration, " ", pregen.Version)
	t.svc.StatsReport(resetCounters)
}
