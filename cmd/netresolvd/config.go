package main

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/markdingo/rrl"

	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/netstore"
	"github.com/markdingo/netresolv/pregen"
)

const (
	programName = "netresolvd"

	// Kinda subtle, but uppercase HTTPS implies BuildInfo was empty.
	defaultProjectURL = "HTTPS://github.com/markdingo/netresolv"

	defaultService = "domain"
	defaultListen  = "127.0.0.1:" + defaultService

	defaultNetID          = 100
	defaultReportInterval = time.Hour
)

// rrlConfigStrings separates out the RRL options from all the rest for easy management
// and identification.
type rrlConfigStrings struct {
	window       string // "--rrl-window"
	slipRatio    string // "--rrl-slip-ratio"
	maxTableSize string // "--rrl-max-table-size"

	ipv4PrefixLength string // "--rrl-ipv4-CIDR"
	ipv6PrefixLength string // "--rrl-ipv6-CIDR"

	responsesInterval string // "--rrl-responses-psec"
	nodataInterval    string // "--rrl-nodata-psec"
	nxdomainsInterval string // "--rrl-nxdomain-psec"
	errorsInterval    string // "--rrl-errors-psec"
	requestsInterval  string // "--rrl-requests-psec"
}

// config defines the settings netresolvd runs with. Once validated it is never changed
// as it is shared amongst go-routines without any lock protections.
type config struct {
	projectURL string

	logMajorFlag   bool // Major events and on-going information such as periodic stats
	logMinorFlag   bool // Details associated with Major event
	logDebugFlag   bool // Developer flag
	logQueriesFlag bool // Each resolution request

	reportInterval time.Duration // Statistics reporting interval. Zero means never.

	listen     string // Control listener. Empty means none.
	netID      uint32 // The one network netresolvd configures
	controlUID uint32 // Identity control listener queries run as
	cacheSize  int
	apiLevel   int

	nameservers []string
	search      []string
	denyDomains []string // Suffixes refused by the domain callback
	params      netstore.Params

	group, chroot string // Privilege constraints

	rrlOptions   rrlConfigStrings // Set by flags package
	rrlOptionSet bool             // True if at least one rrl option was set
	rrlConfig    *rrl.Config      // Populated if RRL is active
}

func newConfig() *config {
	t := &config{projectURL: defaultProjectURL, params: netstore.DefaultParams()}
	info, ok := debug.ReadBuildInfo()
	if ok && len(info.Main.Path) > 0 {
		t.projectURL = info.Main.Path // Override with embedded if present
	}

	t.rrlConfig = rrl.NewConfig() // This default config is a no-op

	return t
}

func (t *config) printVersion() {
	fmt.Fprintf(log.Out(), "Program:     %s %s (%s)\n",
		programName, pregen.Version, pregen.ReleaseDate)
	fmt.Fprintf(log.Out(), "Project:     %s\n", t.projectURL)
}
