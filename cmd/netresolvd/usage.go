package main

import (
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/ownership"
)

type parseResult int // This is a ternary variable
const (
	parseStop     parseResult = iota // No error, but don't continue
	parseContinue                    // No errors and continue
	parseFailed                      // Errors, do not continue
)

// parseOptions populates t.cfg from args. Duplicate options are rejected unless they are
// documentation options or legitimately repeatable.
func (t *netresolvd) parseOptions(args []string) parseResult {
	var helpFlag, versionFlag bool

	name := programName
	if len(args) > 0 {
		name = args[0]
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Consider '-h' for command-line usage")
	}

	fs.SetOutput(log.Out())

	// Non-config flags

	fs.BoolVarP(&helpFlag, "help", "h", false, "Print command-line usage")
	fs.BoolVarP(&versionFlag, "version", "v", false, "Print version and origin URL")

	// config flags

	fs.BoolVar(&t.cfg.logMajorFlag, "log-major", true, "Log major events to Stdout")
	fs.BoolVar(&t.cfg.logMinorFlag, "log-minor", false,
		"Log minor events to Stdout - this implies --log-major")
	fs.BoolVar(&t.cfg.logDebugFlag, "log-debug", false,
		"Log debug events to Stdout - this implies --log-minor")
	fs.BoolVar(&t.cfg.logQueriesFlag, "log-queries", false,
		`Log each resolution request to Stdout. This setting can be
toggled with SIGUSR2.`)

	// config Durations

	fs.DurationVar(&t.cfg.reportInterval, "report", defaultReportInterval,
		"Interval between statistics reports (>= 1s or 0 for never)")
	fs.DurationVar(&t.cfg.params.SampleValidity, "sample-validity",
		t.cfg.params.SampleValidity, "How long a nameserver statistics sample is relevant")
	fs.DurationVar(&t.cfg.params.BaseTimeout, "base-timeout", t.cfg.params.BaseTimeout,
		"Timeout of the first query attempt, doubled on each retry")

	// config ints

	fs.IntVar(&t.cfg.params.SuccessThreshold, "success-threshold",
		t.cfg.params.SuccessThreshold,
		`Percentage of successful samples below which a nameserver is
not used`)
	fs.IntVar(&t.cfg.params.MinSamples, "min-samples", t.cfg.params.MinSamples,
		"Samples needed before --success-threshold applies")
	fs.IntVar(&t.cfg.params.MaxSamples, "max-samples", t.cfg.params.MaxSamples,
		"Samples retained per nameserver")
	fs.IntVar(&t.cfg.params.RetryCount, "retry-count", t.cfg.params.RetryCount,
		"Retries after the first query attempt")
	fs.IntVar(&t.cfg.cacheSize, "cache-size", 0,
		"Answer cache entries (default 10000)")
	fs.IntVar(&t.cfg.apiLevel, "api-level", ownership.LevelFromEnv(),
		fmt.Sprintf(`Capability level. At %d or above query sockets are given to
the requesting uid, otherwise to uid %d (default from $%s)`,
			ownership.CapabilityThreshold, ownership.AIDDNS, ownership.CapabilityEnv))
	fs.Uint32Var(&t.cfg.netID, "netid", defaultNetID, "Network id to configure")
	fs.Uint32Var(&t.cfg.controlUID, "control-uid", 0,
		"uid that control listener queries run as")

	// config StringVars

	fs.StringVar(&t.cfg.listen, "listen", defaultListen,
		`Control listener address - accepts 'host:port', v4address:port or
[v6address]:port syntax. An empty string disables the listener.
`)
	fs.StringVar(&t.cfg.group, "group", "", "Reduce privileges with setgid() after start")
	fs.StringVar(&t.cfg.chroot, "chroot", "",
		`Reduce privileges with chroot() after start.
`)

	// config RRL StringVars - all RRL configs are set as strings so as to match the
	// interface provided by the rrl package. It does the actual conversion of numbers
	// and so forth and generates errors if they are invalid or out of range.

	fs.StringVar(&t.cfg.rrlOptions.window, "rrl-window", "",
		"Seconds during which response rates are tracked (default 15)")
	fs.StringVar(&t.cfg.rrlOptions.slipRatio, "rrl-slip-ratio", "",
		`Ratio of rate-limited responses given a truncated response over
a dropped response. A ratio of 0 disables slip processing
(default 2).`)
	fs.StringVar(&t.cfg.rrlOptions.maxTableSize, "rrl-max-table-size", "",
		"Maximum number of responses to be tracked at one time (default 100000)")
	fs.StringVar(&t.cfg.rrlOptions.ipv4PrefixLength, "rrl-ipv4-CIDR", "",
		"The prefix length in bits identifying a ipv4 client CIDR (default 24)")
	fs.StringVar(&t.cfg.rrlOptions.ipv6PrefixLength, "rrl-ipv6-CIDR", "",
		"The prefix length in bits identifying a ipv6 client CIDR (default 56)")
	fs.StringVar(&t.cfg.rrlOptions.responsesInterval, "rrl-responses-psec", "",
		"The number of Answer responses allowed per second (default 0)")
	fs.StringVar(&t.cfg.rrlOptions.nodataInterval, "rrl-nodata-psec", "",
		"The number of NoData responses allowed per second")
	fs.StringVar(&t.cfg.rrlOptions.nxdomainsInterval, "rrl-nxdomain-psec", "",
		"The number of NXDomain responses allowed per second")
	fs.StringVar(&t.cfg.rrlOptions.errorsInterval, "rrl-errors-psec", "",
		"The number of Error responses allowed per second")
	fs.StringVar(&t.cfg.rrlOptions.requestsInterval, "rrl-requests-psec", "",
		"The number requests allowed per second from a source IP (default 0)")

	// config String Arrays

	fs.StringArrayVar(&t.cfg.nameservers, "nameserver", []string{},
		"Nameserver address for the network (at most 4)")
	fs.StringArrayVar(&t.cfg.search, "search", []string{},
		"Search domain for the network (at most 6)")
	fs.StringArrayVar(&t.cfg.denyDomains, "deny-domain", []string{},
		`Refuse resolution of names in this domain
`)

	////////////////////////////////////////

	// Both the standard "flag" package and "spf13/pflag" silently allow duplicate
	// options, so duplicates are managed here.

	dupes := make(map[string]bool) // True means dupes are ok

	dupes["help"] = true    // Documentation options that never run netresolvd
	dupes["version"] = true // can be duplicate because the user may be fumbling

	dupes["nameserver"] = true // These are legitimately allowed multiple times and
	dupes["search"] = true     // netresolvd honors all values.
	dupes["deny-domain"] = true

	fs.SetInterspersed(false)
	err := fs.ParseAll(args[1:],
		func(f *flag.Flag, v string) error {
			if tf, ok := dupes[f.Name]; ok {
				if tf {
					return fs.Set(f.Name, v)
				}
				return fmt.Errorf("Duplicate option '--%v %v' not allowed",
					f.Name, v)
			}
			dupes[f.Name] = false
			return fs.Set(f.Name, v)
		})

	if err != nil {
		fmt.Fprintln(log.Out(), "Error:", err.Error())
		return parseFailed
	}

	// Handle all documentation options locally

	if helpFlag {
		printUsage(fs)
		fmt.Fprintln(log.Out())
		t.cfg.printVersion()
		return parseStop
	}

	if versionFlag {
		t.cfg.printVersion()
		return parseStop
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(log.Out(), "Error:Unexpected goop on command line: '%s'\n",
			strings.Join(fs.Args(), " "))
		return parseFailed
	}

	return t.parseRRLOptions()
}

// parseRRLOptions transfers the --rrl-* strings to the rrl Config which does all the
// conversion and range checking. The rrl config starts life as a no-op so as soon as any
// --rrl option is set at least one *psec value must make it active.
func (t *netresolvd) parseRRLOptions() parseResult {
	for _, nv := range []struct{ name, value string }{
		{"window", t.cfg.rrlOptions.window},
		{"slip-ratio", t.cfg.rrlOptions.slipRatio},
		{"max-table-size", t.cfg.rrlOptions.maxTableSize},
		{"ipv4-CIDR", t.cfg.rrlOptions.ipv4PrefixLength},
		{"ipv6-CIDR", t.cfg.rrlOptions.ipv6PrefixLength},
		{"responses-per-second", t.cfg.rrlOptions.responsesInterval},
		{"nodata-per-second", t.cfg.rrlOptions.nodataInterval},
		{"nxdomains-per-second", t.cfg.rrlOptions.nxdomainsInterval},
		{"errors-per-second", t.cfg.rrlOptions.errorsInterval},
		{"requests-per-second", t.cfg.rrlOptions.requestsInterval},
	} {
		if !t.setRRLOption(nv.name, nv.value) {
			return parseFailed
		}
	}

	if t.cfg.rrlOptionSet && !t.cfg.rrlConfig.IsActive() {
		fmt.Fprintln(log.Out(),
			"Error: RRL options are ineffective unless at least one --rrl-*-psec is set")
		return parseFailed
	}

	return parseContinue
}

func (t *netresolvd) setRRLOption(name, value string) bool {
	if len(value) == 0 {
		return true
	}

	t.cfg.rrlOptionSet = true // Say at least one --rrl option is present
	err := t.cfg.rrlConfig.SetValue(name, value)
	if err != nil {
		fmt.Fprintln(log.Out(), "Error:", err.Error())
		return false
	}

	return true
}

func printUsage(fs *flag.FlagSet) {
	o := log.Out()
	fmt.Fprintln(o, "NAME")
	fmt.Fprintln(o, " ", programName, "-- a per-network DNS stub resolution service")
	fmt.Fprintln(o)
	fmt.Fprintln(o, "SYNOPSIS")
	fmt.Fprintln(o, "     netresolvd -h | --help | -v | --version")
	fmt.Fprintln(o, "     netresolvd --nameserver address… [--search domain]…")
	fmt.Fprintln(o, `                [--listen address] [--netid id] [--control-uid uid]
                [--deny-domain domain]… [--api-level level]
                [--sample-validity time.Duration] [--success-threshold percent]
                [--min-samples count] [--max-samples count]
                [--base-timeout time.Duration] [--retry-count count]
                [--cache-size entries] [--group group-name] [--chroot path]
                [--log-major=true] [--log-minor] [--log-debug]
                [--log-queries] [--report time.Duration=1h]
                [--rrl-ipv4-CIDR length] [--rrl-ipv6-CIDR length]
                [--rrl-max-table-size size] [--rrl-window size] [--rrl-slip-ratio ratio]
                [--rrl-errors-psec count] [--rrl-nodata-psec count]
                [--rrl-nxdomain-psec count] [--rrl-requests-psec count]
                [--rrl-responses-psec count]`)

	fmt.Fprintln(o)
	fmt.Fprintln(o, "     Ellipses (…) indicate options which can be specified multiple times.")
	fmt.Fprint(o, `
DESCRIPTION
     netresolvd configures one network with the given nameservers and search
     domains and answers A and AAAA queries sent to its control listener by
     resolving them through that network, exactly as an application request
     would be: permission check, domain evaluation, socket tagging and
     ownership change, then the query exchange.

     A typical invocation is:

           # netresolvd --nameserver 192.0.2.53 --search example.net

     after which 'dig @127.0.0.1 www.example.net' is resolved via 192.0.2.53.
`)
	fmt.Fprintln(o)
	fmt.Fprintln(o, "OPTIONS")
	op := fs.Output() // Save and restore
	fs.SetOutput(o)
	fs.PrintDefaults()
	fs.SetOutput(op)

	fmt.Fprint(o, `
NOTES
  1. --nameserver, --search and --deny-domain can be repeated multiple times.
  2. RRL is only activated when at least one of the *-psec values is set above zero.

SIGNALS
  SIGHUP  - flush all answer caches
  SIGTERM - initiate shutdown
  SIGINT  - initiate shutdown
  SIGUSR1 - generates an immediate stats report
  SIGUSR2 - toggles --log-queries
`)
}
