package main

import (
	"strings"
	"testing"
	"time"

	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/mock"
)

func TestUsage(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)

	testCases := []struct {
		options string
		expect  string
		result  parseResult
	}{
		{"", "", parseContinue},
		{"-h", "SYNOPSIS", parseStop},
		{"--help", "SYNOPSIS", parseStop},
		{"-v", "Program:", parseStop},
		{"--version", "Program:", parseStop},
		{"goop", "goop", parseFailed},
		{"-X", "unknown shorthand flag", parseFailed},
		{"--listen 127.0.0.1 --listen ::1", "Duplicate option", parseFailed},
		{"--netid 1 --netid 2", "Duplicate option", parseFailed},
		{"--nameserver 192.0.2.1 --nameserver 192.0.2.2", "", parseContinue}, // ok
		{"--search a.example --search b.example", "", parseContinue},
		{"--rrl-window 10", "ineffective", parseFailed},
		{"--rrl-responses-psec x", "Error:", parseFailed},
		{"--rrl-responses-psec 10 --rrl-slip-ratio 0", "", parseContinue},
		{"--listen 127.0.0.1:5353 --netid 7 --control-uid 1000" +
			" --nameserver 192.0.2.1 --nameserver [2001:db8::1]:53" +
			" --search example.net --deny-domain ads.example" +
			" --sample-validity 10m --success-threshold 50" +
			" --min-samples 4 --max-samples 16 --base-timeout 2s --retry-count 1" +
			" --cache-size 100 --api-level 29 --group g --chroot /" +
			" --log-major --log-minor --log-debug=true" +
			" --log-queries=true --report 4h" +
			" --rrl-window 5 --rrl-max-table-size 1000 --rrl-ipv4-CIDR 24" +
			" --rrl-ipv6-CIDR 56 --rrl-nodata-psec 1 --rrl-nxdomain-psec 1" +
			" --rrl-errors-psec 1 --rrl-requests-psec 1", "", parseContinue}, // Every legit option
	}

	for ix, tc := range testCases {
		nr := newNetresolvd(nil)
		var opts []string
		if len(tc.options) > 0 {
			opts = strings.Split(tc.options, " ")
		}
		args := []string{programName}
		args = append(args, opts...)
		out.Reset()
		res := nr.parseOptions(args)
		if res != tc.result {
			t.Error(ix, "Results mismatch. Want", tc.result, "got", res)
		}
		got := out.String()
		if len(tc.expect) == 0 && len(got) != 0 {
			t.Error(ix, "Did not expect any output, but got", len(got), got)
		}
		if len(tc.expect) > 0 {
			if !strings.Contains(got, tc.expect) {
				t.Error(ix, "Output does not contain", tc.expect, "got", got)
			}
		}
	}
}

func TestUsageValues(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	nr := newNetresolvd(nil)
	res := nr.parseOptions([]string{programName, "--netid", "7", "--nameserver", "192.0.2.1",
		"--nameserver", "192.0.2.2", "--base-timeout", "2s", "--retry-count", "0",
		"--api-level", "29"})
	if res != parseContinue {
		t.Fatal("Unexpected parse failure", out.String())
	}
	cfg := nr.cfg
	if cfg.netID != 7 || len(cfg.nameservers) != 2 || cfg.params.BaseTimeout != 2*time.Second ||
		cfg.params.RetryCount != 0 || cfg.apiLevel != 29 {
		t.Errorf("Options not transferred %+v", cfg)
	}
	if cfg.params.MaxSamples != 8 || cfg.listen != defaultListen {
		t.Error("Defaults not retained", cfg.params, cfg.listen)
	}
}
