package netstore

import (
	"testing"
	"time"

	"github.com/miekg/dns"
)

func TestOutcomeFromRcode(t *testing.T) {
	testCases := []struct {
		rcode int
		want  Outcome
	}{
		{dns.RcodeSuccess, OutcomeSuccess},
		{dns.RcodeNameError, OutcomeSuccess},
		{dns.RcodeNotAuth, OutcomeSuccess},
		{dns.RcodeServerFailure, OutcomeError},
		{dns.RcodeRefused, OutcomeError},
	}
	for _, tc := range testCases {
		got := OutcomeFromRcode(tc.rcode)
		if got != tc.want {
			t.Error(dns.RcodeToString[tc.rcode], "Want", tc.want, "got", got)
		}
	}
}

func TestRingWraps(t *testing.T) {
	var r ring
	for ix := 0; ix < 10; ix++ {
		r.add(Sample{Rcode: ix}, 4)
	}
	var n, sum int
	r.each(func(s Sample) { n++; sum += s.Rcode })
	if n != 4 {
		t.Error("Want 4 samples retained, got", n)
	}
	if sum != 6+7+8+9 {
		t.Error("Want the most recent samples, got sum", sum)
	}
}

func TestUsable(t *testing.T) {
	p := DefaultParams()
	p.MinSamples = 4
	p.MaxSamples = 8
	p.SuccessThreshold = 50
	p.SampleValidity = time.Minute
	servers := []string{"a", "b"}
	now := time.Now()

	st := newServerStats()
	for ix := 0; ix < 3; ix++ { // Below MinSamples so still usable
		st.record("a", Sample{At: now, Outcome: OutcomeTimeout}, p)
	}
	if got := st.usable(servers, p, now); len(got) != 2 {
		t.Error("Want both usable below MinSamples, got", got)
	}

	st.record("a", Sample{At: now, Outcome: OutcomeError}, p)
	got := st.usable(servers, p, now)
	if len(got) != 1 || got[0] != "b" {
		t.Error("Want only b usable, got", got)
	}

	// Old samples age out
	got = st.usable(servers, p, now.Add(2*time.Minute))
	if len(got) != 2 {
		t.Error("Want aged out samples ignored, got", got)
	}

	// Internal failures never count
	st.reset()
	for ix := 0; ix < 8; ix++ {
		st.record("a", Sample{At: now, Outcome: OutcomeInternal}, p)
	}
	if ss := st.stats(servers, p, now); ss[0].Total() != 0 {
		t.Error("Internal outcomes should not be recorded", ss[0])
	}
}

func TestUsableAllBad(t *testing.T) {
	p := DefaultParams()
	p.MinSamples = 1
	now := time.Now()
	st := newServerStats()
	servers := []string{"a", "b"}
	for _, s := range servers {
		st.record(s, Sample{At: now, Outcome: OutcomeTimeout}, p)
	}
	got := st.usable(servers, p, now)
	if len(got) != 2 {
		t.Error("Want all servers returned when none usable, got", got)
	}
}

func TestAvgRTT(t *testing.T) {
	p := DefaultParams()
	now := time.Now()
	st := newServerStats()
	st.record("a", Sample{At: now, Outcome: OutcomeSuccess, RTT: 10 * time.Millisecond}, p)
	st.record("a", Sample{At: now, Outcome: OutcomeSuccess, RTT: 30 * time.Millisecond}, p)
	st.record("a", Sample{At: now, Outcome: OutcomeTimeout, RTT: time.Second}, p)
	ss := st.stats([]string{"a"}, p, now)[0]
	if ss.AvgRTT != 20*time.Millisecond {
		t.Error("Want 20ms average, got", ss.AvgRTT)
	}
	if ss.Successes != 2 || ss.Timeouts != 1 {
		t.Error("Unexpected counts", ss)
	}
}

func TestOutOfRangeParams(t *testing.T) {
	p := DefaultParams()
	p.MinSamples = -1
	p.MaxSamples = 100
	p.SuccessThreshold = 150
	now := time.Now()
	st := newServerStats()
	for ix := 0; ix < 80; ix++ {
		st.record("a", Sample{At: now, Outcome: OutcomeSuccess}, p)
	}
	st.record("b", Sample{At: now, Outcome: OutcomeSuccess}, p)
	st.record("b", Sample{At: now, Outcome: OutcomeError}, p)

	ss := st.stats([]string{"a", "b"}, p, now)
	if ss[0].Total() != MaxSamplesLimit {
		t.Error("Want ring capped at", MaxSamplesLimit, "got", ss[0].Total())
	}
	if !ss[0].Usable {
		t.Error("All successes should remain usable with a clamped threshold", ss[0])
	}
	if ss[1].Usable {
		t.Error("Any failure should be unusable with a 100% threshold", ss[1])
	}
}
