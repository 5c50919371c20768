package netstore

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Error("Default Params should be valid", err)
	}
	if p.MinSamples > p.MaxSamples {
		t.Error("Default min > max", p.MinSamples, p.MaxSamples)
	}
}

func TestParamsValidate(t *testing.T) {
	testCases := []struct {
		modify func(p *Params)
		want   string // Empty means valid
	}{
		{func(p *Params) {}, ""},
		{func(p *Params) { p.MinSamples = 9 }, "min_samples 9 > max_samples 8"},
		{func(p *Params) { p.MinSamples = -1 }, ""},
		{func(p *Params) { p.MaxSamples = 100; p.MinSamples = 1 }, ""},
		{func(p *Params) { p.RetryCount = -1 }, "retry_count -1"},
		{func(p *Params) { p.RetryCount = 0 }, ""},
		{func(p *Params) { p.RetryCount = 40 }, ""},
		{func(p *Params) { p.BaseTimeout = 0 }, "base_timeout"},
		{func(p *Params) { p.BaseTimeout = -time.Second }, "base_timeout"},
		{func(p *Params) { p.SuccessThreshold = 150 }, ""},
		{func(p *Params) { p.SuccessThreshold = -1 }, ""},
		{func(p *Params) { p.SampleValidity = -time.Second }, ""},
	}

	for ix, tc := range testCases {
		p := DefaultParams()
		tc.modify(&p)
		err := p.Validate()
		if len(tc.want) == 0 {
			if err != nil {
				t.Error(ix, "Unexpected error", err)
			}
			continue
		}
		if err == nil {
			t.Error(ix, "Expected error containing", tc.want)
			continue
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Error(ix, "Want ErrInvalidArgument, got", err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Error(ix, "Want", tc.want, "got", err.Error())
		}
	}
}

// Every violation should be reported, not just the first
func TestParamsValidateAll(t *testing.T) {
	p := Params{MinSamples: 10, MaxSamples: 5, RetryCount: -2}
	err := p.Validate()
	if err == nil {
		t.Fatal("Expected errors")
	}
	for _, want := range []string{"min_samples", "retry_count", "base_timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Error("Want", want, "in", err.Error())
		}
	}
}

func TestParamsClamped(t *testing.T) {
	testCases := []struct {
		max, threshold              int
		wantRetained, wantThreshold int
	}{
		{8, 25, 8, 25},
		{64, 100, 64, 100},
		{100, 150, MaxSamplesLimit, 100},
		{0, -1, 0, 0},
	}
	for ix, tc := range testCases {
		p := Params{MaxSamples: tc.max, SuccessThreshold: tc.threshold}
		if p.retained() != tc.wantRetained {
			t.Error(ix, "Want retained", tc.wantRetained, "got", p.retained())
		}
		if p.threshold() != tc.wantThreshold {
			t.Error(ix, "Want threshold", tc.wantThreshold, "got", p.threshold())
		}
	}
}

func TestSamplingEqual(t *testing.T) {
	a := DefaultParams()
	b := a
	b.BaseTimeout *= 2
	b.RetryCount++
	if !a.samplingEqual(b) {
		t.Error("Timeout and retries should not affect sampling equality")
	}
	b.MinSamples--
	if a.samplingEqual(b) {
		t.Error("MinSamples change should affect sampling equality")
	}
}
