package netstore

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	MaxSamplesLimit = 64 // Most samples retained per server
)

// Params control how nameservers are selected and queried. The sampling fields drive
// the nameserver statistics; BaseTimeout and RetryCount are handed to the query engine.
type Params struct {
	SampleValidity   time.Duration // How long a sample stays relevant. Zero or less is forever.
	SuccessThreshold int           // Percentage 0-100 below which a server is unusable
	MinSamples       int           // Samples needed before SuccessThreshold applies
	MaxSamples       int           // Samples retained per server, up to MaxSamplesLimit
	BaseTimeout      time.Duration // Timeout of the first attempt, doubled per retry
	RetryCount       int           // Retries after the first attempt
}

// DefaultParams returns the values used when a caller has no opinion.
func DefaultParams() Params {
	return Params{
		SampleValidity:   1800 * time.Second,
		SuccessThreshold: 25,
		MinSamples:       8,
		MaxSamples:       8,
		BaseTimeout:      5000 * time.Millisecond,
		RetryCount:       2,
	}
}

// Validate returns nil or an error wrapping ErrInvalidArgument which lists every
// violated invariant.
func (t Params) Validate() error {
	if err := t.check(nil).ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return nil
}

// check appends each violated invariant to result. Other out of range values are
// accepted as submitted and clamped where they are used.
func (t Params) check(result *multierror.Error) *multierror.Error {
	if t.MinSamples > t.MaxSamples {
		result = multierror.Append(result,
			fmt.Errorf("min_samples %d > max_samples %d", t.MinSamples, t.MaxSamples))
	}
	if t.RetryCount < 0 {
		result = multierror.Append(result, fmt.Errorf("retry_count %d < 0", t.RetryCount))
	}
	if t.BaseTimeout <= 0 {
		result = multierror.Append(result,
			fmt.Errorf("base_timeout %s must be positive", t.BaseTimeout))
	}

	return result
}

// retained is the number of samples kept per server, never more than MaxSamplesLimit.
func (t Params) retained() int {
	if t.MaxSamples > MaxSamplesLimit {
		return MaxSamplesLimit
	}

	return t.MaxSamples
}

// threshold is SuccessThreshold clamped to a percentage.
func (t Params) threshold() int {
	switch {
	case t.SuccessThreshold < 0:
		return 0
	case t.SuccessThreshold > 100:
		return 100
	}

	return t.SuccessThreshold
}

// samplingEqual returns true if the statistics gathered under o remain meaningful
// under t.
func (t Params) samplingEqual(o Params) bool {
	return t.SampleValidity == o.SampleValidity &&
		t.SuccessThreshold == o.SuccessThreshold &&
		t.MinSamples == o.MinSamples &&
		t.MaxSamples == o.MaxSamples
}

func (t Params) String() string {
	return fmt.Sprintf("validity=%s threshold=%d%% samples=%d-%d timeout=%s retries=%d",
		t.SampleValidity, t.SuccessThreshold, t.MinSamples, t.MaxSamples,
		t.BaseTimeout, t.RetryCount)
}
