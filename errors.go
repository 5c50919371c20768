package netresolv

import (
	"context"
	"errors"

	"github.com/markdingo/netresolv/netstore"
	"github.com/markdingo/netresolv/ownership"
	"github.com/markdingo/netresolv/resolver"
)

// Sentinels shared with the lower packages so errors.Is works regardless of which
// package produced the error.
var (
	ErrNotFound              = netstore.ErrNotFound
	ErrAlreadyExists         = netstore.ErrAlreadyExists
	ErrInvalidArgument       = netstore.ErrInvalidArgument
	ErrOwnershipChangeFailed = ownership.ErrOwnershipChangeFailed
	ErrNoNameservers         = resolver.ErrNoServers
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrDomainRejected   = errors.New("domain name rejected")
	ErrHostNotFound     = errors.New("host not found")
	ErrServerFailure    = errors.New("no usable response from nameservers")
	ErrTimeout          = errors.New("resolution timed out")
	ErrServiceClosed    = errors.New("service closed")
)

// Status codes are negative errno values as expected by callers which speak the
// traditional resolver C interfaces.
const (
	StatusOK                    = 0
	StatusPermissionDenied      = -1   // EPERM
	StatusNotFound              = -2   // ENOENT
	StatusIO                    = -5   // EIO
	StatusServerFailure         = -11  // EAGAIN
	StatusDomainRejected        = -13  // EACCES
	StatusAlreadyExists         = -17  // EEXIST
	StatusInvalidArgument       = -22  // EINVAL
	StatusHostNotFound          = -61  // ENODATA
	StatusOwnershipChangeFailed = -77  // EBADFD
	StatusTimeout               = -110 // ETIMEDOUT
	StatusCancelled             = -125 // ECANCELED
)

// StatusCode maps err to its status code. A nil error is StatusOK.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrPermissionDenied):
		return StatusPermissionDenied
	case errors.Is(err, ErrDomainRejected):
		return StatusDomainRejected
	case errors.Is(err, ErrOwnershipChangeFailed):
		return StatusOwnershipChangeFailed
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return StatusAlreadyExists
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, ErrHostNotFound):
		return StatusHostNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	case errors.Is(err, ErrServerFailure), errors.Is(err, ErrNoNameservers):
		return StatusServerFailure
	}

	return StatusIO
}
