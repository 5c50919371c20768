package dnsutil

import (
	"strings"
)

// shortenedError keeps the original so errors.Is and errors.As still work.
type shortenedError struct {
	msg string
	err error
}

func (t *shortenedError) Error() string {
	return t.msg
}

func (t *shortenedError) Unwrap() error {
	return t.err
}

// Fragments of net, syscall and context errors and their short form. First match wins.
var shortForms = []struct{ fragment, short string }{
	{"i/o timeout", "Timeout"},
	{"connection refused", "Connection refused"},
	{"operation not permitted", "Not permitted"},
	{"network is unreachable", "Unreachable"},
	{"context canceled", "Cancelled"},
	{"context deadline exceeded", "Deadline"},
}

// ShortenLookupError replaces the long errors returned by net and miekg with a short
// form suitable for one line logs and event notes.
func ShortenLookupError(err error) error {
	if err == nil {
		return nil
	}
	m := err.Error()
	for _, sf := range shortForms {
		if strings.Contains(m, sf.fragment) {
			return &shortenedError{msg: sf.short, err: err}
		}
	}

	return err
}
