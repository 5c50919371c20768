package netstore

import "errors"

var (
	ErrNotFound        = errors.New("network not found")
	ErrAlreadyExists   = errors.New("network already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)
