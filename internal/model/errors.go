package model

import "errors"

var (
	// ErrArgTypeValMismatch is returned when a value is assigned to an argument
	// whose declared type cannot hold it.
	ErrArgTypeValMismatch = errors.New("argument type and value mismatch")
	// ErrArgValNotSet is returned when rendering an argument that has no value.
	ErrArgValNotSet = errors.New("argument value not set")
	// ErrInvalidAccessPath is returned when an access path string cannot be decoded.
	ErrInvalidAccessPath = errors.New("invalid access path")
)
