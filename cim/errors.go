package cim

import "errors"

// Configuration errors, raised before any remote call is made.
var (
	// ErrClassNotSpecified is returned when an operation is called
	// without a class name.
	ErrClassNotSpecified = errors.New("cim: class name not specified")

	// ErrMethodNotSpecified is returned when Invoke is called without a
	// method name.
	ErrMethodNotSpecified = errors.New("cim: method name not specified")

	// ErrNoProperties is returned when Create or Update is called
	// without any properties.
	ErrNoProperties = errors.New("cim: no properties specified")

	// ErrNoObject is returned when an instance-scoped operation is
	// called without a target instance, or with an instance that
	// carries no identity selectors.
	ErrNoObject = errors.New("cim: no object specified")
)

// ErrNotFound is returned when a by-filter resolution matches nothing.
// Callers distinguish it with errors.Is.
var ErrNotFound = errors.New("cim: no matching object")
