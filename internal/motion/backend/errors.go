package backend

import "errors"

var (
	// errUnsupported is returned when a backend is asked to perform an
	// operation outside its Kind's contract (e.g. StartStream on a
	// Timer backend).
	errUnsupported = errors.New("backend: operation not supported by this kind")

	// ErrDMAUnavailable is returned by a PIOStream backend's
	// StartStream when no DMA channel could be claimed, surfacing the
	// failure explicitly rather than silently dropping the stream.
	ErrDMAUnavailable = errors.New("backend: no DMA channel available for PIO stream")
)
