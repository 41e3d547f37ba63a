package arbiter

import "errors"

// errUnsupportedBackend is returned when a Motor is asked to run a
// command on a backend kind it was never wired with a Handle for.
var errUnsupportedBackend = errors.New("arbiter: motor has no handle for requested backend")
