package transport

// Request is the future-like handle for one in-flight exchange with a
// worker. Get blocks until the worker responds; there is no timeout or
// cancellation, so a stuck worker blocks the caller indefinitely.
type Request interface {
	// Valid reports whether the handle refers to an issued request
	Valid() bool
	// Get blocks until the response payload is available
	Get() ([]byte, error)
}

// Client is the wire transport a job handle submits through. A worker
// accepts one circuit-execution request at a time per connection; callers
// must serialize requests and parameter updates on one client.
type Client interface {
	// Connect establishes the connection to the worker endpoint. It is
	// idempotent.
	Connect(endpoint string) error
	// SendCircuit hands one serialized execution request to the worker
	// without blocking for the result.
	SendCircuit(payload []byte) (Request, error)
	// SendParameters hands a parameter-update payload to the worker over
	// the dedicated parameter channel, without blocking for the result.
	SendParameters(payload []byte) (Request, error)
}
