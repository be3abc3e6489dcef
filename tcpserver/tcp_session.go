package tcpserver

// Session is implemented by each connection handler. The server creates one
// per accepted connection and runs Handle in its own goroutine.
type Session interface {
	// ID returns the connection ID assigned by the server.
	//
	// Returns:
	//   - The connection ID (uint32)
	ID() uint32

	// Handle runs the connection's read loop until the peer disconnects or
	// Close is called.
	Handle()

	// Close closes the connection, unblocking Handle. It must be safe to call
	// multiple times and concurrently with Handle.
	//
	// Returns:
	//   - An error if closing failed
	Close() error

	// Send writes data to the connection. Implementations must be safe for
	// concurrent use.
	//
	// Parameters:
	//   - data: The bytes to send
	//
	// Returns:
	//   - An error if the write failed
	Send(data []byte) error
}
