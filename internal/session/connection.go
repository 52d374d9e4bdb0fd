package session

import "context"

// Connection is a database connection owned by the connection collaborator.
type Connection interface {
	// Cancel interrupts whatever the connection is currently executing.
	Cancel(ctx context.Context) error
	// Release returns the connection to its owner.
	Release() error
}

// ConnectionResolver maps opaque connection refs to live connections.
type ConnectionResolver interface {
	// Lookup returns the connection for ref, or false if it is already gone.
	Lookup(ref string) (Connection, bool)
}
