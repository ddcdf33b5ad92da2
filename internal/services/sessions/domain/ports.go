package domain

import "context"

// RegistryPort is what transports and the orchestrator use to reach sessions
type RegistryPort interface {
	// Admit registers a new session and returns its id and event stream.
	// Fails with a capacity error when the connection ceiling is reached
	Admit(ctx context.Context) (id string, events <-chan Event, err error)

	// Deliver enqueues ev for the session without blocking. A missing or
	// closed session yields a not found error the caller may ignore
	Deliver(ctx context.Context, id string, ev Event) error

	// Heartbeat marks the session as alive
	Heartbeat(id string) error

	// Remove tears the session down and closes its stream. Idempotent
	Remove(id string)
}

// SweeperPort is the background loop that pings and evicts idle sessions
type SweeperPort interface {
	Run(ctx context.Context) error
}
