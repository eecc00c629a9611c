package models

// Entity is implemented by every record kept in a collection snapshot.
// T is the concrete record type, so generic code can build placeholders
// without reflection.
type Entity[T any] interface {
	// EntityID returns the server-assigned id. Optimistic placeholders
	// carry a negative temporary id.
	EntityID() int64
	// Provisional returns a copy of the record carrying tempID and flagged
	// as unconfirmed.
	Provisional(tempID int64) T
	// Confirmed reports whether the server has acknowledged the record.
	Confirmed() bool
	// Validate checks the fields required before a write is attempted.
	Validate() error
}
