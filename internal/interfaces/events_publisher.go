package interfaces

// EventPublisher fans ledger, reserve, and bridge events out to whatever is
// listening. Publishing is best-effort from the caller's point of view.
type EventPublisher interface {
	Publish(topic string, event any) error
}
