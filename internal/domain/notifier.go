package domain

// Notifier delivers short operator-facing status messages.
type Notifier interface {
	Notify(message string) error
}
