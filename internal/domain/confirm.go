package domain

// Confirmer asks the operator to approve a destructive operation. A false
// return with a nil error means the operator declined.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// AutoConfirm approves unconditionally. Used by the Telegram bot, which has
// already asked its own confirmation question, and by the -yes flag.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(string) (bool, error) { return true, nil }
